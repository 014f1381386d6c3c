package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/plantdex/plantdex/internal/chunker"
	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/data/store"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
	"github.com/plantdex/plantdex/internal/embedding"
	"github.com/plantdex/plantdex/internal/embedding/googleEmbedding"
	"github.com/plantdex/plantdex/internal/handlers"
	"github.com/plantdex/plantdex/internal/ingest"
	"github.com/plantdex/plantdex/internal/job"
	"github.com/plantdex/plantdex/internal/middleware"
	"github.com/plantdex/plantdex/internal/objectStore"
	"github.com/plantdex/plantdex/internal/outgoing"
	"github.com/plantdex/plantdex/internal/parser"
	"github.com/plantdex/plantdex/internal/parser/ocr"
	"github.com/plantdex/plantdex/internal/search"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/server"
	"github.com/plantdex/plantdex/internal/vectorStore/qdrantDB"
	"github.com/plantdex/plantdex/internal/worker"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration error", "error", err)
		os.Exit(1)
	}
	flag.StringVar(&listenAddr, "listen-addr", cfg.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobModel.IngestJob, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and stores; fall back to in-memory when redis is offline
	redisJobs := store.GetRedisJobStore(serviceContext, cfg)
	redisDocs := store.GetRedisDocumentStore(serviceContext, cfg)
	var jobStore jobModel.JobStore = redisJobs
	var documentStore ocModel.DocumentStore = redisDocs
	if redisJobs == nil || redisDocs == nil {
		logger.Error("Redis stores are offline, using in-memory registries")
		jobStore = store.InitInMemoryJobStore()
		documentStore = store.InitInMemoryDocumentStore()
	}
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
		DocumentStore:     documentStore,
	})
	logger.Info("Starting job service")

	objects, err := objectStore.New(serviceContext, cfg)
	if err != nil {
		logger.Error("Object store failed to initialize", "error", err)
		os.Exit(2)
	}

	vectors, err := qdrantDB.New(serviceContext, cfg)
	if err != nil {
		logger.Error("Vector store failed to initialize", "error", err)
		os.Exit(2)
	}

	embedder, err := googleEmbedding.New(serviceContext, cfg.EmbedderModel, cfg.EmbedderAPIKey, cfg.EmbedderDim)
	if err != nil {
		logger.Error("Embedding service failed to initialize", "error", err)
		os.Exit(2)
	}

	lexicalIndex, err := lexical.Open(cfg.LexicalIndexPath)
	if err != nil {
		logger.Error("Lexical index failed to open", "error", err, "path", cfg.LexicalIndexPath)
		os.Exit(2)
	}

	documentParser := parser.New(ocr.NewRunner(cfg.TesseractPath))
	documentChunker := chunker.New(embedding.NewTokenizer())

	searchService := search.New(embedder, vectors, lexicalIndex, objects, cfg.SearchAlpha)
	ingestService := ingest.NewOrchestrator(service, objects, documentParser, documentChunker,
		embedder, vectors, lexicalIndex, cfg)
	outgoingService := outgoing.NewOrchestrator(documentStore, objects,
		outgoing.NewParserExtractor(documentParser), outgoing.DefaultProviders(cfg), cfg)

	handlers.InitHandlers(ingestService, searchService, outgoingService, service)
	middleware.Configure(cfg)

	//init worker pool
	worker.InitServices(service, ingestService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
