package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/plantdex/plantdex/internal/adapter/utils"
	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/middleware"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	//ingestion
	r.Router.Post("/archives/upload", middleware.UploadArchiveHandler)
	r.Router.Get("/jobs", middleware.ListJobsHandler)
	r.Router.Get("/jobs/{id}", middleware.GetJobHandler)
	r.Router.Delete("/jobs/{id}", middleware.CancelJobHandler)

	//search
	r.Router.Post("/search", middleware.SearchHandler)
	r.Router.Post("/search/analogs", middleware.AnalogSearchHandler)

	//collections
	r.Router.Get("/collections", middleware.CollectionsHandler)
	r.Router.Post("/collections/{name}/reindex", middleware.ReindexHandler)
	r.Router.Delete("/documents/by-doc/{doc_no}", middleware.WithdrawHandler)

	//outgoing control
	r.Router.Post("/documents/", middleware.UploadDocumentHandler)
	r.Router.Post("/documents/{id}/process", middleware.ProcessDocumentHandler)
	r.Router.Get("/documents/{id}", middleware.GetDocumentHandler)
	r.Router.Post("/spell-check", middleware.SpellCheckHandler)
	r.Router.Post("/style-analysis", middleware.StyleAnalysisHandler)
	r.Router.Post("/ethics-check", middleware.EthicsCheckHandler)
	r.Router.Post("/terminology-check", middleware.TerminologyCheckHandler)
	r.Router.Post("/final-review", middleware.FinalReviewHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully: %s", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force shut down")
		os.Exit(1)
	}
}
