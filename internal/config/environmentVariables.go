package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//job worker pool
	MinWorkerCount    = 1
	MaxWorkerCount    = 4
	IdleWorkerTimeout = 60 * time.Second

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantPoolSize          = 2
	QdrantKeepAliveTimeout  = 30 * time.Second

	//object store
	DefaultArchiveBucket  = "plantdex-archives"
	StreamUploadThreshold = 8 << 20 //above this Put streams instead of buffering
	PresignTTL            = 15 * time.Minute

	//ingest
	DefaultRetryMax       = 3
	DefaultFileTimeout    = 5 * time.Minute
	EmbedBatchSize        = 64
	ScratchDirName        = "plantdex_scratch"
	MaxArchiveUploadBytes = 512 << 20

	//hybrid search
	DefaultSearchAlpha = 0.7
	MinDenseCandidates = 50

	//outgoing control
	DefaultApproveThreshold = 85.0
	DefaultRejectThreshold  = 50.0
	CheckTimeout            = 30 * time.Second

	//http pooling
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	RedisJobStoreDB      = 0
	RedisDocumentStoreDB = 1
	RedisJobStoreTTL     = 24 * time.Hour
	RedisDocStoreTTL     = 24 * time.Hour
)

// Settings carries everything read from the environment at startup.
// `os.Getenv` is not consulted anywhere else; components receive what they
// need at construction time.
type Settings struct {
	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreUseTLS    bool
	ArchiveBucket        string

	VectorStoreHost string
	VectorStorePort int
	VectorStoreTLS  bool

	EmbedderModel  string
	EmbedderAPIKey string
	EmbedderDim    int32

	EthicsModel  string
	EthicsAPIKey string

	IngestWorkers     int
	IngestRetryMax    int
	IngestFileTimeout time.Duration
	SearchAlpha       float64
	ApproveThreshold  float64
	RejectThreshold   float64
	CheckWeights      map[string]float64
	LexicalIndexPath  string
	TesseractPath     string
	RedisAddr         string
	RedisPassword     string
	AuthToken         string
	NoAuthBypass      bool
	ServerListenAddr  string
}

// Load reads the recognized environment variables, applying defaults where a
// variable is absent and failing on ones that are present but malformed.
// A local .env is honored in dev setups.
func Load() (Settings, error) {
	_ = godotenv.Load()

	s := Settings{
		ObjectStoreEndpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
		ObjectStoreAccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
		ObjectStoreSecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
		ObjectStoreUseTLS:    os.Getenv("OBJECT_STORE_USE_TLS") == "true",
		ArchiveBucket:        envOr("OBJECT_STORE_BUCKET", DefaultArchiveBucket),
		VectorStoreHost:      envOr("VECTOR_STORE_HOST", "127.0.0.1"),
		VectorStoreTLS:       os.Getenv("VECTOR_STORE_USE_TLS") == "true",
		EmbedderModel:        envOr("EMBEDDER_MODEL", "gemini-embedding-001"),
		EmbedderAPIKey:       os.Getenv("EMBEDDER_API_KEY"),
		EthicsModel:          envOr("OC_ETHICS_MODEL", "gpt-4o-mini"),
		EthicsAPIKey:         os.Getenv("OC_ETHICS_API_KEY"),
		LexicalIndexPath:     envOr("LEXICAL_INDEX_PATH", "plantdex_lexical.db"),
		TesseractPath:        envOr("OCR_TESSERACT", "tesseract"),
		RedisAddr:            envOr("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		AuthToken:            os.Getenv("API_AUTH_TOKEN"),
		NoAuthBypass:         os.Getenv("API_AUTH_BYPASS") == "true",
		ServerListenAddr:     envOr("LISTEN_ADDR", ServerListenAddr),
	}

	var err error
	if s.VectorStorePort, err = envInt("VECTOR_STORE_PORT", 6334); err != nil {
		return s, err
	}
	dim, err := envInt("EMBEDDER_DIM", 1536)
	if err != nil {
		return s, err
	}
	s.EmbedderDim = int32(dim)

	if s.IngestWorkers, err = envInt("INGEST_WORKERS", runtime.NumCPU()); err != nil {
		return s, err
	}
	if s.IngestRetryMax, err = envInt("INGEST_RETRY_MAX", DefaultRetryMax); err != nil {
		return s, err
	}
	timeoutSec, err := envInt("INGEST_FILE_TIMEOUT_SEC", int(DefaultFileTimeout/time.Second))
	if err != nil {
		return s, err
	}
	s.IngestFileTimeout = time.Duration(timeoutSec) * time.Second

	if s.SearchAlpha, err = envFloat("SEARCH_ALPHA", DefaultSearchAlpha); err != nil {
		return s, err
	}
	if s.ApproveThreshold, err = envFloat("OC_APPROVE_THRESHOLD", DefaultApproveThreshold); err != nil {
		return s, err
	}
	if s.RejectThreshold, err = envFloat("OC_REJECT_THRESHOLD", DefaultRejectThreshold); err != nil {
		return s, err
	}
	if s.CheckWeights, err = parseCheckWeights(os.Getenv("OC_CHECK_WEIGHTS")); err != nil {
		return s, err
	}

	if s.IngestWorkers < 1 {
		return s, fmt.Errorf("INGEST_WORKERS must be >= 1, got %d", s.IngestWorkers)
	}
	if s.SearchAlpha < 0 || s.SearchAlpha > 1 {
		return s, fmt.Errorf("SEARCH_ALPHA must be in [0,1], got %v", s.SearchAlpha)
	}
	if s.RejectThreshold > s.ApproveThreshold {
		return s, fmt.Errorf("OC_REJECT_THRESHOLD %v exceeds OC_APPROVE_THRESHOLD %v",
			s.RejectThreshold, s.ApproveThreshold)
	}
	if s.EmbedderDim <= 0 {
		return s, fmt.Errorf("EMBEDDER_DIM must be positive, got %d", s.EmbedderDim)
	}
	return s, nil
}

// parseCheckWeights parses "spell=0.3,style=0.2,ethics=0.3,terminology=0.2".
func parseCheckWeights(raw string) (map[string]float64, error) {
	weights := map[string]float64{
		"spell":       0.3,
		"style":       0.2,
		"ethics":      0.3,
		"terminology": 0.2,
	}
	if raw == "" {
		return weights, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, val, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, fmt.Errorf("OC_CHECK_WEIGHTS: bad pair %q", pair)
		}
		w, err := strconv.ParseFloat(val, 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("OC_CHECK_WEIGHTS: bad weight %q", pair)
		}
		weights[name] = w
	}
	return weights, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}
