package handlers

import (
	"sync"

	"github.com/plantdex/plantdex/internal/ingest"
	"github.com/plantdex/plantdex/internal/job"
	"github.com/plantdex/plantdex/internal/outgoing"
	"github.com/plantdex/plantdex/internal/search"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

var (
	handlerInstance *serviceHandler //private singleton
	once            sync.Once
	logH            *logger_i.Logger
)

type serviceHandler struct {
	ingest   *ingest.Orchestrator
	search   *search.Service
	outgoing *outgoing.Orchestrator
	jobs     *job.Service
}

// InitHandlers wires the HTTP layer to the domain services. Must run before
// the server starts accepting.
func InitHandlers(ingestSvc *ingest.Orchestrator, searchSvc *search.Service,
	outgoingSvc *outgoing.Orchestrator, jobSvc *job.Service) {
	once.Do(func() {
		handlerInstance = &serviceHandler{
			ingest:   ingestSvc,
			search:   searchSvc,
			outgoing: outgoingSvc,
			jobs:     jobSvc,
		}
		logH = logger_i.NewLogger("Handlers")
		logH.Info("Starting request handlers")
	})
}
