package job

import (
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

// Service owns the job queue and both registries. JobChannel carries
// accepted ingest jobs to the worker pool; DispatcherChannel nudges the
// dispatcher to grow the pool when the queue backs up.
type Service struct {
	JobChannel        chan jobModel.IngestJob
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	DocumentStore     ocModel.DocumentStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.IngestJob
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	DocumentStore     ocModel.DocumentStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		DocumentStore:     cfg.DocumentStore,
	}
}

// QueueSaturated reports whether the buffered queue has no room for
// another job; the admission check refuses uploads instead of letting
// them time out in the queue.
func (s *Service) QueueSaturated() bool {
	return len(s.JobChannel) >= cap(s.JobChannel)
}
