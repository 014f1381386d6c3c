package store

import (
	"context"
	"sync"

	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type InMemoryJobStore struct {
	jobMutex *sync.RWMutex
	jobMap   map[string]jobModel.IngestJob
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex: new(sync.RWMutex),
		jobMap:   make(map[string]jobModel.IngestJob),
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.IngestJob) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	store.jobMap[job.JobID] = job
	inMemLogger.Debug("Saved job to store", "jobId", job.JobID)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobID string) (jobModel.IngestJob, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	result, found := store.jobMap[jobID]
	return result, found
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}

func (store *InMemoryJobStore) ListJobs(ctx context.Context, filter jobModel.ListFilter) []jobModel.IngestJob {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()

	var jobs []jobModel.IngestJob
	for _, job := range store.jobMap {
		if matchesListFilter(job, filter) {
			jobs = append(jobs, job)
		}
	}
	sortJobsNewestFirst(jobs)
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs
}
