package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/data/redisStore"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

const jobKeyPrefix = "ingest_job:"

type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisJobStore(ctx context.Context, cfg config.Settings) *RedisJobStore {
	backing := redisStore.GetRedisStore(ctx, config.RedisJobStoreDB, cfg.RedisAddr, cfg.RedisPassword)
	if backing == nil {
		return nil
	}
	return &RedisJobStore{
		store:  backing,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.IngestJob) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "job Id", job.JobID)
	log.Debug("saving job")
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, jobKeyPrefix+job.JobID, data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis")
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobID string) (jobModel.IngestJob, bool) {
	var job jobModel.IngestJob
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "job Id", jobID)
	log.Debug("getting job")
	val, err := s.store.Get(ctx, jobKeyPrefix+jobID)
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("Failed to read job", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("Failed to unmarshal job", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobKeyPrefix+jobID); err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID, "error", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId:", jobID)
}

func (s *RedisJobStore) ListJobs(ctx context.Context, filter jobModel.ListFilter) []jobModel.IngestJob {
	keys, err := s.store.ScanKeys(ctx, jobKeyPrefix+"*")
	if err != nil {
		s.logger.Error("Failed to scan jobs", "error", err)
		return nil
	}
	values, err := s.store.MGet(ctx, keys...)
	if err != nil {
		s.logger.Error("Failed to fetch jobs", "error", err)
		return nil
	}

	var jobs []jobModel.IngestJob
	for _, val := range values {
		if val == "" {
			continue
		}
		var job jobModel.IngestJob
		if err := json.Unmarshal([]byte(val), &job); err != nil {
			continue
		}
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

func matchesListFilter(job jobModel.IngestJob, filter jobModel.ListFilter) bool {
	if filter.ProjectID != "" && job.Manifest.ProjectID != filter.ProjectID {
		return false
	}
	if filter.State != "" && job.State != filter.State {
		return false
	}
	return true
}

// ULID job IDs sort by creation time, so newest-first is a plain reverse
// lexicographic sort.
func sortJobsNewestFirst(jobs []jobModel.IngestJob) {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].JobID > jobs[j].JobID })
}

func TestJobStore(store *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
