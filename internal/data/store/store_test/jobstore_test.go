package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/data/redisStore"
	"github.com/plantdex/plantdex/internal/data/store"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
)

func newJobStore(t *testing.T) (*store.RedisJobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.TestJobStore(redisStore.NewTestStore(client)), mr
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	jobStore, mr := newJobStore(t)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := jobModel.NewJobID()

	testJob := jobModel.IngestJob{
		JobID: jobID,
		State: jobModel.JobStateProcessing,
		Manifest: docModel.Manifest{
			ProjectID: "PRJ-1",
		},
		Files: jobModel.FileCounters{Total: 3, Processed: 1},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrieved, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}

		if retrieved.Manifest.ProjectID != testJob.Manifest.ProjectID {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrieved.Manifest.ProjectID, testJob.Manifest.ProjectID)
		}
		if retrieved.Files != testJob.Files {
			t.Errorf("Counters mismatch! Got %+v, want %+v", retrieved.Files, testJob.Files)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)

		if mr.Exists("ingest_job:" + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_List(t *testing.T) {
	jobStore, _ := newJobStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "list-trace")

	jobs := []jobModel.IngestJob{
		{JobID: jobModel.NewJobID(), State: jobModel.JobStateCompleted, Manifest: docModel.Manifest{ProjectID: "PRJ-1"}},
		{JobID: jobModel.NewJobID(), State: jobModel.JobStateProcessing, Manifest: docModel.Manifest{ProjectID: "PRJ-1"}},
		{JobID: jobModel.NewJobID(), State: jobModel.JobStateCompleted, Manifest: docModel.Manifest{ProjectID: "PRJ-2"}},
	}
	for _, job := range jobs {
		if err := jobStore.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	t.Run("filter by project", func(t *testing.T) {
		got := jobStore.ListJobs(ctx, jobModel.ListFilter{ProjectID: "PRJ-1"})
		if len(got) != 2 {
			t.Fatalf("expected 2 jobs for PRJ-1, got %d", len(got))
		}
	})

	t.Run("filter by state", func(t *testing.T) {
		got := jobStore.ListJobs(ctx, jobModel.ListFilter{State: jobModel.JobStateCompleted})
		if len(got) != 2 {
			t.Fatalf("expected 2 completed jobs, got %d", len(got))
		}
	})

	t.Run("newest first with limit", func(t *testing.T) {
		got := jobStore.ListJobs(ctx, jobModel.ListFilter{Limit: 1})
		if len(got) != 1 {
			t.Fatalf("expected 1 job, got %d", len(got))
		}
		// ULIDs are monotone, so the last saved job must win
		if got[0].JobID != jobs[2].JobID {
			t.Errorf("expected newest job %s first, got %s", jobs[2].JobID, got[0].JobID)
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	jobStore, _ := newJobStore(t)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.IngestJob{JobID: "race-job"}

	const workers = 50
	for i := 0; i < workers; i++ {
		go func() {
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
}
