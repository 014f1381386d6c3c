package adapter

import (
	"net/http"
	"testing"
	"time"

	"github.com/plantdex/plantdex/internal/api"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
)

func TestToJobResponse(t *testing.T) {
	created := time.Now()
	ingestJob := jobModel.IngestJob{
		JobID: "01J0TEST",
		Manifest: docModel.Manifest{
			ProjectID: "proj-1",
			ObjectID:  "obj-1",
		},
		State:       jobModel.JobStateFailed,
		CurrentStep: jobModel.StepError,
		Files:       jobModel.FileCounters{Total: 3, Processed: 1, Failed: 2},
		CreatedAt:   created,
		Error:       &jobModel.JobError{Cause: jobModel.CauseUnpack, Message: "bad zip", Retry: false},
	}

	resp := ToJobResponse(ingestJob)
	if resp.JobID != "01J0TEST" || resp.ProjectID != "proj-1" || resp.ObjectID != "obj-1" {
		t.Errorf("identity fields = %+v", resp)
	}
	if resp.State != "failed" || resp.CurrentStep != "Error" {
		t.Errorf("state = %s, step = %s", resp.State, resp.CurrentStep)
	}
	if resp.Files.Total != 3 || resp.Files.Processed != 1 || resp.Files.Failed != 2 {
		t.Errorf("files = %+v", resp.Files)
	}
	if resp.Error == nil || resp.Error.Cause != jobModel.CauseUnpack {
		t.Errorf("error body = %+v", resp.Error)
	}
	if !resp.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v", resp.CreatedAt)
	}
}

func TestToSearchFilter(t *testing.T) {
	min := 40.0
	max := 60.0
	req := api.SearchRequest{
		ProjectID:  "proj-1",
		ObjectID:   "obj-1",
		Discipline: "process",
		DocType:    "SPEC",
		Language:   "ru",
		Roles:      []string{"engineer"},
		Filters: api.SearchFilters{
			DocNo:           "PLX-100",
			Rev:             "B",
			Confidentiality: "internal",
			TagsAny:         []string{"pump"},
			Numeric:         map[string]api.NumericRange{"flow_rate": {Min: &min, Max: &max}},
		},
	}

	filter := ToSearchFilter(req)
	if filter.Discipline != docModel.DiscProcess {
		t.Errorf("discipline = %q", filter.Discipline)
	}
	if filter.DocType != docModel.DocTypeSpec {
		t.Errorf("doc type = %q", filter.DocType)
	}
	if filter.Confidentiality != docModel.ConfInternal {
		t.Errorf("confidentiality = %q", filter.Confidentiality)
	}
	if filter.ProjectID != "proj-1" || filter.ObjectID != "obj-1" ||
		filter.DocNo != "PLX-100" || filter.Rev != "B" || filter.Language != "ru" {
		t.Errorf("scalar fields = %+v", filter)
	}
	if len(filter.RolesAny) != 1 || filter.RolesAny[0] != "engineer" {
		t.Errorf("roles = %v", filter.RolesAny)
	}
	if len(filter.Numeric) != 1 || filter.Numeric[0].Key != "flow_rate" ||
		*filter.Numeric[0].Min != 40 || *filter.Numeric[0].Max != 60 {
		t.Errorf("numeric = %+v", filter.Numeric)
	}
}

func TestFaultResponse(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{faults.New(faults.KindInput, "bad"), http.StatusBadRequest},
		{faults.Integrity("dim mismatch"), http.StatusUnprocessableEntity},
		{faults.New(faults.KindTransient, "busy"), http.StatusServiceUnavailable},
		{faults.New(faults.KindFatal, "broken"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		body, status := FaultResponse(tc.err)
		if status != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, status, tc.status)
		}
		if body.Error.Message == "" {
			t.Errorf("%v: empty message", tc.err)
		}
	}
}
