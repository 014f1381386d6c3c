package adapter

import (
	"fmt"
	"net/http"

	"github.com/plantdex/plantdex/internal/api"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
	"github.com/plantdex/plantdex/internal/search"
	"github.com/plantdex/plantdex/internal/vectorStore"
)

func ToInitJobResponse(jobID string) api.InitJobResponse {
	return api.InitJobResponse{
		JobID:     jobID,
		Status:    "accepted",
		StatusURL: fmt.Sprintf("jobs/%s", jobID),
	}
}

func ToJobResponse(job jobModel.IngestJob) api.JobResponse {
	var errorPtr *api.JobErrorBody
	if job.Error != nil {
		errorPtr = &api.JobErrorBody{
			Cause:   job.Error.Cause,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}
	return api.JobResponse{
		JobID:       job.JobID,
		ProjectID:   job.Manifest.ProjectID,
		ObjectID:    job.Manifest.ObjectID,
		State:       string(job.State),
		CurrentStep: string(job.CurrentStep),
		Files: api.FileProgress{
			Total:     job.Files.Total,
			Processed: job.Files.Processed,
			Failed:    job.Files.Failed,
		},
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Error:       errorPtr,
	}
}

func ToJobListResponse(jobs []jobModel.IngestJob) api.JobListResponse {
	out := api.JobListResponse{Jobs: make([]api.JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, ToJobResponse(j))
	}
	return out
}

func ToSearchResponse(results []search.Result) api.SearchResponse {
	out := api.SearchResponse{Results: make([]api.SearchHit, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, api.SearchHit{
			ChunkID:   r.ChunkID,
			Content:   r.Content,
			Score:     r.Score,
			Payload:   r.Payload,
			SourceURL: r.SourceURL,
		})
	}
	return out
}

func ToAnalogSearchResponse(results []search.AnalogResult) api.AnalogSearchResponse {
	out := api.AnalogSearchResponse{Results: make([]api.AnalogHit, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, api.AnalogHit{
			EquipmentID:     r.EquipmentID,
			EquipmentType:   r.EquipmentType,
			Parameters:      r.Parameters,
			SimilarityScore: r.SimilarityScore,
			SourceDocuments: r.SourceDocuments,
			Vendor:          r.Vendor,
			ProjectContext:  r.ProjectContext,
		})
	}
	return out
}

func ToCollectionsResponse(collections []vectorStore.CollectionInfo) api.CollectionsResponse {
	out := api.CollectionsResponse{Collections: make([]api.CollectionBody, 0, len(collections))}
	for _, c := range collections {
		out.Collections = append(out.Collections, api.CollectionBody{
			Name:   c.Name,
			Dim:    c.Dim,
			Points: c.Points,
		})
	}
	return out
}

func ToDocumentResponse(doc ocModel.Document) api.DocumentResponse {
	return api.DocumentResponse{
		DocumentID: doc.DocumentID,
		FileName:   doc.FileName,
		Status:     string(doc.State),
		Report:     doc.Report,
		Error:      doc.Error,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// ToSearchFilter maps request fields onto the store filter.
func ToSearchFilter(req api.SearchRequest) vectorStore.Filter {
	filter := vectorStore.Filter{
		ProjectID:       req.ProjectID,
		ObjectID:        req.ObjectID,
		Discipline:      docModel.Discipline(req.Discipline),
		DocType:         docModel.DocType(req.DocType),
		Language:        req.Language,
		DocNo:           req.Filters.DocNo,
		Rev:             req.Filters.Rev,
		Confidentiality: docModel.Confidentiality(req.Filters.Confidentiality),
		TagsAny:         req.Filters.TagsAny,
		RolesAny:        req.Roles,
	}
	for key, r := range req.Filters.Numeric {
		filter.Numeric = append(filter.Numeric, vectorStore.NumericRange{
			Key: key,
			Min: r.Min,
			Max: r.Max,
		})
	}
	return filter
}

// FaultResponse maps an error onto the wire shape and an HTTP status.
func FaultResponse(err error) (api.ErrorResponse, int) {
	kind := faults.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case faults.KindInput:
		status = http.StatusBadRequest
	case faults.KindIntegrity, faults.KindPerFile:
		status = http.StatusUnprocessableEntity
	case faults.KindTransient:
		status = http.StatusServiceUnavailable
	}
	return api.ErrorResponse{Error: api.ErrorBody{
		Kind:      string(kind),
		Message:   err.Error(),
		Retryable: faults.IsRetryable(err),
	}}, status
}

func BadRequest(message string) (api.ErrorResponse, int) {
	return api.ErrorResponse{Error: api.ErrorBody{
		Kind:    string(faults.KindInput),
		Message: message,
	}}, http.StatusBadRequest
}
