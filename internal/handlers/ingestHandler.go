package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/plantdex/plantdex/internal/adapter"
	"github.com/plantdex/plantdex/internal/adapter/utils"
	"github.com/plantdex/plantdex/internal/api"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/ingest"
)

// UploadArchiveHandler godoc
// @Summary      Submit a document archive for ingestion
// @Description  Accepts a manifest plus the object-store location of an uploaded archive and queues an ingest job.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.UploadArchiveRequest  true  "Manifest and archive location"
// @Success      202      {object}  api.InitJobResponse       "Job accepted"
// @Failure      400      {object}  api.ErrorResponse         "Invalid manifest or archive reference"
// @Failure      503      {object}  api.ErrorResponse         "Queue saturated or storage degraded"
// @Router       /archives/upload [post]
func UploadArchiveHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logH.Warn("Invalid context by request", "remote", r.RemoteAddr)
		return
	}

	var requestData api.UploadArchiveRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logH.Warn("Bad archive upload request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	jobID, err := handlerInstance.ingest.Accept(r.Context(), ingest.ArchiveUploadRequest{
		Manifest:    requestData.Manifest,
		ArchivePath: requestData.ArchivePath,
		ArchiveSize: requestData.ArchiveSize,
		ArchiveHash: requestData.ArchiveHash,
	})
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(jobID))
}

// GetJobHandler godoc
// @Summary      Get ingest job status
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.ErrorResponse  "Job not found"
// @Router       /jobs/{id} [get]
func GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	jobID := utils.GetChiURLParam(r, "id")
	ingestJob, found := handlerInstance.jobs.JobStore.GetJob(r.Context(), jobID)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToJobResponse(ingestJob))
}

// ListJobsHandler godoc
// @Summary      List ingest jobs
// @Tags         Ingestion
// @Produce      json
// @Param        project_id  query     string  false  "Filter by project"
// @Param        status      query     string  false  "Filter by job state"
// @Param        limit       query     int     false  "Maximum number of jobs"
// @Success      200         {object}  api.JobListResponse
// @Router       /jobs [get]
func ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteErrorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	jobs := handlerInstance.jobs.JobStore.ListJobs(r.Context(), jobModel.ListFilter{
		ProjectID: r.URL.Query().Get("project_id"),
		State:     jobModel.JobState(r.URL.Query().Get("status")),
		Limit:     limit,
	})
	writeJsonResponse(w, http.StatusOK, adapter.ToJobListResponse(jobs))
}

// CancelJobHandler godoc
// @Summary      Cancel a running ingest job
// @Description  Cancellation lands at the next batch boundary; the job then reports failed with a cancelled cause.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      202  {object}  api.JobResponse
// @Failure      404  {object}  api.ErrorResponse  "Job not found"
// @Failure      409  {object}  api.ErrorResponse  "Job already terminal"
// @Router       /jobs/{id} [delete]
func CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	jobID := utils.GetChiURLParam(r, "id")
	ingestJob, found := handlerInstance.jobs.JobStore.GetJob(r.Context(), jobID)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "job not found")
		return
	}
	if ingestJob.Terminal() {
		WriteErrorResponse(w, http.StatusConflict, "job already finished")
		return
	}
	if !handlerInstance.ingest.Cancel(r.Context(), jobID) {
		WriteErrorResponse(w, http.StatusConflict, "job already finished")
		return
	}
	logH.Info("Job cancellation requested", "jobId", jobID, "traceId", traceID(r.Context()))
	if updated, found := handlerInstance.jobs.JobStore.GetJob(r.Context(), jobID); found {
		ingestJob = updated
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToJobResponse(ingestJob))
}

// CollectionsHandler godoc
// @Summary      List vector collections
// @Tags         Collections
// @Produce      json
// @Success      200  {object}  api.CollectionsResponse
// @Router       /collections [get]
func CollectionsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	collections, err := handlerInstance.ingest.Collections(r.Context())
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToCollectionsResponse(collections))
}

// ReindexHandler godoc
// @Summary      Re-embed a collection from the lexical index
// @Tags         Collections
// @Produce      json
// @Param        name  path      string  true  "Collection name"
// @Success      200   {object}  api.ReindexResponse
// @Failure      400   {object}  api.ErrorResponse
// @Router       /collections/{name}/reindex [post]
func ReindexHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	name := utils.GetChiURLParam(r, "name")
	count, err := handlerInstance.ingest.Reindex(r.Context(), name)
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ReindexResponse{Collection: name, Chunks: count})
}

// WithdrawHandler godoc
// @Summary      Withdraw a document from every collection
// @Description  Deletes all chunks of the document number from the vector store and the lexical index.
// @Tags         Collections
// @Produce      json
// @Param        doc_no  path      string  true  "Document number"
// @Success      200     {object}  api.WithdrawResponse
// @Router       /documents/by-doc/{doc_no} [delete]
func WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docNo := utils.GetChiURLParam(r, "doc_no")
	if docNo == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "doc_no is required")
		return
	}
	if err := handlerInstance.ingest.Withdraw(r.Context(), docNo); err != nil {
		writeFaultResponse(w, err)
		return
	}
	logH.Info("Document withdrawn", "docNo", docNo, "traceId", traceID(r.Context()))
	writeJsonResponse(w, http.StatusOK, api.WithdrawResponse{DocNo: docNo})
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logH.Error("Couldn't close the request body", "error", err)
	}
}
