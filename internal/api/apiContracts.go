package api

import (
	"time"

	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

// ErrorBody is the uniform error shape every handler returns.
type ErrorBody struct {
	Kind      string `json:"kind" example:"input"`
	Message   string `json:"message" example:"manifest.doc_no is required"`
	Retryable bool   `json:"retryable" example:"false"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// requests---------------------

type UploadArchiveRequest struct {
	Manifest    docModel.Manifest `json:"manifest"`
	ArchivePath string            `json:"archive_path" example:"s3://plantdex/archives/a1.zip"`
	ArchiveSize int64             `json:"archive_size" example:"1048576"`
	ArchiveHash string            `json:"archive_hash" example:"9f86d081884c7d65..."`
}

type SearchRequest struct {
	Query         string        `json:"query" validate:"required"`
	ProjectID     string        `json:"project_id,omitempty"`
	ObjectID      string        `json:"object_id,omitempty"`
	Discipline    string        `json:"discipline,omitempty"`
	DocType       string        `json:"doc_type,omitempty"`
	Language      string        `json:"language,omitempty"`
	Limit         int           `json:"limit,omitempty"`
	Kinds         []string      `json:"kinds,omitempty"`
	Roles         []string      `json:"roles,omitempty"`
	WithSourceURL bool          `json:"with_source_url,omitempty"`
	Filters       SearchFilters `json:"filters,omitempty"`
}

// SearchFilters carries the less common payload constraints.
type SearchFilters struct {
	DocNo           string                  `json:"doc_no,omitempty"`
	Rev             string                  `json:"rev,omitempty"`
	Confidentiality string                  `json:"confidentiality,omitempty"`
	TagsAny         []string                `json:"tags_any,omitempty"`
	Numeric         map[string]NumericRange `json:"numeric,omitempty"`
}

type NumericRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type AnalogSearchRequest struct {
	Description   string             `json:"description,omitempty"`
	EquipmentType string             `json:"equipment_type" validate:"required"`
	Parameters    map[string]float64 `json:"parameters,omitempty"`
	Discipline    string             `json:"discipline,omitempty"`
	Vendor        string             `json:"vendor,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	Roles         []string           `json:"roles,omitempty"`
}

type CheckTextRequest struct {
	Text string `json:"text" validate:"required"`
}

// responses---------------------

type InitJobResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status" example:"accepted"`
	StatusURL string `json:"status_url" example:"jobs/01J0..."`
}

type JobResponse struct {
	JobID       string        `json:"job_id"`
	ProjectID   string        `json:"project_id"`
	ObjectID    string        `json:"object_id"`
	State       string        `json:"state"`
	CurrentStep string        `json:"current_step"`
	Files       FileProgress  `json:"files"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Error       *JobErrorBody `json:"error,omitempty"`
}

type FileProgress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type JobErrorBody struct {
	Cause   string `json:"cause"`
	Message string `json:"message"`
	Retry   bool   `json:"can_retry"`
}

type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type SearchHit struct {
	ChunkID   string           `json:"chunk_id"`
	Content   string           `json:"content"`
	Score     float64          `json:"score"`
	Payload   docModel.Payload `json:"payload"`
	SourceURL string           `json:"source_url,omitempty"`
}

type SearchResponse struct {
	Results []SearchHit `json:"results"`
}

type AnalogHit struct {
	EquipmentID     string             `json:"equipment_id"`
	EquipmentType   string             `json:"equipment_type"`
	Parameters      map[string]float64 `json:"parameters"`
	SimilarityScore float64            `json:"similarity_score"`
	SourceDocuments []string           `json:"source_documents"`
	Vendor          string             `json:"vendor,omitempty"`
	ProjectContext  string             `json:"project_context"`
}

type AnalogSearchResponse struct {
	Results []AnalogHit `json:"results"`
}

type CollectionBody struct {
	Name   string `json:"name"`
	Dim    uint64 `json:"dim"`
	Points uint64 `json:"points"`
}

type CollectionsResponse struct {
	Collections []CollectionBody `json:"collections"`
}

type ReindexResponse struct {
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
}

type WithdrawResponse struct {
	DocNo string `json:"doc_no"`
}

type DocumentResponse struct {
	DocumentID string          `json:"document_id"`
	FileName   string          `json:"file_name"`
	Status     string          `json:"status"`
	Report     *ocModel.Report `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
