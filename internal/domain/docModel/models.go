package docModel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type Phase string
type Confidentiality string
type Discipline string
type DocType string
type ExtractionMethod string
type ChunkKind string

const (
	PhasePD Phase = "PD"
	PhaseRD Phase = "RD"

	ConfPublic       Confidentiality = "public"
	ConfInternal     Confidentiality = "internal"
	ConfConfidential Confidentiality = "confidential"
	ConfSecret       Confidentiality = "secret"

	DiscProcess         Discipline = "process"
	DiscPiping          Discipline = "piping"
	DiscCivil           Discipline = "civil"
	DiscElectrical      Discipline = "electrical"
	DiscInstrumentation Discipline = "instrumentation"
	DiscHVAC            Discipline = "hvac"
	DiscProcurement     Discipline = "procurement"

	DocTypePFD     DocType = "PFD"
	DocTypePID     DocType = "P&ID"
	DocTypeSpec    DocType = "SPEC"
	DocTypeBOM     DocType = "BOM"
	DocTypeBOQ     DocType = "BOQ"
	DocTypeDrawing DocType = "DRAWING"
	DocTypeIFC     DocType = "IFC"
	DocTypeManual  DocType = "MANUAL"
	DocTypeReport  DocType = "REPORT"

	ExtractTextPrimary   ExtractionMethod = "text_primary"
	ExtractTextSecondary ExtractionMethod = "text_secondary"
	ExtractOCR           ExtractionMethod = "ocr"
	ExtractStructured    ExtractionMethod = "structured"
	ExtractFailed        ExtractionMethod = "failed"

	KindText    ChunkKind = "text"
	KindTable   ChunkKind = "table"
	KindDrawing ChunkKind = "drawing"
	KindIFC     ChunkKind = "ifc"
)

// DefaultSppID is the system-wide identifier placeholder used when a
// manifest does not carry one.
const DefaultSppID = "0000000000"

// Manifest is the project-wide metadata attached to an archive at ingest.
// Immutable after acceptance.
type Manifest struct {
	ProjectID         string          `json:"project_id"`
	ObjectID          string          `json:"object_id"`
	SppID             string          `json:"spp_id,omitempty"`
	Phase             Phase           `json:"phase"`
	Customer          string          `json:"customer,omitempty"`
	Languages         []string        `json:"languages,omitempty"`
	Confidentiality   Confidentiality `json:"confidentiality"`
	DefaultDiscipline Discipline      `json:"default_discipline"`
	IngestTime        time.Time       `json:"ingest_time,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	Permissions       []string        `json:"permissions,omitempty"`
}

// Validate rejects malformed manifests at the boundary so they never reach
// the pipeline.
func (m *Manifest) Validate() error {
	if m.ProjectID == "" {
		return fmt.Errorf("manifest: project_id is required")
	}
	if m.ObjectID == "" {
		return fmt.Errorf("manifest: object_id is required")
	}
	switch m.Phase {
	case PhasePD, PhaseRD:
	default:
		return fmt.Errorf("manifest: unknown phase %q", m.Phase)
	}
	switch m.Confidentiality {
	case ConfPublic, ConfInternal, ConfConfidential, ConfSecret:
	default:
		return fmt.Errorf("manifest: unknown confidentiality %q", m.Confidentiality)
	}
	switch m.DefaultDiscipline {
	case DiscProcess, DiscPiping, DiscCivil, DiscElectrical,
		DiscInstrumentation, DiscHVAC, DiscProcurement:
	default:
		return fmt.Errorf("manifest: unknown discipline %q", m.DefaultDiscipline)
	}
	return nil
}

// Language returns the manifest's primary language, defaulting to ru.
func (m *Manifest) Language() string {
	if len(m.Languages) > 0 {
		return m.Languages[0]
	}
	return "ru"
}

// EffectivePermissions returns the manifest roles, or, when none are named,
// restricts chunks to readers of the manifest's confidentiality class.
func (m *Manifest) EffectivePermissions() []string {
	if len(m.Permissions) > 0 {
		return m.Permissions
	}
	return []string{string(m.Confidentiality)}
}

// ParsedTable is one extracted table with its position in the source.
type ParsedTable struct {
	Page       int        `json:"page"`
	TableIndex int        `json:"table_index"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
}

// IFCEntity is one entity pulled out of an IFC STEP model.
type IFCEntity struct {
	Type       string            `json:"ifc_type"`
	GUID       string            `json:"ifc_guid"`
	Properties map[string]string `json:"properties"`
}

// ParsedDocument is the transient result of parsing one source file. It is
// consumed by the chunker and not persisted.
type ParsedDocument struct {
	SourcePath       string
	SourceHash       string
	Mime             string
	DocType          DocType
	DocNo            string
	Rev              string
	PageCount        int
	Pages            []string //ordered page texts, one entry per page
	Tables           []ParsedTable
	Entities         []IFCEntity
	DrawingPages     []int //pages classified as drawings
	DrawingText      map[int]string
	ExtractionMethod ExtractionMethod
}

// Payload is attached verbatim to every chunk in the vector store and is the
// sole source of truth for search-time filtering.
type Payload struct {
	ProjectID       string             `json:"project_id"`
	ObjectID        string             `json:"object_id"`
	SppID           string             `json:"spp_id"`
	Discipline      Discipline         `json:"discipline"`
	DocNo           string             `json:"doc_no"`
	Rev             string             `json:"rev"`
	Page            int                `json:"page,omitempty"`
	Section         string             `json:"section,omitempty"`
	Language        string             `json:"language"`
	SourcePath      string             `json:"source_path"`
	SourceHash      string             `json:"source_hash"`
	DocType         DocType            `json:"doc_type"`
	IssuedAt        string             `json:"issued_at,omitempty"`
	Vendor          string             `json:"vendor,omitempty"`
	Confidentiality Confidentiality    `json:"confidentiality"`
	Tags            []string           `json:"tags,omitempty"`
	Numeric         map[string]float64 `json:"numeric,omitempty"`
	Permissions     []string           `json:"permissions"`

	//trace fields
	DocID         string `json:"doc_id"`
	ChunkID       string `json:"chunk_id"`
	ParentChunkID string `json:"parent_chunk_id,omitempty"`
	IFCGUID       string `json:"ifc_guid,omitempty"`
	BOMRowID      string `json:"bom_row_id,omitempty"`

	// Extras keeps unknown keys round-tripping; writers may only add here,
	// never to the fields above.
	Extras map[string]any `json:"extras,omitempty"`
}

// Chunk is the smallest addressable unit of retrieval. The shared head is
// always populated; the variant tail depends on Kind.
type Chunk struct {
	ChunkID       string    `json:"chunk_id"`
	Kind          ChunkKind `json:"kind"`
	Content       string    `json:"content"`
	TokenCount    int       `json:"token_count"`
	Overlap       int       `json:"overlap"`
	ParentChunkID string    `json:"parent_chunk_id,omitempty"`
	Payload       Payload   `json:"payload"`

	//text
	Page    int    `json:"page,omitempty"`
	Section string `json:"section,omitempty"`

	//table
	RowHash string            `json:"row_hash,omitempty"`
	RowData map[string]string `json:"row_data,omitempty"`

	//drawing
	PreviewPath   string `json:"preview_path,omitempty"`
	ExtractedText string `json:"extracted_text,omitempty"`

	//ifc
	IFCType    string            `json:"ifc_type,omitempty"`
	IFCGUID    string            `json:"ifc_guid,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NewChunkID derives the stable chunk identity. It is a pure function of the
// logical locator so re-ingesting the same chunk upserts in place; content
// changes never move a chunk.
func NewChunkID(docNo, rev string, kind ChunkKind, locator string) string {
	sum := sha256.Sum256([]byte(docNo + "|" + rev + "|" + string(kind) + "|" + locator))
	return hex.EncodeToString(sum[:])
}

// CollectionFor picks the vector store collection for a chunk. Naming
// discipline is <domain>_<kind>_<model>, e.g. ae_text_m3 for
// archive-engineering text chunks under a multilingual embedding.
func CollectionFor(kind ChunkKind, modelTag string) string {
	return fmt.Sprintf("ae_%s_%s", kind, modelTag)
}
