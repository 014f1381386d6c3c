package ocModel

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

type DocState string
type Decision string
type Severity string

const (
	StateReceived      DocState = "received"
	StateExtracting    DocState = "extracting"
	StateChecking      DocState = "checking"
	StateAggregating   DocState = "aggregating"
	StateApproved      DocState = "approved"
	StateNeedsRevision DocState = "needs_revision"
	StateRejected      DocState = "rejected"
	StateFailed        DocState = "failed"

	DecisionApproved      Decision = "approved"
	DecisionNeedsRevision Decision = "needs_revision"
	DecisionRejected      Decision = "rejected"

	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue is one finding of one check, pointing at the offending fragment.
type Issue struct {
	Check       string   `json:"check"`
	Fragment    string   `json:"fragment,omitempty"`
	Position    int      `json:"position,omitempty"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CheckResult is the outcome of a single check over one text. Skipped marks
// a provider that was unavailable; skipped results carry no weight in the
// aggregate.
type CheckResult struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	ErrorsFound int     `json:"errors_found"`
	Critical    bool    `json:"critical"`
	Skipped     bool    `json:"skipped,omitempty"`
	Issues      []Issue `json:"issues,omitempty"`
}

// Report is the aggregated verdict over all checks.
type Report struct {
	OverallScore float64       `json:"overall_score"`
	Decision     Decision      `json:"final_decision"`
	Checks       []CheckResult `json:"checks"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// Document is one submission moving through the release-control state
// machine. Text is filled by the extracting phase; raw-text submissions
// arrive with Text already set and skip that phase.
type Document struct {
	DocumentID string    `json:"document_id"`
	FileName   string    `json:"file_name,omitempty"`
	StoredPath string    `json:"stored_path,omitempty"`
	State      DocState  `json:"state"`
	Text       string    `json:"text,omitempty"`
	Report     *Report   `json:"report,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the document can no longer change state.
func (d *Document) Terminal() bool {
	switch d.State {
	case StateApproved, StateNeedsRevision, StateRejected, StateFailed:
		return true
	}
	return false
}

func NewDocumentID() string {
	return ulid.Make().String()
}

type DocumentStore interface {
	GetDocument(ctx context.Context, documentID string) (Document, bool)
	SaveDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, documentID string)
}
