package outgoing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
	"github.com/plantdex/plantdex/internal/metrics"
	"github.com/plantdex/plantdex/internal/objectStore"
	"github.com/plantdex/plantdex/internal/outgoing/checks"
	"github.com/plantdex/plantdex/internal/parser"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

const outgoingPrefix = "outgoing/"

// TextExtractor narrows the ingest parser to what document control needs.
type TextExtractor interface {
	Parse(ctx context.Context, path string, mime string) (text string, err error)
}

// parserExtractor adapts the ingest parser: outgoing control wants plain
// text, not typed chunks.
type parserExtractor struct {
	parser *parser.Parser
}

func NewParserExtractor(p *parser.Parser) TextExtractor {
	return &parserExtractor{parser: p}
}

func (e *parserExtractor) Parse(ctx context.Context, path string, mime string) (string, error) {
	doc, err := e.parser.Parse(ctx, path, mime)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(doc.Pages, "\n\n")), nil
}

// Orchestrator runs the outgoing document control flow: store the upload,
// extract its text, run every available check in parallel, aggregate a
// verdict.
type Orchestrator struct {
	documents ocModel.DocumentStore
	objects   objectStore.Store
	extractor TextExtractor
	providers []checks.Provider
	cfg       config.Settings
	logger    *logger_i.Logger
}

func NewOrchestrator(documents ocModel.DocumentStore, objects objectStore.Store,
	extractor TextExtractor, providers []checks.Provider, cfg config.Settings) *Orchestrator {
	return &Orchestrator{
		documents: documents,
		objects:   objects,
		extractor: extractor,
		providers: providers,
		cfg:       cfg,
		logger:    logger_i.NewLogger("OutgoingControl"),
	}
}

// DefaultProviders assembles the standard check set with configured
// weights.
func DefaultProviders(cfg config.Settings) []checks.Provider {
	return []checks.Provider{
		checks.NewSpellProvider(cfg.CheckWeights["spell"]),
		checks.NewStyleProvider(cfg.CheckWeights["style"]),
		checks.NewEthicsProvider(cfg.EthicsAPIKey, cfg.EthicsModel, cfg.CheckWeights["ethics"]),
		checks.NewTerminologyProvider(cfg.CheckWeights["terminology"]),
	}
}

// Submit stores an uploaded document and registers it in the received
// state. Processing starts separately.
func (o *Orchestrator) Submit(ctx context.Context, fileName string, content []byte) (ocModel.Document, error) {
	if len(content) == 0 {
		return ocModel.Document{}, faults.Input("empty document upload")
	}
	if fileName == "" {
		fileName = "document"
	}

	now := time.Now().UTC()
	doc := ocModel.Document{
		DocumentID: ocModel.NewDocumentID(),
		FileName:   filepath.Base(fileName),
		State:      ocModel.StateReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	objectKey := outgoingPrefix + doc.DocumentID + "/" + doc.FileName
	if _, err := o.objects.Put(ctx, objectKey, content); err != nil {
		return ocModel.Document{}, faults.Wrap(faults.KindTransient, "store outgoing document", err)
	}
	doc.StoredPath = objectKey

	if err := o.documents.SaveDocument(ctx, doc); err != nil {
		return ocModel.Document{}, err
	}
	o.logger.Info("Outgoing document received", "documentId", doc.DocumentID, "fileName", doc.FileName)
	return doc, nil
}

// Get returns the document with its current state and report.
func (o *Orchestrator) Get(ctx context.Context, documentID string) (ocModel.Document, bool) {
	return o.documents.GetDocument(ctx, documentID)
}

// Process drives a submitted document through extraction, checks and
// verdict. Re-processing a terminal document starts the flow over.
func (o *Orchestrator) Process(ctx context.Context, documentID string) (ocModel.Document, error) {
	doc, ok := o.documents.GetDocument(ctx, documentID)
	if !ok {
		return ocModel.Document{}, faults.Input("unknown document %q", documentID)
	}
	if doc.State == ocModel.StateExtracting || doc.State == ocModel.StateChecking ||
		doc.State == ocModel.StateAggregating {
		return doc, faults.Input("document %q is already being processed", documentID)
	}

	doc.Report = nil
	doc.Error = ""
	o.setState(ctx, &doc, ocModel.StateExtracting)

	text, err := o.extractText(ctx, doc)
	if err != nil {
		doc.Error = err.Error()
		o.setState(ctx, &doc, ocModel.StateFailed)
		metrics.CountVerdict("failed")
		return doc, err
	}
	doc.Text = text

	return o.check(ctx, doc)
}

// CheckText runs the full check set over raw text without a stored
// document, for the synchronous check endpoints.
func (o *Orchestrator) CheckText(ctx context.Context, text string) (*ocModel.Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, faults.Input("empty text")
	}
	report := o.runChecks(ctx, text)
	metrics.CountVerdict(string(report.Decision))
	return report, nil
}

// CheckOne runs a single named provider over raw text.
func (o *Orchestrator) CheckOne(ctx context.Context, name, text string) (ocModel.CheckResult, error) {
	if strings.TrimSpace(text) == "" {
		return ocModel.CheckResult{}, faults.Input("empty text")
	}
	for _, p := range o.providers {
		if p.Name() != name {
			continue
		}
		if !p.Available() {
			return ocModel.CheckResult{Name: name, Skipped: true}, nil
		}
		cctx, cancel := context.WithTimeout(ctx, config.CheckTimeout)
		defer cancel()
		return p.Check(cctx, text), nil
	}
	return ocModel.CheckResult{}, faults.Input("unknown check %q", name)
}

func (o *Orchestrator) check(ctx context.Context, doc ocModel.Document) (ocModel.Document, error) {
	if strings.TrimSpace(doc.Text) == "" {
		doc.Error = "document contains no extractable text"
		o.setState(ctx, &doc, ocModel.StateFailed)
		metrics.CountVerdict("failed")
		return doc, faults.New(faults.KindPerFile, doc.Error)
	}

	o.setState(ctx, &doc, ocModel.StateChecking)
	report := o.runChecks(ctx, doc.Text)

	o.setState(ctx, &doc, ocModel.StateAggregating)
	doc.Report = report

	switch report.Decision {
	case ocModel.DecisionApproved:
		o.setState(ctx, &doc, ocModel.StateApproved)
	case ocModel.DecisionRejected:
		o.setState(ctx, &doc, ocModel.StateRejected)
	default:
		o.setState(ctx, &doc, ocModel.StateNeedsRevision)
	}
	metrics.CountVerdict(string(report.Decision))
	o.logger.Info("Outgoing document checked",
		"documentId", doc.DocumentID, "score", report.OverallScore, "decision", report.Decision)
	return doc, nil
}

// runChecks fans the available providers out in parallel and aggregates
// their weighted verdict.
func (o *Orchestrator) runChecks(ctx context.Context, text string) *ocModel.Report {
	results := make([]ocModel.CheckResult, len(o.providers))
	var wg sync.WaitGroup
	for i, p := range o.providers {
		if !p.Available() {
			results[i] = ocModel.CheckResult{Name: p.Name(), Skipped: true}
			continue
		}
		wg.Add(1)
		go func(i int, p checks.Provider) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, config.CheckTimeout)
			defer cancel()
			results[i] = p.Check(cctx, text)
		}(i, p)
	}
	wg.Wait()
	return o.aggregate(results)
}

// aggregate computes the weighted mean over the providers that ran and
// applies the decision thresholds. A critical finding caps the verdict at
// rejection regardless of score.
func (o *Orchestrator) aggregate(results []ocModel.CheckResult) *ocModel.Report {
	report := &ocModel.Report{Checks: results, CheckedAt: time.Now().UTC()}

	var weighted, totalWeight float64
	critical := false
	for _, r := range results {
		if r.Skipped {
			continue
		}
		weight := o.weightFor(r.Name)
		weighted += r.Score * weight
		totalWeight += weight
		if r.Critical {
			critical = true
		}
	}
	if totalWeight > 0 {
		report.OverallScore = weighted / totalWeight
	}

	switch {
	case critical:
		report.Decision = ocModel.DecisionRejected
	case report.OverallScore >= o.cfg.ApproveThreshold:
		report.Decision = ocModel.DecisionApproved
	case report.OverallScore < o.cfg.RejectThreshold:
		report.Decision = ocModel.DecisionRejected
	default:
		report.Decision = ocModel.DecisionNeedsRevision
	}
	return report
}

func (o *Orchestrator) weightFor(name string) float64 {
	for _, p := range o.providers {
		if p.Name() == name {
			return p.Weight()
		}
	}
	return 0
}

// extractText fetches the stored object into scratch space and runs the
// parser over it.
func (o *Orchestrator) extractText(ctx context.Context, doc ocModel.Document) (string, error) {
	mime := parser.MimeForPath(doc.FileName)
	if mime == "" {
		return "", faults.Input("unsupported document type %q", filepath.Ext(doc.FileName))
	}

	data, err := o.objects.Get(ctx, doc.StoredPath)
	if err != nil {
		return "", faults.Wrap(faults.KindTransient, "fetch outgoing document", err)
	}

	scratch := filepath.Join(os.TempDir(), config.ScratchDirName, "outgoing")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	local := filepath.Join(scratch, doc.DocumentID+filepath.Ext(doc.FileName))
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	defer os.Remove(local)

	return o.extractor.Parse(ctx, local, mime)
}

func (o *Orchestrator) setState(ctx context.Context, doc *ocModel.Document, state ocModel.DocState) {
	doc.State = state
	doc.UpdatedAt = time.Now().UTC()
	if err := o.documents.SaveDocument(ctx, *doc); err != nil {
		o.logger.Error("Failed to persist document state",
			"documentId", doc.DocumentID, "state", state, "error", err)
	}
}
