package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/parser/ocr"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

// Parser turns one source file into a ParsedDocument. Dispatch is by mime;
// each format owns a fallback ladder that only errors upward when every rung
// has failed.
type Parser struct {
	ocrRunner ocr.Runner
	logger    *logger_i.Logger
}

func New(ocrRunner ocr.Runner) *Parser {
	return &Parser{
		ocrRunner: ocrRunner,
		logger:    logger_i.NewLogger("Parser"),
	}
}

// MimeForPath maps a file extension to the mime key the dispatcher uses.
// Unknown extensions return "".
func MimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".ifc":
		return "model/ifc"
	case ".rtf", ".odt":
		return "application/rtf"
	default:
		return ""
	}
}

// Parse reads the file and dispatches on mime. The returned document always
// carries source hash, inferred doc number/revision and a doc type; its
// extraction method records which ladder rung produced the text.
func (p *Parser) Parse(ctx context.Context, path string, mime string) (*docModel.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.KindPerFile, "reading source file", err)
	}
	sum := sha256.Sum256(data)

	doc := &docModel.ParsedDocument{
		SourcePath: path,
		SourceHash: hex.EncodeToString(sum[:]),
		Mime:       mime,
	}
	doc.DocNo, doc.Rev = inferDocNoRev(path)
	doc.DocType = classifyDocType(path, mime)

	switch mime {
	case "application/pdf":
		err = p.parsePDF(ctx, path, doc)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		err = p.parseDOCX(path, doc)
	case "application/rtf":
		err = p.parseWithCat(path, doc)
	case "text/plain":
		err = parsePlainText(data, doc)
	case "application/json":
		err = parseJSON(data, doc)
	case "model/ifc":
		err = parseIFC(data, doc)
	default:
		return nil, faults.Input("unknown mime %q for %s", mime, filepath.Base(path))
	}
	if err != nil {
		doc.ExtractionMethod = docModel.ExtractFailed
		return nil, err
	}

	doc.PageCount = len(doc.Pages)
	p.classifyDrawingPages(doc)
	return doc, nil
}

var docNoRevPattern = regexp.MustCompile(`(?i)^(.+?)[_\-. ]rev[_\-. ]?([A-Za-z0-9]+)$`)

// inferDocNoRev pulls "PLX-100-P01" and "B" out of names like
// "PLX-100-P01_revB.pdf". Without a revision marker the stem is the doc
// number and the revision defaults to "0".
func inferDocNoRev(path string) (docNo, rev string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := docNoRevPattern.FindStringSubmatch(stem); m != nil {
		return m[1], strings.ToUpper(m[2])
	}
	return stem, "0"
}

func classifyDocType(path, mime string) docModel.DocType {
	if mime == "model/ifc" {
		return docModel.DocTypeIFC
	}
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "pfd"):
		return docModel.DocTypePFD
	case strings.Contains(name, "pid") || strings.Contains(name, "p&id"):
		return docModel.DocTypePID
	case strings.Contains(name, "bom"):
		return docModel.DocTypeBOM
	case strings.Contains(name, "boq"):
		return docModel.DocTypeBOQ
	case strings.Contains(name, "spec"):
		return docModel.DocTypeSpec
	case strings.Contains(name, "dwg") || strings.Contains(name, "drawing"):
		return docModel.DocTypeDrawing
	case strings.Contains(name, "manual"):
		return docModel.DocTypeManual
	default:
		return docModel.DocTypeReport
	}
}

// drawingTextCeiling is the page text length below which a page of a
// drawing-type document counts as a drawing page.
const drawingTextCeiling = 50

func (p *Parser) classifyDrawingPages(doc *docModel.ParsedDocument) {
	switch doc.DocType {
	case docModel.DocTypePFD, docModel.DocTypePID, docModel.DocTypeDrawing:
	default:
		return
	}
	for i, text := range doc.Pages {
		if len(strings.TrimSpace(text)) <= drawingTextCeiling {
			doc.DrawingPages = append(doc.DrawingPages, i+1)
		}
	}
}

func pageOrEmpty(pages []string, n int) string {
	if n < len(pages) {
		return pages[n]
	}
	return ""
}

func anyNonEmpty(pages []string) bool {
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			return true
		}
	}
	return false
}

func perFile(stage string, err error) error {
	return faults.Wrap(faults.KindPerFile, fmt.Sprintf("%s failed", stage), err)
}
