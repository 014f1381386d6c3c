package parser

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	dslipak "github.com/dslipak/pdf"
	ledong "github.com/ledongthuc/pdf"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

// parsePDF walks the extraction ladder: structured text first, a second
// extractor with a different failure mode next, OCR last. Tables come only
// from the first rung. A page that yields nothing stays as an empty entry;
// the document fails only when every rung fails.
func (p *Parser) parsePDF(ctx context.Context, path string, doc *docModel.ParsedDocument) error {
	pages, tables, primaryErr := extractPDFPrimary(path)
	if primaryErr == nil && anyNonEmpty(pages) {
		doc.Pages = pages
		doc.Tables = tables
		doc.ExtractionMethod = docModel.ExtractTextPrimary
		return nil
	}

	secondary, secondaryErr := extractPDFSecondary(path)
	if secondaryErr == nil && anyNonEmpty(secondary) {
		doc.Pages = secondary
		doc.ExtractionMethod = docModel.ExtractTextSecondary
		return nil
	}

	if p.ocrRunner != nil && p.ocrRunner.Available() {
		ocrPages, ocrErr := p.ocrRunner.RecognizePDF(ctx, path)
		if ocrErr == nil && anyNonEmpty(ocrPages) {
			doc.Pages = ocrPages
			doc.DrawingText = map[int]string{}
			for i, text := range ocrPages {
				if text != "" {
					doc.DrawingText[i+1] = text
				}
			}
			doc.ExtractionMethod = docModel.ExtractOCR
			return nil
		}
		if ocrErr != nil {
			p.logger.Warn("OCR rung failed", "path", path, "error", ocrErr)
		}
	}

	// Keep the page skeleton when any rung at least counted pages; empty
	// entries are legal, total failure is not.
	if primaryErr == nil && pages != nil {
		doc.Pages = pages
		doc.Tables = tables
		doc.ExtractionMethod = docModel.ExtractTextPrimary
		return nil
	}
	if secondaryErr == nil && secondary != nil {
		doc.Pages = secondary
		doc.ExtractionMethod = docModel.ExtractTextSecondary
		return nil
	}
	return perFile("pdf extraction", errors.Join(primaryErr, secondaryErr))
}

func extractPDFPrimary(path string) ([]string, []docModel.ParsedTable, error) {
	f, err := dslipak.Open(path)
	if err != nil {
		return nil, nil, err
	}

	numPages := f.NumPage()
	pages := make([]string, 0, numPages)
	var tables []docModel.ParsedTable

	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		content, err := protectExtract(func() (string, error) {
			return page.GetPlainText(nil)
		})
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, content)

		tables = append(tables, extractPageTables(page, i, len(tables))...)
	}
	return pages, tables, nil
}

func extractPDFSecondary(path string) ([]string, error) {
	f, r, err := ledong.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := protectExtract(func() (string, error) {
			return page.GetPlainText(nil)
		})
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, content)
	}
	return pages, nil
}

// protectExtract guards against extractor hangs on malformed objects.
func protectExtract(extract func() (string, error)) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := extract()
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		return "", errors.New("extraction timeout")
	}
}

// Table recovery works off glyph geometry: texts clustered into rows by Y,
// rows split into cells at wide X gaps, and runs of rows with an identical
// cell count of two or more become a table. The first row supplies headers.
const (
	rowYTolerance = 2.0
	cellGapMin    = 12.0
)

func extractPageTables(page dslipak.Page, pageNum, tableOffset int) []docModel.ParsedTable {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	rows := clusterRows(content.Text)
	var tables []docModel.ParsedTable
	var run [][]string

	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, docModel.ParsedTable{
				Page:       pageNum,
				TableIndex: tableOffset + len(tables),
				Headers:    run[0],
				Rows:       run[1:],
			})
		}
		run = nil
	}

	for _, row := range rows {
		cells := splitCells(row)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(run[0]) != len(cells) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

func clusterRows(texts []dslipak.Text) [][]dslipak.Text {
	sorted := make([]dslipak.Text, len(texts))
	copy(sorted, texts)
	sort.Slice(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > rowYTolerance {
			return sorted[i].Y > sorted[j].Y //PDF Y grows upward
		}
		return sorted[i].X < sorted[j].X
	})

	var rows [][]dslipak.Text
	for _, t := range sorted {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		if len(rows) > 0 {
			last := rows[len(rows)-1]
			if math.Abs(last[0].Y-t.Y) <= rowYTolerance {
				rows[len(rows)-1] = append(last, t)
				continue
			}
		}
		rows = append(rows, []dslipak.Text{t})
	}
	return rows
}

func splitCells(row []dslipak.Text) []string {
	var cells []string
	var current strings.Builder
	var lastEnd float64

	for i, t := range row {
		if i > 0 && t.X-lastEnd > cellGapMin {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	if current.Len() > 0 {
		cells = append(cells, strings.TrimSpace(current.String()))
	}
	return cells
}
