package parser

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/lu4p/cat"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

// parseDOCX walks word/document.xml directly so tables survive with their
// structure; the paragraph stream keeps the document's reading order and
// each table is appended after the paragraphs it follows. When the XML walk
// fails the lu4p/cat extractor recovers at least the plain text.
func (p *Parser) parseDOCX(path string, doc *docModel.ParsedDocument) error {
	body, tables, err := walkDocxXML(path)
	if err != nil {
		p.logger.Warn("DOCX XML walk failed, falling back to plain extraction", "path", path, "error", err)
		return p.parseWithCat(path, doc)
	}

	doc.Pages = []string{body}
	doc.Tables = tables
	doc.ExtractionMethod = docModel.ExtractTextPrimary
	return nil
}

// parseWithCat covers RTF/ODT and serves as the DOCX fallback rung. The
// whole document lands on one page; pagination is not recoverable here.
func (p *Parser) parseWithCat(path string, doc *docModel.ParsedDocument) error {
	text, err := cat.File(path)
	if err != nil {
		return perFile("document text extraction", err)
	}
	doc.Pages = []string{text}
	doc.ExtractionMethod = docModel.ExtractTextSecondary
	return nil
}

// Minimal WordprocessingML shapes; only what the walk needs.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Items []docxBlock `xml:",any"`
}

type docxBlock struct {
	XMLName xml.Name
	Runs    []docxRun `xml:"r"`
	Rows    []docxRow `xml:"tr"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxBlock `xml:"p"`
}

func walkDocxXML(path string) (string, []docModel.ParsedTable, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, err
	}
	defer archive.Close()

	var docXML io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", nil, err
			}
			break
		}
	}
	if docXML == nil {
		return "", nil, io.ErrUnexpectedEOF
	}
	defer docXML.Close()

	var parsed docxDocument
	if err := xml.NewDecoder(docXML).Decode(&parsed); err != nil {
		return "", nil, err
	}

	var body strings.Builder
	var tables []docModel.ParsedTable

	for _, block := range parsed.Body.Items {
		switch block.XMLName.Local {
		case "p":
			line := paragraphText(block)
			if line != "" {
				body.WriteString(line)
				body.WriteString("\n")
			}
		case "tbl":
			if table := tableFromRows(block.Rows, len(tables)); table != nil {
				tables = append(tables, *table)
			}
		}
	}
	return body.String(), tables, nil
}

func paragraphText(block docxBlock) string {
	var sb strings.Builder
	for _, run := range block.Runs {
		for _, t := range run.Texts {
			sb.WriteString(t)
		}
	}
	return strings.TrimSpace(sb.String())
}

func tableFromRows(rows []docxRow, index int) *docModel.ParsedTable {
	if len(rows) < 2 {
		return nil
	}
	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			var sb strings.Builder
			for _, p := range cell.Paragraphs {
				if text := paragraphText(p); text != "" {
					if sb.Len() > 0 {
						sb.WriteString(" ")
					}
					sb.WriteString(text)
				}
			}
			cells = append(cells, sb.String())
		}
		grid = append(grid, cells)
	}
	return &docModel.ParsedTable{
		// DOCX carries no page geometry; tables report page 1.
		Page:       1,
		TableIndex: index,
		Headers:    grid[0],
		Rows:       grid[1:],
	}
}
