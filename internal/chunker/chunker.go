package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

// TokenCounter reports how many model tokens a string costs. The embedding
// layer supplies the real tokenizer; a nil counter falls back to a
// character heuristic.
type TokenCounter interface {
	CountTokens(text string) int
}

type Chunker struct {
	tokens TokenCounter
	logger *logger_i.Logger
}

func New(tokens TokenCounter) *Chunker {
	return &Chunker{
		tokens: tokens,
		logger: logger_i.NewLogger("Chunker"),
	}
}

// Chunk splits a parsed document into typed chunks. Identity is stable: the
// same parsed content always yields the same chunk_id set, and chunks whose
// normalized content is empty are dropped before they ever reach the
// embedder.
func (c *Chunker) Chunk(doc *docModel.ParsedDocument, manifest *docModel.Manifest) []docModel.Chunk {
	var chunks []docModel.Chunk

	chunks = append(chunks, c.textChunks(doc, manifest)...)
	chunks = append(chunks, c.tableChunks(doc, manifest)...)
	chunks = append(chunks, c.drawingChunks(doc, manifest)...)
	chunks = append(chunks, c.ifcChunks(doc, manifest)...)

	c.logger.Debug("Chunked document",
		"doc_no", doc.DocNo, "rev", doc.Rev, "chunks", len(chunks))
	return chunks
}

func (c *Chunker) textChunks(doc *docModel.ParsedDocument, manifest *docModel.Manifest) []docModel.Chunk {
	drawing := map[int]bool{}
	for _, p := range doc.DrawingPages {
		drawing[p] = true
	}

	var chunks []docModel.Chunk
	for pageIdx, pageText := range doc.Pages {
		pageNum := pageIdx + 1
		if drawing[pageNum] {
			continue //drawing pages get drawing chunks instead
		}
		for ordinal, piece := range splitText(pageText) {
			if piece == "" {
				continue
			}
			locator := fmt.Sprintf("p%d.c%d", pageNum, ordinal)
			chunk := docModel.Chunk{
				ChunkID:    docModel.NewChunkID(doc.DocNo, doc.Rev, docModel.KindText, locator),
				Kind:       docModel.KindText,
				Content:    piece,
				TokenCount: c.countTokens(piece),
				Overlap:    chunkOverlap,
				Page:       pageNum,
			}
			chunk.Payload = c.buildPayload(doc, manifest, &chunk,
				extractNumericFromText(piece, manifest.DefaultDiscipline))
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func (c *Chunker) tableChunks(doc *docModel.ParsedDocument, manifest *docModel.Manifest) []docModel.Chunk {
	var chunks []docModel.Chunk
	for _, table := range doc.Tables {
		for rowIdx, row := range table.Rows {
			rowData := rowToMap(table.Headers, row)
			if len(rowData) == 0 {
				continue
			}
			content := renderRow(table.Headers, rowData)
			if content == "" {
				continue
			}

			locator := fmt.Sprintf("p%d.t%d.r%d", table.Page, table.TableIndex, rowIdx)
			chunk := docModel.Chunk{
				ChunkID:    docModel.NewChunkID(doc.DocNo, doc.Rev, docModel.KindTable, locator),
				Kind:       docModel.KindTable,
				Content:    content,
				TokenCount: c.countTokens(content),
				Page:       table.Page,
				RowHash:    hashRow(rowData),
				RowData:    rowData,
			}
			chunk.Payload = c.buildPayload(doc, manifest, &chunk,
				extractNumericFromRow(rowData, manifest.DefaultDiscipline))
			chunk.Payload.BOMRowID = chunk.RowHash
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func (c *Chunker) drawingChunks(doc *docModel.ParsedDocument, manifest *docModel.Manifest) []docModel.Chunk {
	var chunks []docModel.Chunk
	for _, pageNum := range doc.DrawingPages {
		extracted := doc.DrawingText[pageNum]
		content := strings.TrimSpace(pageOrDefault(doc.Pages, pageNum) + " " + extracted)
		if content == "" {
			content = fmt.Sprintf("%s %s page %d", doc.DocNo, doc.DocType, pageNum)
		}

		locator := fmt.Sprintf("p%d", pageNum)
		chunk := docModel.Chunk{
			ChunkID:       docModel.NewChunkID(doc.DocNo, doc.Rev, docModel.KindDrawing, locator),
			Kind:          docModel.KindDrawing,
			Content:       content,
			TokenCount:    c.countTokens(content),
			Page:          pageNum,
			ExtractedText: extracted,
		}
		chunk.Payload = c.buildPayload(doc, manifest, &chunk,
			extractNumericFromText(content, manifest.DefaultDiscipline))
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (c *Chunker) ifcChunks(doc *docModel.ParsedDocument, manifest *docModel.Manifest) []docModel.Chunk {
	var chunks []docModel.Chunk
	for _, entity := range doc.Entities {
		content := renderIFCEntity(entity)
		if content == "" {
			continue
		}

		chunk := docModel.Chunk{
			ChunkID:    docModel.NewChunkID(doc.DocNo, doc.Rev, docModel.KindIFC, entity.GUID),
			Kind:       docModel.KindIFC,
			Content:    content,
			TokenCount: c.countTokens(content),
			IFCType:    entity.Type,
			IFCGUID:    entity.GUID,
			Properties: entity.Properties,
		}
		chunk.Payload = c.buildPayload(doc, manifest, &chunk,
			extractNumericFromText(content, manifest.DefaultDiscipline))
		chunk.Payload.IFCGUID = entity.GUID
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (c *Chunker) buildPayload(doc *docModel.ParsedDocument, manifest *docModel.Manifest,
	chunk *docModel.Chunk, numeric map[string]float64) docModel.Payload {

	sppID := manifest.SppID
	if sppID == "" {
		sppID = docModel.DefaultSppID
	}
	return docModel.Payload{
		ProjectID:       manifest.ProjectID,
		ObjectID:        manifest.ObjectID,
		SppID:           sppID,
		Discipline:      manifest.DefaultDiscipline,
		DocNo:           doc.DocNo,
		Rev:             doc.Rev,
		Page:            chunk.Page,
		Section:         chunk.Section,
		Language:        manifest.Language(),
		SourcePath:      doc.SourcePath,
		SourceHash:      doc.SourceHash,
		DocType:         doc.DocType,
		Confidentiality: manifest.Confidentiality,
		Tags:            manifest.Tags,
		Numeric:         numeric,
		Permissions:     manifest.EffectivePermissions(),
		DocID:           docModel.NewChunkID(doc.DocNo, doc.Rev, "doc", doc.SourceHash),
		ChunkID:         chunk.ChunkID,
		ParentChunkID:   chunk.ParentChunkID,
	}
}

func (c *Chunker) countTokens(text string) int {
	if c.tokens != nil {
		return c.tokens.CountTokens(text)
	}
	// ~4 characters per token is close enough for budget accounting
	return (len(text) + 3) / 4
}

func rowToMap(headers []string, row []string) map[string]string {
	rowData := map[string]string{}
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		header := fmt.Sprintf("col_%d", i)
		if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
			header = normalizeHeader(headers[i])
		}
		rowData[header] = cell
	}
	return rowData
}

// renderRow produces the human-readable "header: value; …" form in header
// order, so the rendering is deterministic.
func renderRow(headers []string, rowData map[string]string) string {
	keys := make([]string, 0, len(rowData))
	for _, h := range headers {
		if raw, ok := rowData[normalizeHeader(h)]; ok && raw != "" {
			keys = append(keys, normalizeHeader(h))
		}
	}
	// columns without a named header follow, sorted
	var extra []string
	for k := range rowData {
		if strings.HasPrefix(k, "col_") {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+rowData[k])
	}
	return strings.Join(parts, "; ")
}

// hashRow canonicalizes the row (sorted key=value joined by |) and hashes
// it, so column order in the source never changes identity.
func hashRow(rowData map[string]string) string {
	keys := make([]string, 0, len(rowData))
	for k := range rowData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(rowData[k])
		sb.WriteString("|")
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func renderIFCEntity(entity docModel.IFCEntity) string {
	keys := make([]string, 0, len(entity.Properties))
	for k := range entity.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{entity.Type}
	for _, k := range keys {
		parts = append(parts, k+": "+entity.Properties[k])
	}
	return strings.Join(parts, "; ")
}

func pageOrDefault(pages []string, pageNum int) string {
	if pageNum >= 1 && pageNum <= len(pages) {
		return strings.TrimSpace(pages[pageNum-1])
	}
	return ""
}
