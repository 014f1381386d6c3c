package search

import (
	"context"
	"sort"
	"strings"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/embedding"
	"github.com/plantdex/plantdex/internal/objectStore"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/vectorStore"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

// analog re-rank blend, fixed by contract
const (
	analogCombinedWeight = 0.6
	analogParamWeight    = 0.4
)

// Service fuses the dense and lexical lanes into one ranked result list.
// Both lanes are always consulted; a collection missing from one lane only
// thins that lane, it never fails the query.
type Service struct {
	embedder embedding.Embedder
	vectors  vectorStore.Store
	lex      *lexical.Index
	objects  objectStore.Store
	alpha    float64
	logger   *logger_i.Logger
}

func New(embedder embedding.Embedder, vectors vectorStore.Store, lex *lexical.Index, objects objectStore.Store, alpha float64) *Service {
	return &Service{
		embedder: embedder,
		vectors:  vectors,
		lex:      lex,
		objects:  objects,
		alpha:    alpha,
		logger:   logger_i.NewLogger("HybridSearch"),
	}
}

// Request is one hybrid query. Filter.RolesAny is the caller's role set and
// is applied on every lane without exception.
type Request struct {
	Query         string
	K             int
	Kinds         []docModel.ChunkKind
	Filter        vectorStore.Filter
	WithSourceURL bool
}

// Result is one fused hit. Score is the combined score in [0,1].
type Result struct {
	ChunkID   string           `json:"chunk_id"`
	Content   string           `json:"content"`
	Score     float64          `json:"score"`
	Payload   docModel.Payload `json:"payload"`
	SourceURL string           `json:"source_url,omitempty"`
}

// AnalogRequest describes an equipment-analog lookup.
type AnalogRequest struct {
	Description   string
	EquipmentType string
	Parameters    map[string]float64
	Discipline    docModel.Discipline
	Vendor        string
	K             int
	Roles         []string
}

// AnalogResult is one re-ranked analog candidate.
type AnalogResult struct {
	EquipmentID     string             `json:"equipment_id"`
	EquipmentType   string             `json:"equipment_type"`
	Parameters      map[string]float64 `json:"parameters"`
	SimilarityScore float64            `json:"similarity_score"`
	SourceDocuments []string           `json:"source_documents"`
	Vendor          string             `json:"vendor,omitempty"`
	ProjectContext  string             `json:"project_context,omitempty"`
}

// Search runs both lanes, normalizes each lane min-max, and fuses with
// alpha weighting. K of zero short-circuits without touching any store.
func (s *Service) Search(ctx context.Context, req Request) ([]Result, error) {
	if req.K <= 0 {
		return []Result{}, nil
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, faults.New(faults.KindInput, "empty query")
	}

	fused, err := s.fuse(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(fused) > req.K {
		fused = fused[:req.K]
	}

	results := make([]Result, len(fused))
	for i, hit := range fused {
		results[i] = Result{
			ChunkID: hit.chunkID,
			Content: hit.content,
			Score:   hit.combined,
			Payload: hit.payload,
		}
		if req.WithSourceURL {
			results[i].SourceURL = s.presign(ctx, hit.payload.SourcePath)
		}
	}
	return results, nil
}

// SearchAnalogs narrows to the equipment tag and re-ranks by parameter
// similarity. Candidates without any parameter in common keep their
// combined score untouched.
func (s *Service) SearchAnalogs(ctx context.Context, req AnalogRequest) ([]AnalogResult, error) {
	if req.K <= 0 {
		return []AnalogResult{}, nil
	}
	if req.EquipmentType == "" {
		return nil, faults.New(faults.KindInput, "equipment_type is required")
	}

	query := req.Description
	if strings.TrimSpace(query) == "" {
		query = req.EquipmentType
	}

	fusedReq := Request{
		Query: query,
		// over-fetch so the re-rank has room to reorder
		K: req.K * 4,
		Filter: vectorStore.Filter{
			TagsAny:    []string{req.EquipmentType},
			Discipline: req.Discipline,
			RolesAny:   req.Roles,
		},
	}
	fused, err := s.fuse(ctx, fusedReq)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		hit       fusedHit
		relevance float64
	}
	candidates := make([]ranked, 0, len(fused))
	for _, hit := range fused {
		if req.Vendor != "" && hit.payload.Vendor != req.Vendor {
			continue
		}
		relevance := hit.combined
		if score, ok := paramScore(req.Parameters, hit.payload.Numeric); ok {
			relevance = analogCombinedWeight*hit.combined + analogParamWeight*score
		}
		candidates = append(candidates, ranked{hit: hit, relevance: relevance})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].relevance > candidates[j].relevance
	})
	if len(candidates) > req.K {
		candidates = candidates[:req.K]
	}

	results := make([]AnalogResult, len(candidates))
	for i, c := range candidates {
		equipmentID := c.hit.payload.BOMRowID
		if equipmentID == "" {
			equipmentID = c.hit.chunkID
		}
		results[i] = AnalogResult{
			EquipmentID:     equipmentID,
			EquipmentType:   req.EquipmentType,
			Parameters:      c.hit.payload.Numeric,
			SimilarityScore: c.relevance,
			SourceDocuments: []string{c.hit.payload.DocNo},
			Vendor:          c.hit.payload.Vendor,
			ProjectContext:  projectContext(c.hit.payload),
		}
	}
	return results, nil
}

// projectContext identifies the project a hit came from.
func projectContext(p docModel.Payload) string {
	return p.ProjectID
}

// paramScore is 1 minus the mean relative deviation over the keys present
// in both maps, each deviation clipped to [0,1]. The second return is false
// when the key sets do not intersect.
func paramScore(wanted, got map[string]float64) (float64, bool) {
	if len(wanted) == 0 || len(got) == 0 {
		return 0, false
	}
	var sum float64
	var n int
	for key, p := range wanted {
		h, ok := got[key]
		if !ok {
			continue
		}
		var deviation float64
		switch {
		case p != 0:
			deviation = clip01(abs(p-h) / abs(p))
		case h != 0:
			deviation = 1
		}
		sum += deviation
		n++
	}
	if n == 0 {
		return 0, false
	}
	return 1 - sum/float64(n), true
}

type fusedHit struct {
	chunkID  string
	content  string
	payload  docModel.Payload
	dense    float64
	lexical  float64
	hasDense bool
	hasLex   bool
	combined float64
}

// fuse gathers both lanes over every requested kind's collection and
// blends them. Per-lane normalization happens across collections so a hit
// is comparable no matter which collection produced it.
func (s *Service) fuse(ctx context.Context, req Request) ([]fusedHit, error) {
	kDense := 2 * req.K
	if kDense < config.MinDenseCandidates {
		kDense = config.MinDenseCandidates
	}

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = []docModel.ChunkKind{
			docModel.KindText, docModel.KindTable,
			docModel.KindDrawing, docModel.KindIFC,
		}
	}

	queryVector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*fusedHit)
	upsertHit := func(id, content string, payload docModel.Payload) *fusedHit {
		hit, ok := byID[id]
		if !ok {
			hit = &fusedHit{chunkID: id, payload: payload}
			byID[id] = hit
		}
		if hit.content == "" {
			hit.content = content
		}
		return hit
	}

	for _, kind := range kinds {
		collection := docModel.CollectionFor(kind, s.embedder.ModelTag())

		denseHits, err := s.vectors.Search(ctx, collection, queryVector, kDense, req.Filter)
		if err != nil {
			s.logger.Warn("Dense lane unavailable", "collection", collection, "error", err)
		}
		for _, dh := range denseHits {
			hit := upsertHit(dh.ID, dh.Content, dh.Payload)
			hit.dense = float64(dh.Score)
			hit.hasDense = true
		}

		lexHits, err := s.lex.Search(ctx, collection, req.Query, kDense)
		if err != nil {
			s.logger.Warn("Lexical lane unavailable", "collection", collection, "error", err)
		}
		for _, lh := range lexHits {
			if !matchesFilter(lh.Payload, req.Filter) {
				continue
			}
			hit := upsertHit(lh.ChunkID, lh.Content, lh.Payload)
			hit.lexical = lh.Score
			hit.hasLex = true
		}
	}

	hits := make([]fusedHit, 0, len(byID))
	for _, hit := range byID {
		hits = append(hits, *hit)
	}

	normalizeLane(hits,
		func(h *fusedHit) (float64, bool) { return h.dense, h.hasDense },
		func(h *fusedHit, v float64) { h.dense = v })
	normalizeLane(hits,
		func(h *fusedHit) (float64, bool) { return h.lexical, h.hasLex },
		func(h *fusedHit, v float64) { h.lexical = v })

	for i := range hits {
		hits[i].combined = s.alpha*hits[i].dense + (1-s.alpha)*hits[i].lexical
	}

	sort.SliceStable(hits, func(i, j int) bool { return lessHit(hits[i], hits[j]) })
	return hits, nil
}

// lessHit orders by combined score descending, then newest rev, then newest
// issue date, then chunk ID ascending so equal hits always come out in the
// same order.
func lessHit(a, b fusedHit) bool {
	if a.combined != b.combined {
		return a.combined > b.combined
	}
	if a.payload.Rev != b.payload.Rev {
		return a.payload.Rev > b.payload.Rev
	}
	if a.payload.IssuedAt != b.payload.IssuedAt {
		return a.payload.IssuedAt > b.payload.IssuedAt
	}
	return a.chunkID < b.chunkID
}

// normalizeLane min-max scales one lane in place. A lane with a single
// distinct value maps to 1.0, which keeps fusion monotone under lane-wide
// scaling.
func normalizeLane(hits []fusedHit, get func(*fusedHit) (float64, bool), set func(*fusedHit, float64)) {
	var lo, hi float64
	seen := false
	for i := range hits {
		v, ok := get(&hits[i])
		if !ok {
			continue
		}
		if !seen || v < lo {
			lo = v
		}
		if !seen || v > hi {
			hi = v
		}
		seen = true
	}
	if !seen {
		return
	}
	span := hi - lo
	for i := range hits {
		v, ok := get(&hits[i])
		if !ok {
			continue
		}
		if span == 0 {
			set(&hits[i], 1)
		} else {
			set(&hits[i], (v-lo)/span)
		}
	}
}

// matchesFilter re-applies the store-side predicate to lexical hits, which
// bypass the vector store and its filter engine.
func matchesFilter(p docModel.Payload, f vectorStore.Filter) bool {
	if f.ProjectID != "" && p.ProjectID != f.ProjectID {
		return false
	}
	if f.ObjectID != "" && p.ObjectID != f.ObjectID {
		return false
	}
	if f.Discipline != "" && p.Discipline != f.Discipline {
		return false
	}
	if f.DocType != "" && p.DocType != f.DocType {
		return false
	}
	if f.DocNo != "" && p.DocNo != f.DocNo {
		return false
	}
	if f.Language != "" && p.Language != f.Language {
		return false
	}
	if f.Rev != "" && p.Rev != f.Rev {
		return false
	}
	if f.Confidentiality != "" && p.Confidentiality != f.Confidentiality {
		return false
	}
	if len(f.TagsAny) > 0 && !containsAny(p.Tags, f.TagsAny) {
		return false
	}
	// authorization is never optional: an empty role set matches nothing
	if !containsAny(p.Permissions, f.RolesAny) {
		return false
	}
	for _, nr := range f.Numeric {
		v, ok := p.Numeric[nr.Key]
		if !ok {
			return false
		}
		if nr.Min != nil && v < *nr.Min {
			return false
		}
		if nr.Max != nil && v > *nr.Max {
			return false
		}
	}
	return true
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func (s *Service) presign(ctx context.Context, sourcePath string) string {
	if s.objects == nil || sourcePath == "" {
		return ""
	}
	url, err := s.objects.Presign(ctx, sourcePath, config.PresignTTL)
	if err != nil {
		s.logger.Debug("Presign failed", "path", sourcePath, "error", err)
		return ""
	}
	return url
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
