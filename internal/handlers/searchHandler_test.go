package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/plantdex/plantdex/internal/api"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/search"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/vectorStore"
)

type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (s *stubEmbedder) ModelID() string  { return "test-embedder" }
func (s *stubEmbedder) ModelTag() string { return "test" }
func (s *stubEmbedder) Dim() int32       { return 3 }

type stubVectorStore struct{}

func (s *stubVectorStore) EnsureCollection(ctx context.Context, name string, dim uint64) error {
	return nil
}

func (s *stubVectorStore) Upsert(ctx context.Context, collection string, points []vectorStore.Point) error {
	return nil
}

func (s *stubVectorStore) Search(ctx context.Context, collection string, vector []float32, k int, filter vectorStore.Filter) ([]vectorStore.Hit, error) {
	return nil, nil
}

func (s *stubVectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	return nil
}

func (s *stubVectorStore) DeleteByDoc(ctx context.Context, collection string, docNo string) error {
	return nil
}

func (s *stubVectorStore) ListCollections(ctx context.Context) ([]vectorStore.CollectionInfo, error) {
	return nil, nil
}

func (s *stubVectorStore) Count(ctx context.Context, collection string) (uint64, error) {
	return 0, nil
}

func initSearchHandlers(t *testing.T) *lexical.Index {
	t.Helper()
	lex, err := lexical.Open(filepath.Join(t.TempDir(), "lex.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lex.Close() })

	svc := search.New(&stubEmbedder{}, &stubVectorStore{}, lex, nil, 0.6)
	InitHandlers(nil, svc, nil, nil)
	return lex
}

func postSearch(t *testing.T, body api.SearchRequest) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	SearchHandler(rec, req)
	return rec
}

func TestSearchHandler_DefaultsToRussian(t *testing.T) {
	lex := initSearchHandlers(t)

	entry := func(id, lang string) lexical.Entry {
		return lexical.Entry{
			ChunkID: id,
			DocNo:   "D1",
			Content: "центробежный насос",
			Payload: docModel.Payload{
				DocNo:       "D1",
				Language:    lang,
				Permissions: []string{"engineer"},
			},
		}
	}
	collection := docModel.CollectionFor(docModel.KindText, "test")
	err := lex.Upsert(context.Background(), collection, []lexical.Entry{
		entry("c-ru", "ru"),
		entry("c-en", "en"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// no language in the request: the handler must fill in ru
	rec := postSearch(t, api.SearchRequest{
		Query: "насос",
		Roles: []string{"engineer"},
		Kinds: []string{string(docModel.KindText)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp api.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID != "c-ru" {
		t.Fatalf("results = %+v, want only the russian chunk", resp.Results)
	}

	// an explicit language still wins
	rec = postSearch(t, api.SearchRequest{
		Query:    "насос",
		Language: "en",
		Roles:    []string{"engineer"},
		Kinds:    []string{string(docModel.KindText)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp = api.SearchResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID != "c-en" {
		t.Fatalf("results = %+v, want only the english chunk", resp.Results)
	}
}
