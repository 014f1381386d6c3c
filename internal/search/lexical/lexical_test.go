package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "lex.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func seedEntries(t *testing.T, ix *Index, collection string) {
	t.Helper()
	err := ix.Upsert(context.Background(), collection, []Entry{
		{ChunkID: "c1", DocNo: "D1", Content: "центробежный насос для перекачки аммиака",
			Payload: docModel.Payload{DocNo: "D1", Rev: "A"}},
		{ChunkID: "c2", DocNo: "D1", Content: "кожухотрубный теплообменник",
			Payload: docModel.Payload{DocNo: "D1", Rev: "A"}},
		{ChunkID: "c3", DocNo: "D2", Content: "centrifugal pump datasheet",
			Payload: docModel.Payload{DocNo: "D2", Rev: "B"}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSearch_MatchesTokens(t *testing.T) {
	ix := openTestIndex(t)
	seedEntries(t, ix, "ae_text_test")

	hits, err := ix.Search(context.Background(), "ae_text_test", "насос", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c1" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Score <= 0 {
		t.Errorf("score = %v, want positive", hits[0].Score)
	}
	if hits[0].Payload.DocNo != "D1" {
		t.Errorf("payload doc = %s", hits[0].Payload.DocNo)
	}
}

func TestSearch_CollectionsAreIsolated(t *testing.T) {
	ix := openTestIndex(t)
	seedEntries(t, ix, "ae_text_test")

	hits, err := ix.Search(context.Background(), "ae_table_test", "насос", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hit leaked across collections: %+v", hits)
	}
}

func TestSearch_PunctuationIsNotSyntax(t *testing.T) {
	ix := openTestIndex(t)
	seedEntries(t, ix, "ae_text_test")

	// quotes, parens and operators must be tokenized away, not parsed
	hits, err := ix.Search(context.Background(), "ae_text_test", `"насос" AND (NOT*)`, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Error("quoted token failed to match")
	}

	if hits, err := ix.Search(context.Background(), "ae_text_test", "!!!", 10); err != nil || hits != nil {
		t.Errorf("symbol-only query: hits=%v err=%v", hits, err)
	}
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	seedEntries(t, ix, "ae_text_test")

	err := ix.Upsert(ctx, "ae_text_test", []Entry{
		{ChunkID: "c1", DocNo: "D1", Content: "винтовой компрессор",
			Payload: docModel.Payload{DocNo: "D1", Rev: "B"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := ix.Count(ctx, "ae_text_test")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 after in-place replace", n)
	}

	if hits, _ := ix.Search(ctx, "ae_text_test", "насос", 10); len(hits) != 0 {
		t.Error("stale text still matches after replace")
	}
	hits, err := ix.Search(ctx, "ae_text_test", "компрессор", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Payload.Rev != "B" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestDeleteByDoc(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	seedEntries(t, ix, "ae_text_test")

	if err := ix.DeleteByDoc(ctx, "ae_text_test", "D1"); err != nil {
		t.Fatal(err)
	}

	entries, err := ix.All(ctx, "ae_text_test")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].DocNo != "D2" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestDeleteCollection(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	seedEntries(t, ix, "ae_text_test")
	seedEntries(t, ix, "ae_table_test")

	if err := ix.DeleteCollection(ctx, "ae_text_test"); err != nil {
		t.Fatal(err)
	}

	n, _ := ix.Count(ctx, "ae_text_test")
	if n != 0 {
		t.Errorf("cleared collection still has %d entries", n)
	}
	n, _ = ix.Count(ctx, "ae_table_test")
	if n != 3 {
		t.Errorf("sibling collection lost entries: %d", n)
	}
}

func TestAll_OrderedByChunkID(t *testing.T) {
	ix := openTestIndex(t)
	seedEntries(t, ix, "ae_text_test")

	entries, err := ix.All(context.Background(), "ae_text_test")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ChunkID > entries[i].ChunkID {
			t.Errorf("entries out of order at %d: %s > %s", i, entries[i-1].ChunkID, entries[i].ChunkID)
		}
	}
}

func TestFtsQuery(t *testing.T) {
	if got := ftsQuery("насос DN-150"); got != `"насос" OR "DN" OR "150"` {
		t.Errorf("ftsQuery = %q", got)
	}
	if got := ftsQuery("?!*"); got != "" {
		t.Errorf("symbol-only query = %q", got)
	}
}
