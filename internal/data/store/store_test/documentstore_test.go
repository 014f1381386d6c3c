package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/data/redisStore"
	"github.com/plantdex/plantdex/internal/data/store"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

func TestRedisDocumentStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	docStore := store.TestDocumentStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "doc-trace")
	docID := ocModel.NewDocumentID()

	doc := ocModel.Document{
		DocumentID: docID,
		FileName:   "letter.docx",
		State:      ocModel.StateReceived,
		Text:       "Текст исходящего письма.",
	}

	if err := docStore.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	retrieved, found := docStore.GetDocument(ctx, docID)
	if !found {
		t.Fatal("Document was saved but not found")
	}
	if retrieved.Text != doc.Text {
		t.Errorf("Text mismatch! Got %q, want %q", retrieved.Text, doc.Text)
	}
	if retrieved.State != ocModel.StateReceived {
		t.Errorf("State mismatch! Got %s", retrieved.State)
	}

	docStore.DeleteDocument(ctx, docID)
	if _, found := docStore.GetDocument(ctx, docID); found {
		t.Error("Document still readable after delete")
	}
}
