package ingest

import (
	"context"
	"strings"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/vectorStore"
)

// Collections lists the vector store collections with their dimensions and
// point counts.
func (o *Orchestrator) Collections(ctx context.Context) ([]vectorStore.CollectionInfo, error) {
	return o.vectors.ListCollections(ctx)
}

// Reindex re-embeds every chunk of one collection from the text retained
// in the lexical index and upserts the fresh vectors in place. Point IDs
// are stable, so a reindex never changes the point count.
func (o *Orchestrator) Reindex(ctx context.Context, collection string) (int, error) {
	if !strings.HasPrefix(collection, "ae_") {
		return 0, faults.New(faults.KindInput, "unknown collection: "+collection)
	}

	entries, err := o.lex.All(ctx, collection)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := o.vectors.EnsureCollection(ctx, collection, uint64(o.embedder.Dim())); err != nil {
		return 0, err
	}

	budget := newRetryBudget(o.cfg.IngestRetryMax * 4)
	reindexed := 0
	for start := 0; start < len(entries); start += config.EmbedBatchSize {
		if ctx.Err() != nil {
			return reindexed, faults.Wrap(faults.KindTransient, "reindex aborted", ctx.Err())
		}
		end := start + config.EmbedBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.Content
		}
		var vectors [][]float32
		err := o.retry(ctx, budget, func() error {
			var embedErr error
			vectors, embedErr = o.embedder.EmbedBatch(ctx, texts)
			return embedErr
		})
		if err != nil {
			return reindexed, err
		}
		if len(vectors) != len(batch) {
			return reindexed, faults.Integrity("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		points := make([]vectorStore.Point, len(batch))
		for i, e := range batch {
			points[i] = vectorStore.Point{
				ID:      e.ChunkID,
				Vector:  vectors[i],
				Content: e.Content,
				Payload: e.Payload,
			}
		}
		err = o.retry(ctx, budget, func() error {
			return o.vectors.Upsert(ctx, collection, points)
		})
		if err != nil {
			return reindexed, err
		}
		reindexed += len(points)
	}
	return reindexed, nil
}

// Withdraw removes every chunk of a document from every collection, in both
// the vector store and the lexical index.
func (o *Orchestrator) Withdraw(ctx context.Context, docNo string) error {
	if docNo == "" {
		return faults.New(faults.KindInput, "doc_no is required")
	}
	for _, kind := range []docModel.ChunkKind{docModel.KindText, docModel.KindTable, docModel.KindDrawing, docModel.KindIFC} {
		collection := docModel.CollectionFor(kind, o.embedder.ModelTag())
		if err := o.vectors.DeleteByDoc(ctx, collection, docNo); err != nil {
			return err
		}
		if err := o.lex.DeleteByDoc(ctx, collection, docNo); err != nil {
			return err
		}
	}
	return nil
}

// Lexical exposes the index for components that share it.
func (o *Orchestrator) Lexical() *lexical.Index { return o.lex }
