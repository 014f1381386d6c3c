package lexical

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
)

// Index is the lexical lane of hybrid search: an SQLite FTS5 table holding
// chunk text per collection, ranked with BM25. It mirrors the vector store
// write path; both lanes are updated together during ingest.
type Index struct {
	db *sql.DB
}

// Entry is one chunk as the lexical index sees it.
type Entry struct {
	ChunkID string
	DocNo   string
	Content string
	Payload docModel.Payload
}

// Hit is one lexical match. Score is positive, higher is better.
type Hit struct {
	ChunkID string
	Score   float64
	Content string
	Payload docModel.Payload
}

// Open creates or opens the index file. unicode61 tokenization with
// diacritics removal handles mixed Russian and English text.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening lexical index: %w", err)
	}

	_, err = db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			content,
			chunk_id UNINDEXED,
			collection UNINDEXED,
			doc_no UNINDEXED,
			payload UNINDEXED,
			tokenize = 'unicode61 remove_diacritics 2'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating fts table: %w", err)
	}

	return &Index{db: db}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// Upsert replaces the indexed text of each entry. FTS5 has no upsert, so
// this is delete-then-insert inside one transaction.
func (ix *Index) Upsert(ctx context.Context, collection string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Transient("beginning lexical transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del, err := tx.PrepareContext(ctx,
		"DELETE FROM chunks_fts WHERE chunk_id = ? AND collection = ?")
	if err != nil {
		return faults.Transient("preparing lexical delete", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks_fts (content, chunk_id, collection, doc_no, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return faults.Transient("preparing lexical insert", err)
	}
	defer ins.Close()

	for _, entry := range entries {
		payloadJSON, err := json.Marshal(entry.Payload)
		if err != nil {
			return faults.Wrap(faults.KindPerFile, "marshalling lexical payload", err)
		}
		if _, err := del.ExecContext(ctx, entry.ChunkID, collection); err != nil {
			return faults.Transient("deleting stale lexical entry", err)
		}
		if _, err := ins.ExecContext(ctx, entry.Content, entry.ChunkID,
			collection, entry.DocNo, string(payloadJSON)); err != nil {
			return faults.Transient("inserting lexical entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return faults.Transient("committing lexical transaction", err)
	}
	return nil
}

// Search ranks collection entries against the query with BM25. SQLite
// reports bm25() as lower-is-better, so the sign is flipped on the way out.
func (ix *Index) Search(ctx context.Context, collection, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT chunk_id, content, payload, bm25(chunks_fts) AS rank
		FROM chunks_fts
		WHERE chunks_fts MATCH ? AND collection = ?
		ORDER BY rank
		LIMIT ?
	`, match, collection, k)
	if err != nil {
		return nil, faults.Transient("lexical query failed", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var payloadJSON string
		var rank float64
		if err := rows.Scan(&hit.ChunkID, &hit.Content, &payloadJSON, &rank); err != nil {
			return nil, faults.Transient("scanning lexical hit", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &hit.Payload); err != nil {
			return nil, faults.Transient("unmarshalling lexical payload", err)
		}
		hit.Score = -rank
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Transient("iterating lexical hits", err)
	}
	return hits, nil
}

func (ix *Index) Delete(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Transient("beginning lexical transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range chunkIDs {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunks_fts WHERE chunk_id = ? AND collection = ?",
			id, collection); err != nil {
			return faults.Transient("deleting lexical entry", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return faults.Transient("committing lexical transaction", err)
	}
	return nil
}

// DeleteByDoc drops every entry of a withdrawn document in one collection.
func (ix *Index) DeleteByDoc(ctx context.Context, collection, docNo string) error {
	_, err := ix.db.ExecContext(ctx,
		"DELETE FROM chunks_fts WHERE collection = ? AND doc_no = ?",
		collection, docNo)
	if err != nil {
		return faults.Transient("deleting lexical document", err)
	}
	return nil
}

// DeleteCollection clears one collection, used by reindex before replaying
// the vector store contents.
func (ix *Index) DeleteCollection(ctx context.Context, collection string) error {
	_, err := ix.db.ExecContext(ctx,
		"DELETE FROM chunks_fts WHERE collection = ?", collection)
	if err != nil {
		return faults.Transient("clearing lexical collection", err)
	}
	return nil
}

// All returns every entry of one collection; reindex replays these through
// the embedder.
func (ix *Index) All(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT chunk_id, content, doc_no, payload
		FROM chunks_fts
		WHERE collection = ?
		ORDER BY chunk_id
	`, collection)
	if err != nil {
		return nil, faults.Transient("lexical scan failed", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var payloadJSON string
		if err := rows.Scan(&entry.ChunkID, &entry.Content, &entry.DocNo, &payloadJSON); err != nil {
			return nil, faults.Transient("scanning lexical entry", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &entry.Payload); err != nil {
			return nil, faults.Transient("unmarshalling lexical payload", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Transient("iterating lexical entries", err)
	}
	return entries, nil
}

// Count reports how many entries a collection holds.
func (ix *Index) Count(ctx context.Context, collection string) (uint64, error) {
	var n uint64
	err := ix.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks_fts WHERE collection = ?", collection).Scan(&n)
	if err != nil {
		return 0, faults.Transient("counting lexical entries", err)
	}
	return n, nil
}

// ftsQuery turns free text into a safe FTS5 MATCH expression: each token is
// quoted and the tokens are OR-ed, so punctuation in user queries can never
// be parsed as FTS syntax.
func ftsQuery(query string) string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, token := range tokens {
		quoted[i] = `"` + token + `"`
	}
	return strings.Join(quoted, " OR ")
}
