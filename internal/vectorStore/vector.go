package vectorStore

import (
	"context"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

// Point is one chunk ready for upsert: a deterministic ID, its vector, the
// chunk text and the full payload. Content rides in the stored payload so
// search results can be served without a second lookup.
type Point struct {
	ID      string
	Vector  []float32
	Content string
	Payload docModel.Payload
}

// Hit is one search result in descending score order.
type Hit struct {
	ID      string
	Score   float32
	Content string
	Payload docModel.Payload
}

// NumericRange is a half-open or closed range predicate over a
// numeric.<key> payload field.
type NumericRange struct {
	Key string
	Min *float64
	Max *float64
}

// Filter is a conjunction of equality and range predicates over payload
// fields. Zero values mean "no constraint"; RolesAny is the authorization
// predicate and is mandatory on every search the core performs for a
// caller.
type Filter struct {
	ProjectID       string
	ObjectID        string
	Discipline      docModel.Discipline
	DocType         docModel.DocType
	DocNo           string
	Language        string
	Rev             string
	Confidentiality docModel.Confidentiality
	TagsAny         []string
	RolesAny        []string
	Numeric         []NumericRange
}

// CollectionInfo describes one typed partition of the store.
type CollectionInfo struct {
	Name   string
	Dim    uint64
	Points uint64
}

// Store is the vector store adapter. Upserts are idempotent on ID;
// EnsureCollection is safe under concurrent first-touch and refuses to
// reuse a collection whose dimension disagrees.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim uint64) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]Hit, error)
	Delete(ctx context.Context, collection string, ids []string) error
	DeleteByDoc(ctx context.Context, collection string, docNo string) error
	ListCollections(ctx context.Context) ([]CollectionInfo, error)
	Count(ctx context.Context, collection string) (uint64, error)
}
