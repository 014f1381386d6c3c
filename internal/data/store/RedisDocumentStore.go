package store

import (
	"context"
	"encoding/json"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/data/redisStore"
	"github.com/plantdex/plantdex/internal/domain/ocModel"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

const documentKeyPrefix = "oc_doc:"

// RedisDocumentStore is the registry of documents moving through release
// control. Entries expire with the store TTL; a verdict older than that is
// stale anyway.
type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocumentStore(ctx context.Context, cfg config.Settings) *RedisDocumentStore {
	backing := redisStore.GetRedisStore(ctx, config.RedisDocumentStoreDB, cfg.RedisAddr, cfg.RedisPassword)
	if backing == nil {
		return nil
	}
	return &RedisDocumentStore{
		store:  backing,
		logger: logger_i.NewLogger("DocumentStore"),
	}
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc ocModel.Document) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "document Id", doc.DocumentID)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	err = s.store.Set(ctx, documentKeyPrefix+doc.DocumentID, data, config.RedisDocStoreTTL)
	if err == nil {
		log.Debug("Saved document to Redis")
	}
	return err
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, documentID string) (ocModel.Document, bool) {
	var doc ocModel.Document
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "document Id", documentID)
	val, err := s.store.Get(ctx, documentKeyPrefix+documentID)
	if s.store.IsNil(err) {
		return doc, false
	} else if err != nil {
		log.Error("Failed to read document", "error", err)
		return doc, false
	}

	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		log.Error("Failed to unmarshal document", "error", err)
		return doc, false
	}
	return doc, true
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, documentID string) {
	if err := s.store.Del(ctx, documentKeyPrefix+documentID); err != nil {
		s.logger.Error("Error deleting document from Redis", "documentId", documentID, "error", err)
		return
	}
	s.logger.Debug("Document deleted from Redis", "documentId", documentID)
}

func TestDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("test document store"),
	}
}
