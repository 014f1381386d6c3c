package store

import (
	"context"
	"sync"

	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

type InMemoryDocumentStore struct {
	docLock *sync.RWMutex
	docMap  map[string]ocModel.Document
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docLock: new(sync.RWMutex),
		docMap:  make(map[string]ocModel.Document),
	}
}

func (store *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc ocModel.Document) error {
	store.docLock.Lock()
	defer store.docLock.Unlock()
	store.docMap[doc.DocumentID] = doc
	return nil
}

func (store *InMemoryDocumentStore) GetDocument(ctx context.Context, documentID string) (ocModel.Document, bool) {
	store.docLock.RLock()
	defer store.docLock.RUnlock()
	doc, found := store.docMap[documentID]
	return doc, found
}

func (store *InMemoryDocumentStore) DeleteDocument(ctx context.Context, documentID string) {
	store.docLock.Lock()
	defer store.docLock.Unlock()
	delete(store.docMap, documentID)
}
