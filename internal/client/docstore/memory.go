package docstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/miroir/internal/common"
)

// MemoryStore keeps documents in process memory. Documents are stored in
// their JSON form so callers never share maps with the store.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document)}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return Encode(doc)
}

func (s *MemoryStore) Put(_ context.Context, collection, key string, doc Document) error {
	stored, err := Encode(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(collection, key, stored)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, key string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][key]
	if !ok {
		return common.ErrorNotFound
	}
	next, err := Encode(merge(doc, fields))
	if err != nil {
		return err
	}
	s.putLocked(collection, key, next)
	return nil
}

func (s *MemoryStore) Modify(_ context.Context, collection, key string, fn func(Document) (Document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][key]
	if !ok {
		return common.ErrorNotFound
	}
	cp, err := Encode(doc)
	if err != nil {
		return err
	}
	next, err := fn(cp)
	if err != nil {
		return err
	}
	stored, err := Encode(next)
	if err != nil {
		return err
	}
	s.putLocked(collection, key, stored)
	return nil
}

// Len returns the number of documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[collection])
}

func (s *MemoryStore) putLocked(collection, key string, doc Document) {
	c, ok := s.docs[collection]
	if !ok {
		c = make(map[string]Document)
		s.docs[collection] = c
	}
	c[key] = doc
}
