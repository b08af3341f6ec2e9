package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, doc any) error {
	return s.CreateAll(ctx, Doc{Collection: collection, ID: id, Data: doc})
}

func (s *MemoryStore) CreateAll(_ context.Context, docs ...Doc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if coll, ok := s.collections[doc.Collection]; ok {
			if _, exists := coll[doc.ID]; exists {
				return ErrConflict
			}
		}
	}
	for _, doc := range docs {
		payload, err := json.Marshal(doc.Data)
		if err != nil {
			return fmt.Errorf("encode document %s/%s: %w", doc.Collection, doc.ID, err)
		}
		coll, ok := s.collections[doc.Collection]
		if !ok {
			coll = make(map[string][]byte)
			s.collections[doc.Collection] = coll
		}
		coll[doc.ID] = payload
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if coll, ok := s.collections[collection]; ok {
		if data, exists := coll[id]; exists {
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	data, exists := coll[id]
	if !exists {
		return ErrNotFound
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return err
	}
	for key, value := range fields {
		doc[key] = value
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode merged document: %w", err)
	}
	coll[id] = merged
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if coll, ok := s.collections[collection]; ok {
		if _, exists := coll[id]; exists {
			delete(coll, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters ...Filter) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}

	var docs [][]byte
	for _, data := range coll {
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		if matchesFilters(doc, filters) {
			out := make([]byte, len(data))
			copy(out, data)
			docs = append(docs, out)
		}
	}
	return docs, nil
}

func decodeDocument(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	// Preserve int64 precision; float64 decoding would corrupt snowflake IDs.
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func matchesFilters(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		value, ok := doc[f.Field]
		if !ok {
			return false
		}
		if fmt.Sprint(value) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}
