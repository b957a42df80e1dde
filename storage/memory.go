// In-memory storage for tests and ephemeral use.

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-process maps. Thread-safe.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	turns     map[string][]Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		turns:     make(map[string][]Turn),
	}
}

// CreateDocument stores a new document, assigning an ID when empty.
func (s *MemoryStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.documents[doc.ID] = doc
	return doc, nil
}

// GetDocument returns a document by ID.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// UpdateDocument applies the update atomically and returns the new state.
func (s *MemoryStore) UpdateDocument(ctx context.Context, id string, update DocumentUpdate) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if update.Title != nil {
		doc.Title = *update.Title
	}
	if update.Content != nil {
		doc.Content = *update.Content
	}
	if update.DocType != nil {
		doc.DocType = *update.DocType
	}
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return doc, nil
}

// ListDocuments returns all documents of a project.
func (s *MemoryStore) ListDocuments(ctx context.Context, projectID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.documents {
		if doc.ProjectID == projectID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// AppendTurns appends turns to a session's history.
func (s *MemoryStore) AppendTurns(ctx context.Context, sessionID string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[sessionID] = append(s.turns[sessionID], turns...)
	return nil
}

// LoadTurns loads a session's history in order.
func (s *MemoryStore) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.turns[sessionID]
	out := make([]Turn, len(stored))
	copy(out, stored)
	return out, nil
}

// DeleteSession removes a session and its turns.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, sessionID)
	return nil
}

// Verify MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
