// Package storage provides document and conversation persistence.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interfaces
// - Allows swapping between memory and SQLite without API changes
// - Each implementation encapsulates its own data structures and schema
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Document is a project-owned plain-text document. Content is an opaque
// UTF-8 string (markdown); it is only ever replaced wholesale, never
// partially mutated in the store.
type Document struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	DocType   string    `json:"documentType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DocumentUpdate carries the fields of a document to change. Nil fields are
// left untouched; Content replacement is atomic.
type DocumentUpdate struct {
	Title   *string
	Content *string
	DocType *string
}

// DocumentStore persists documents.
type DocumentStore interface {
	// CreateDocument stores a new document, assigning an ID when empty.
	CreateDocument(ctx context.Context, doc Document) (Document, error)

	// GetDocument returns a document by ID, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (Document, error)

	// UpdateDocument applies the update atomically and returns the new
	// state, or ErrNotFound.
	UpdateDocument(ctx context.Context, id string, update DocumentUpdate) (Document, error)

	// ListDocuments returns all documents of a project.
	ListDocuments(ctx context.Context, projectID string) ([]Document, error)
}

// Turn is one persisted conversation turn. Only the durable user/assistant
// exchange is stored; synthetic tool-exchange turns from the orchestration
// loop are never persisted.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationStore persists conversation history per session.
type ConversationStore interface {
	// AppendTurns appends turns to a session's history, creating the
	// session on first use.
	AppendTurns(ctx context.Context, sessionID string, turns []Turn) error

	// LoadTurns loads a session's history. Returns an empty slice (not
	// nil) for unknown sessions; errors are storage failures only.
	LoadTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// DeleteSession removes a session and its turns.
	DeleteSession(ctx context.Context, sessionID string) error
}

// Store combines document and conversation persistence.
type Store interface {
	DocumentStore
	ConversationStore
}
