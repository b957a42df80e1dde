// Package events defines the output stream protocol.
//
// Every occurrence on the response stream - assistant text included - is a
// single-line JSON event. Consumers read newline-delimited JSON; there is no
// raw text mixed between events.
package events

import (
	"github.com/inkwell-ai/inkwell/llm"
)

// Type identifies a stream event.
type Type string

const (
	// TypeText carries a chunk of assistant output text.
	TypeText Type = "TEXT"
	// TypeDocumentCreated signals a new document was persisted.
	TypeDocumentCreated Type = "DOCUMENT_CREATED"
	// TypeDocumentUpdated signals an existing document was replaced.
	TypeDocumentUpdated Type = "DOCUMENT_UPDATED"
	// TypeDocumentEdit signals the active document was patched; Content
	// carries the full new document.
	TypeDocumentEdit Type = "DOCUMENT_EDIT"
	// TypeWebSearchStarted signals a provider-side web search began.
	TypeWebSearchStarted Type = "WEB_SEARCH_STARTED"
	// TypeWebSearchCitations carries the citations of a completed text block.
	TypeWebSearchCitations Type = "WEB_SEARCH_CITATIONS"
	// TypeError reports a mid-stream fatal error.
	TypeError Type = "ERROR"
	// TypeDone closes the stream cleanly.
	TypeDone Type = "DONE"
)

// Event is one stream occurrence. Unused fields are omitted from JSON.
type Event struct {
	Type         Type           `json:"type"`
	Text         string         `json:"text,omitempty"`
	DocumentID   string         `json:"documentId,omitempty"`
	Title        string         `json:"title,omitempty"`
	DocumentType string         `json:"documentType,omitempty"`
	Content      string         `json:"content,omitempty"`
	Citations    []llm.Citation `json:"citations,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Text creates a TEXT event.
func Text(text string) Event {
	return Event{Type: TypeText, Text: text}
}

// DocumentCreated creates a DOCUMENT_CREATED event.
func DocumentCreated(id, title, docType string) Event {
	return Event{Type: TypeDocumentCreated, DocumentID: id, Title: title, DocumentType: docType}
}

// DocumentUpdated creates a DOCUMENT_UPDATED event.
func DocumentUpdated(id, title, docType string) Event {
	return Event{Type: TypeDocumentUpdated, DocumentID: id, Title: title, DocumentType: docType}
}

// DocumentEdit creates a DOCUMENT_EDIT event carrying the full new content.
func DocumentEdit(id, content string) Event {
	return Event{Type: TypeDocumentEdit, DocumentID: id, Content: content}
}

// WebSearchStarted creates a WEB_SEARCH_STARTED event.
func WebSearchStarted() Event {
	return Event{Type: TypeWebSearchStarted}
}

// WebSearchCitations creates a WEB_SEARCH_CITATIONS event.
func WebSearchCitations(citations []llm.Citation) Event {
	return Event{Type: TypeWebSearchCitations, Citations: citations}
}

// Error creates an ERROR event.
func Error(message string) Event {
	return Event{Type: TypeError, Error: message}
}

// Done creates a DONE event.
func Done() Event {
	return Event{Type: TypeDone}
}

// Sink receives stream events in emission order. Implementations are not
// required to be safe for concurrent use; the orchestration loop sends from
// a single goroutine.
type Sink interface {
	Send(event Event) error
}
