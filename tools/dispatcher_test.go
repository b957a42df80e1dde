package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/inkwell/events"
	"github.com/inkwell-ai/inkwell/patch"
	"github.com/inkwell-ai/inkwell/storage"
)

func newTestDispatcher() (*Dispatcher, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewDispatcher(store, zerolog.Nop()), store
}

func TestDispatchCreateDocument(t *testing.T) {
	d, store := newTestDispatcher()

	args := `{"title":"Vision","content":"# Vision\n\nGoals.","type":"prd"}`
	out := d.Dispatch(context.Background(), "proj-1", nil, "create_document", json.RawMessage(args))

	if out.IsError {
		t.Fatalf("unexpected error: %s", out.ResultText)
	}
	if out.Notification == nil || out.Notification.Type != events.TypeDocumentCreated {
		t.Fatalf("expected DOCUMENT_CREATED notification, got %+v", out.Notification)
	}

	docs, err := store.ListDocuments(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 persisted document, got %d", len(docs))
	}
	if docs[0].Title != "Vision" || docs[0].DocType != "prd" {
		t.Errorf("persisted document wrong: %+v", docs[0])
	}
	if out.Notification.DocumentID != docs[0].ID {
		t.Error("notification must carry the persisted document id")
	}
}

func TestDispatchCreateDocumentMissingFields(t *testing.T) {
	d, store := newTestDispatcher()

	out := d.Dispatch(context.Background(), "proj-1", nil, "create_document",
		json.RawMessage(`{"title":"No content"}`))
	if !out.IsError {
		t.Fatal("expected error outcome")
	}

	docs, _ := store.ListDocuments(context.Background(), "proj-1")
	if len(docs) != 0 {
		t.Error("no document must be persisted on validation failure")
	}
}

func TestDispatchMalformedJSON(t *testing.T) {
	d, store := newTestDispatcher()

	out := d.Dispatch(context.Background(), "proj-1", nil, "update_document",
		json.RawMessage(`{"document_id": "x", "content": `))
	if !out.IsError {
		t.Fatal("expected error outcome for malformed JSON")
	}
	if !strings.HasPrefix(out.ResultText, "Error: Failed to parse tool input") {
		t.Errorf("unexpected result text: %q", out.ResultText)
	}
	if out.Notification != nil {
		t.Error("no notification on parse failure")
	}

	docs, _ := store.ListDocuments(context.Background(), "proj-1")
	if len(docs) != 0 {
		t.Error("no side effect on parse failure")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _ := newTestDispatcher()

	out := d.Dispatch(context.Background(), "proj-1", nil, "summon_intern", json.RawMessage(`{}`))
	if out.ResultText != "Unknown tool: summon_intern" {
		t.Errorf("got %q", out.ResultText)
	}
	if out.Notification != nil {
		t.Error("unknown tools produce no notification")
	}
}

func TestDispatchPatchToolWithoutActiveDocument(t *testing.T) {
	d, _ := newTestDispatcher()

	out := d.Dispatch(context.Background(), "proj-1", nil, "find_and_replace",
		json.RawMessage(`{"find":"a","replace":"b"}`))
	if out.IsError {
		t.Error("missing active document is a structured unavailable result, not an error")
	}
	if !strings.Contains(out.ResultText, "unavailable") {
		t.Errorf("got %q", out.ResultText)
	}
}

func activeDocFixture(t *testing.T, store *storage.MemoryStore, content string) *ActiveDocument {
	t.Helper()
	doc, err := store.CreateDocument(context.Background(), storage.Document{
		ProjectID: "proj-1",
		Title:     "Brief",
		Content:   content,
		DocType:   "prd",
	})
	if err != nil {
		t.Fatalf("fixture document: %v", err)
	}
	return &ActiveDocument{ID: doc.ID, Title: doc.Title, DocType: doc.DocType, Content: doc.Content}
}

func TestDispatchFindAndReplaceEditsAndPersists(t *testing.T) {
	d, store := newTestDispatcher()
	active := activeDocFixture(t, store, "# Brief\n\nShip the MVP.\n")

	out := d.Dispatch(context.Background(), "proj-1", active, "find_and_replace",
		json.RawMessage(`{"find":"MVP","replace":"first release"}`))
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.ResultText)
	}
	if out.Notification == nil || out.Notification.Type != events.TypeDocumentEdit {
		t.Fatal("expected DOCUMENT_EDIT notification")
	}
	if !strings.Contains(active.Content, "first release") {
		t.Error("in-memory active content must be refreshed")
	}

	persisted, err := store.GetDocument(context.Background(), active.ID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if persisted.Content != active.Content {
		t.Error("persisted content must match the in-memory copy")
	}
	if out.Notification.Content != active.Content {
		t.Error("notification must carry the full new content")
	}
}

func TestDispatchFindAndReplaceMiss(t *testing.T) {
	d, store := newTestDispatcher()
	original := "# Brief\n\nNothing to see.\n"
	active := activeDocFixture(t, store, original)

	out := d.Dispatch(context.Background(), "proj-1", active, "find_and_replace",
		json.RawMessage(`{"find":"ZZZ","replace":"Y"}`))
	if !out.IsError {
		t.Fatal("expected error outcome")
	}
	if !strings.Contains(out.ResultText, "Error:") {
		t.Errorf("result must contain Error:, got %q", out.ResultText)
	}
	if out.Notification != nil {
		t.Error("no DOCUMENT_EDIT on a failed patch")
	}

	persisted, _ := store.GetDocument(context.Background(), active.ID)
	if persisted.Content != original {
		t.Error("document content must be unchanged after a failed patch")
	}
	if active.Content != original {
		t.Error("in-memory content must be unchanged after a failed patch")
	}
}

func TestDispatchReplaceSelection(t *testing.T) {
	d, store := newTestDispatcher()
	active := activeDocFixture(t, store, "alpha beta gamma")
	active.Selection = &patch.Selection{Text: "beta", StartOffset: 6, EndOffset: 10}

	out := d.Dispatch(context.Background(), "proj-1", active, "replace_selection",
		json.RawMessage(`{"new_text":"BETA"}`))
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.ResultText)
	}
	if active.Content != "alpha BETA gamma" {
		t.Errorf("got %q", active.Content)
	}
}

func TestDispatchUpdateDocumentRefreshesActive(t *testing.T) {
	d, store := newTestDispatcher()
	active := activeDocFixture(t, store, "old content")

	out := d.Dispatch(context.Background(), "proj-1", active, "update_document",
		json.RawMessage(`{"document_id":"`+active.ID+`","content":"new content"}`))
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.ResultText)
	}
	if out.Notification == nil || out.Notification.Type != events.TypeDocumentUpdated {
		t.Fatal("expected DOCUMENT_UPDATED notification")
	}
	if active.Content != "new content" {
		t.Error("active document content must be refreshed after update_document")
	}
}

func TestCatalogPartitioning(t *testing.T) {
	withoutDoc := Catalog(false)
	for _, def := range withoutDoc {
		if RequiresDocument(Name(def.Name)) {
			t.Errorf("tool %s must not be offered without an active document", def.Name)
		}
	}

	withDoc := Catalog(true)
	if len(withDoc) != len(withoutDoc)+5 {
		t.Errorf("expected the five patch tools to be added, got %d vs %d", len(withDoc), len(withoutDoc))
	}

	names := map[string]bool{}
	for _, def := range withDoc {
		names[def.Name] = true
		if def.InputSchema["type"] != "object" {
			t.Errorf("tool %s schema must be an object", def.Name)
		}
	}
	for _, want := range []Name{CreateDocument, UpdateDocument, ReplaceSelection, InsertAtPosition, ReplaceSection, FindAndReplace, RewriteDocument} {
		if !names[string(want)] {
			t.Errorf("catalog missing %s", want)
		}
	}
}
