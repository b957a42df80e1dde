// Tool Dispatcher: executes completed model tool calls.
//
// Model-emitted arguments are untrusted input. Parse failures and execution
// errors become textual tool results fed back into the conversation so the
// model can self-correct; a dispatch never aborts the outer stream.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/inkwell/events"
	"github.com/inkwell-ai/inkwell/patch"
	"github.com/inkwell-ai/inkwell/storage"
)

// ActiveDocument is the document the user has open for AI-assisted editing
// in the requesting session. Content tracks the latest persisted state and
// is updated in place after each successful edit, so every subsequent
// prompt build sees the current document.
type ActiveDocument struct {
	ID        string
	Title     string
	DocType   string
	Content   string
	Selection *patch.Selection
}

// Outcome is the result of dispatching one tool call.
type Outcome struct {
	// ResultText is fed back to the model as the tool result.
	ResultText string
	// IsError marks the tool result as an error for the model.
	IsError bool
	// Notification is an out-of-band stream event to surface to the
	// client, if the tool produced one.
	Notification *events.Event
}

func errorOutcome(format string, args ...any) Outcome {
	return Outcome{ResultText: fmt.Sprintf(format, args...), IsError: true}
}

// Dispatcher routes completed tool calls to their side effects.
type Dispatcher struct {
	store storage.DocumentStore
	log   zerolog.Logger
}

// NewDispatcher creates a dispatcher persisting through store.
func NewDispatcher(store storage.DocumentStore, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: store, log: log}
}

type createDocumentArgs struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type updateDocumentArgs struct {
	DocumentID string  `json:"document_id"`
	Title      *string `json:"title"`
	Content    string  `json:"content"`
}

type replaceSelectionArgs struct {
	NewText string `json:"new_text"`
}

type insertAtPositionArgs struct {
	Content  string `json:"content"`
	Position string `json:"position"`
}

type replaceSectionArgs struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type findAndReplaceArgs struct {
	Find       string `json:"find"`
	Replace    string `json:"replace"`
	ReplaceAll bool   `json:"replace_all"`
}

type rewriteDocumentArgs struct {
	Content string `json:"content"`
}

// Dispatch executes one completed tool call. projectID scopes document
// creation; active is the session's open document, nil when none is.
// The returned outcome always carries a result text; it never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, projectID string, active *ActiveDocument, name string, rawArgs json.RawMessage) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("tool", name).Any("panic", r).Msg("tool dispatch panicked")
			outcome = errorOutcome("Error: tool %s failed unexpectedly", name)
		}
	}()

	switch Name(name) {
	case CreateDocument:
		var args createDocumentArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		return d.createDocument(ctx, projectID, args)

	case UpdateDocument:
		var args updateDocumentArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		return d.updateDocument(ctx, active, args)

	case ReplaceSelection, InsertAtPosition, ReplaceSection, FindAndReplace, RewriteDocument:
		if active == nil {
			return Outcome{ResultText: fmt.Sprintf(
				"The %s tool is unavailable: no document is currently open for editing.", name)}
		}
		return d.dispatchPatch(ctx, active, Name(name), rawArgs)

	case WebSearch:
		// Executed by the provider; nothing to do here.
		return Outcome{ResultText: "web_search is executed by the model provider."}

	default:
		return Outcome{ResultText: fmt.Sprintf("Unknown tool: %s", name)}
	}
}

// parseArgs unmarshals untrusted model-emitted arguments. On failure it
// returns the error outcome to feed back, and ok=false.
func parseArgs(raw json.RawMessage, into any) (Outcome, bool) {
	if err := json.Unmarshal(raw, into); err != nil {
		return errorOutcome("Error: Failed to parse tool input - %v", err), false
	}
	return Outcome{}, true
}

func (d *Dispatcher) createDocument(ctx context.Context, projectID string, args createDocumentArgs) Outcome {
	if args.Title == "" || args.Content == "" || args.Type == "" {
		return errorOutcome("Error: create_document requires title, content and type")
	}

	doc, err := d.store.CreateDocument(ctx, storage.Document{
		ProjectID: projectID,
		Title:     args.Title,
		Content:   args.Content,
		DocType:   args.Type,
	})
	if err != nil {
		d.log.Error().Err(err).Str("title", args.Title).Msg("create document failed")
		return errorOutcome("Error: failed to create document: %v", err)
	}

	d.log.Info().Str("document_id", doc.ID).Str("title", doc.Title).Msg("document created")
	note := events.DocumentCreated(doc.ID, doc.Title, doc.DocType)
	return Outcome{
		ResultText:   fmt.Sprintf("Created document %q with id %s.", doc.Title, doc.ID),
		Notification: &note,
	}
}

func (d *Dispatcher) updateDocument(ctx context.Context, active *ActiveDocument, args updateDocumentArgs) Outcome {
	if args.DocumentID == "" || args.Content == "" {
		return errorOutcome("Error: update_document requires document_id and content")
	}

	doc, err := d.store.UpdateDocument(ctx, args.DocumentID, storage.DocumentUpdate{
		Title:   args.Title,
		Content: &args.Content,
	})
	if err != nil {
		d.log.Error().Err(err).Str("document_id", args.DocumentID).Msg("update document failed")
		return errorOutcome("Error: failed to update document %s: %v", args.DocumentID, err)
	}

	// Keep the session's view current when the model updated the open doc.
	if active != nil && active.ID == doc.ID {
		active.Content = doc.Content
		active.Title = doc.Title
	}

	note := events.DocumentUpdated(doc.ID, doc.Title, doc.DocType)
	return Outcome{
		ResultText:   fmt.Sprintf("Updated document %q.", doc.Title),
		Notification: &note,
	}
}

// dispatchPatch runs a patch operation against the active document, persists
// the new content, and refreshes the in-memory copy used by the next prompt.
func (d *Dispatcher) dispatchPatch(ctx context.Context, active *ActiveDocument, name Name, rawArgs json.RawMessage) Outcome {
	var result patch.Result

	switch name {
	case ReplaceSelection:
		var args replaceSelectionArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		result = patch.ReplaceSelection(active.Content, active.Selection, args.NewText)

	case InsertAtPosition:
		var args insertAtPositionArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		result = patch.InsertAtPosition(active.Content, args.Content, args.Position)

	case ReplaceSection:
		var args replaceSectionArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		result = patch.ReplaceSection(active.Content, args.Heading, args.Content)

	case FindAndReplace:
		var args findAndReplaceArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		result = patch.FindAndReplace(active.Content, args.Find, args.Replace, args.ReplaceAll)

	case RewriteDocument:
		var args rewriteDocumentArgs
		if out, ok := parseArgs(rawArgs, &args); !ok {
			return out
		}
		result = patch.RewriteDocument(active.Content, args.Content)
	}

	if !result.Success {
		return errorOutcome("Error: %s", result.Message)
	}

	if _, err := d.store.UpdateDocument(ctx, active.ID, storage.DocumentUpdate{
		Content: &result.NewContent,
	}); err != nil {
		d.log.Error().Err(err).Str("document_id", active.ID).Str("tool", string(name)).Msg("persist edit failed")
		return errorOutcome("Error: failed to save the edited document: %v", err)
	}

	active.Content = result.NewContent
	d.log.Info().Str("document_id", active.ID).Str("tool", string(name)).Msg("document edited")

	note := events.DocumentEdit(active.ID, result.NewContent)
	return Outcome{
		ResultText:   result.Message,
		Notification: &note,
	}
}
