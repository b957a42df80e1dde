// Package tools provides the tool catalog and dispatcher for the
// orchestration loop.
//
// Information Hiding:
// - Tool argument schemas and parsing internalized
// - Patch engine and persistence calls hidden behind Dispatch
// - Error handling internalized: a dispatch never panics outward
package tools

import (
	"github.com/inkwell-ai/inkwell/llm"
)

// Name identifies a tool in the closed catalog.
type Name string

const (
	CreateDocument   Name = "create_document"
	UpdateDocument   Name = "update_document"
	ReplaceSelection Name = "replace_selection"
	InsertAtPosition Name = "insert_at_position"
	ReplaceSection   Name = "replace_section"
	FindAndReplace   Name = "find_and_replace"
	RewriteDocument  Name = "rewrite_document"

	// WebSearch is executed by the model provider itself and is never
	// dispatched here; it appears for stream-event attribution only.
	WebSearch Name = "web_search"
)

// RequiresDocument reports whether a tool needs an active document open for
// editing. Patch tools are only offered to the model when one is.
func RequiresDocument(name Name) bool {
	switch name {
	case ReplaceSelection, InsertAtPosition, ReplaceSection, FindAndReplace, RewriteDocument:
		return true
	}
	return false
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Catalog returns the tool definitions offered to the model. Patch tools
// are included only when a document is open for editing.
func Catalog(hasActiveDocument bool) []llm.ToolDefinition {
	defs := []llm.ToolDefinition{
		{
			Name:        string(CreateDocument),
			Description: "Create a new document in the current project.",
			InputSchema: objectSchema(map[string]any{
				"title":   stringProp("Document title"),
				"content": stringProp("Full markdown content of the document"),
				"type":    stringProp("Document type, e.g. prd, spec, notes"),
			}, "title", "content", "type"),
		},
		{
			Name:        string(UpdateDocument),
			Description: "Replace the content (and optionally the title) of an existing document by id.",
			InputSchema: objectSchema(map[string]any{
				"document_id": stringProp("Id of the document to update"),
				"title":       stringProp("New title (optional)"),
				"content":     stringProp("Full replacement markdown content"),
			}, "document_id", "content"),
		},
	}

	if !hasActiveDocument {
		return defs
	}

	return append(defs,
		llm.ToolDefinition{
			Name:        string(ReplaceSelection),
			Description: "Replace the text the user currently has selected in the open document.",
			InputSchema: objectSchema(map[string]any{
				"new_text": stringProp("Text that replaces the selection"),
			}, "new_text"),
		},
		llm.ToolDefinition{
			Name:        string(InsertAtPosition),
			Description: "Insert content into the open document at a position: start, end, after_heading:<Heading>, or line:<N>.",
			InputSchema: objectSchema(map[string]any{
				"content":  stringProp("Content to insert"),
				"position": stringProp("One of: start, end, after_heading:<Heading>, line:<N>"),
			}, "content", "position"),
		},
		llm.ToolDefinition{
			Name:        string(ReplaceSection),
			Description: "Replace the body of a markdown section of the open document, identified by its heading.",
			InputSchema: objectSchema(map[string]any{
				"heading": stringProp("Heading of the section to replace, with or without '#' markers"),
				"content": stringProp("New section body"),
			}, "heading", "content"),
		},
		llm.ToolDefinition{
			Name:        string(FindAndReplace),
			Description: "Replace a literal text occurrence in the open document. Replaces the first occurrence unless replace_all is true.",
			InputSchema: objectSchema(map[string]any{
				"find":    stringProp("Literal text to find (not a regex)"),
				"replace": stringProp("Replacement text"),
				"replace_all": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence instead of only the first",
				},
			}, "find", "replace"),
		},
		llm.ToolDefinition{
			Name:        string(RewriteDocument),
			Description: "Replace the entire content of the open document. Only for large restructurings the user asked for.",
			InputSchema: objectSchema(map[string]any{
				"content": stringProp("Complete new document content"),
			}, "content"),
		},
	)
}
