// Package prompt assembles the system prompt for the orchestration loop.
//
// The prompt embeds the document content current at the time of the call,
// so it must be rebuilt on every loop iteration: tool side effects change
// the document between provider round trips.
package prompt

import (
	"fmt"
	"strings"

	"github.com/inkwell-ai/inkwell/patch"
)

// Context carries everything the system prompt is assembled from.
type Context struct {
	// AgentName and AgentDescription describe the assistant persona.
	AgentName        string
	AgentDescription string

	// ProjectName scopes document creation.
	ProjectName string

	// Document fields describe the active document; DocumentID empty means
	// no document is open for editing.
	DocumentID      string
	DocumentTitle   string
	DocumentType    string
	DocumentContent string

	// Selection is the user's current text selection, if any.
	Selection *patch.Selection

	// WebSearch reports whether the provider-side search tool is offered.
	WebSearch bool
}

// Build assembles the system prompt from the context. DocumentContent must
// be the latest content, not the one captured at request start.
func Build(ctx Context) string {
	var b strings.Builder

	name := ctx.AgentName
	if name == "" {
		name = "a document-drafting assistant"
	}
	fmt.Fprintf(&b, "You are %s helping the user write and refine project documents.\n", name)
	if ctx.AgentDescription != "" {
		b.WriteString(ctx.AgentDescription)
		b.WriteString("\n")
	}
	if ctx.ProjectName != "" {
		fmt.Fprintf(&b, "You are working inside the project %q.\n", ctx.ProjectName)
	}

	if ctx.DocumentID != "" {
		b.WriteString("\nACTIVE DOCUMENT\n")
		fmt.Fprintf(&b, "Title: %s\n", ctx.DocumentTitle)
		if ctx.DocumentType != "" {
			fmt.Fprintf(&b, "Type: %s\n", ctx.DocumentType)
		}
		b.WriteString("Current content:\n```markdown\n")
		b.WriteString(ctx.DocumentContent)
		if !strings.HasSuffix(ctx.DocumentContent, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
		b.WriteString("\nEdit this document with the patch tools (replace_selection, insert_at_position, " +
			"replace_section, find_and_replace). Prefer the smallest targeted edit; use rewrite_document " +
			"only when the user asks for a full restructuring. The content above is always the latest " +
			"state, including your own previous edits.\n")
	} else {
		b.WriteString("\nNo document is open for editing. Use create_document to produce new documents " +
			"in this project; do not attempt patch operations.\n")
	}

	if sel := ctx.Selection; sel != nil && sel.Text != "" {
		b.WriteString("\nSELECTED TEXT\n")
		b.WriteString("The user has selected the following text in the document:\n```\n")
		b.WriteString(sel.Text)
		if !strings.HasSuffix(sel.Text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
		b.WriteString("When the user asks for a change to \"this\" or \"the selection\", " +
			"apply it with replace_selection.\n")
	}

	if ctx.WebSearch {
		b.WriteString("\nYou may use web search to ground factual claims; cite sources when you do.\n")
	}

	return b.String()
}
