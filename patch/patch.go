// Package patch performs structural edits on plain-text markdown documents.
//
// Every operation is a pure function from (document, arguments) to a
// Result carrying the entire new content. No operation partially applies:
// a failed call returns the input content unmodified. The document is an
// opaque string; there is no AST.
//
// Information Hiding:
// - Heading and section resolution internalized
// - Selection offset re-validation and search fallback internalized
package patch

import (
	"fmt"
	"strings"
)

// Result is the outcome of one patch operation. NewContent is always the
// full resulting document, never a diff; on failure it equals the input.
type Result struct {
	Success    bool
	NewContent string
	Message    string
}

func failure(content, format string, args ...any) Result {
	return Result{Success: false, NewContent: content, Message: fmt.Sprintf(format, args...)}
}

func success(content, format string, args ...any) Result {
	return Result{Success: true, NewContent: content, Message: fmt.Sprintf(format, args...)}
}

// Selection is a user-chosen text span captured client-side. Offsets are
// byte offsets into ContentSnapshot; content may have drifted since capture,
// so offsets are a hint, not a source of truth.
type Selection struct {
	Text            string `json:"text"`
	StartOffset     int    `json:"startOffset"`
	EndOffset       int    `json:"endOffset"`
	ContentSnapshot string `json:"contentSnapshot,omitempty"`
}

// Resolve locates the selection in content. The stored offsets are tried
// first; if the content at those offsets no longer matches the captured
// text, the first exact occurrence of the text is used instead. Returns
// the resolved [start, end) span, or ok=false when the captured text no
// longer appears anywhere.
func (s *Selection) Resolve(content string) (start, end int, ok bool) {
	if s == nil || s.Text == "" {
		return 0, 0, false
	}
	if s.StartOffset >= 0 && s.EndOffset <= len(content) && s.StartOffset <= s.EndOffset {
		if content[s.StartOffset:s.EndOffset] == s.Text {
			return s.StartOffset, s.EndOffset, true
		}
	}
	idx := strings.Index(content, s.Text)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(s.Text), true
}

// ReplaceSelection replaces the selected span with newText. Requires a
// selection that still resolves against content; fails without mutating
// when the selected text can no longer be located.
func ReplaceSelection(content string, sel *Selection, newText string) Result {
	if sel == nil || sel.Text == "" {
		return failure(content, "No text selection available. Select text in the document first.")
	}
	start, end, ok := sel.Resolve(content)
	if !ok {
		return failure(content, "Could not locate the selected text; the document has changed since the selection was made.")
	}
	return success(content[:start]+newText+content[end:],
		"Replaced the selected text (%d characters).", end-start)
}

// Insert anchors.
const (
	AnchorStart       = "start"
	AnchorEnd         = "end"
	anchorHeadingPfx  = "after_heading:"
	anchorLineModePfx = "line:"
)

// InsertAtPosition inserts text at a named anchor: "start", "end",
// "after_heading:<Heading>" (immediately after the heading line and its
// trailing blank line, if present), or "line:<N>" (before 1-indexed line N,
// clamped to document bounds). Fails when an after_heading target is not
// found.
func InsertAtPosition(content, text, anchor string) Result {
	// Messages report the spliced size, which can exceed len(text) when
	// joinInsert adds a separating newline.
	switch {
	case anchor == AnchorStart:
		out := joinInsert("", text, content)
		return success(out, "Inserted %d characters at the start of the document.", len(out)-len(content))

	case anchor == AnchorEnd:
		out := joinInsert(content, text, "")
		return success(out, "Inserted %d characters at the end of the document.", len(out)-len(content))

	case strings.HasPrefix(anchor, anchorHeadingPfx):
		heading := strings.TrimPrefix(anchor, anchorHeadingPfx)
		pos, ok := afterHeading(content, heading)
		if !ok {
			return failure(content, "Heading %q not found in the document.", heading)
		}
		out := joinInsert(content[:pos], text, content[pos:])
		return success(out, "Inserted %d characters after heading %q.", len(out)-len(content), heading)

	case strings.HasPrefix(anchor, anchorLineModePfx):
		n, err := parseLineNumber(strings.TrimPrefix(anchor, anchorLineModePfx))
		if err != nil {
			return failure(content, "Invalid line anchor %q: %v", anchor, err)
		}
		pos, line := lineOffset(content, n)
		out := joinInsert(content[:pos], text, content[pos:])
		return success(out, "Inserted %d characters before line %d.", len(out)-len(content), line)

	default:
		return failure(content, "Unknown position %q. Use start, end, after_heading:<heading>, or line:<number>.", anchor)
	}
}

// ReplaceSection replaces a markdown section: the heading line plus all
// content up to (but not including) the next heading of equal or higher
// level, or end of document. The heading is matched ignoring leading '#'
// markers and surrounding whitespace. newContent becomes the section body;
// the heading line itself is preserved.
func ReplaceSection(content, heading, newContent string) Result {
	sec, ok := findSection(content, heading)
	if !ok {
		return failure(content, "Section with heading %q not found.", heading)
	}

	var b strings.Builder
	b.WriteString(content[:sec.bodyStart])
	b.WriteString(newContent)
	rest := content[sec.end:]
	if rest != "" && !strings.HasSuffix(newContent, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(rest)

	return success(b.String(), "Replaced section %q.", heading)
}

// FindAndReplace replaces literal occurrences of find with replace. By
// default only the first occurrence in document order is replaced; with
// replaceAll, every occurrence is. Zero occurrences is a failure, not a
// silent success, so callers can surface it to the model.
func FindAndReplace(content, find, replace string, replaceAll bool) Result {
	if find == "" {
		return failure(content, "Search text must not be empty.")
	}
	count := strings.Count(content, find)
	if count == 0 {
		return failure(content, "Text %q not found in the document.", find)
	}

	if replaceAll {
		return success(strings.ReplaceAll(content, find, replace),
			"Replaced %d occurrence%s of %q.", count, plural(count), find)
	}
	return success(strings.Replace(content, find, replace, 1),
		"Replaced the first occurrence of %q.", find)
}

// RewriteDocument unconditionally replaces the entire document. Always
// succeeds; idempotent under repeated application with the same argument.
func RewriteDocument(content, newContent string) Result {
	_ = content
	return success(newContent, "Rewrote the document (%d characters).", len(newContent))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// joinInsert splices text between before and after, keeping the inserted
// block on its own lines.
func joinInsert(before, text, after string) string {
	var b strings.Builder
	b.WriteString(before)
	if before != "" && !strings.HasSuffix(before, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(text)
	if after != "" && !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(after)
	return b.String()
}
