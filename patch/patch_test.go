package patch

import (
	"fmt"
	"strings"
	"testing"
)

const sampleDoc = `# Product Brief

## Overview
We are building an MVP for early adopters.
The MVP ships next quarter.

## Pricing
Free tier plus a paid plan.

## FAQ
Nothing yet.
`

func TestFindAndReplaceFirstOccurrence(t *testing.T) {
	result := FindAndReplace(sampleDoc, "MVP", "minimum viable product", false)
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}

	first := strings.Index(result.NewContent, "minimum viable product")
	if first < 0 {
		t.Fatal("replacement text not found")
	}
	// Only the first occurrence changes; the second "MVP" survives.
	if !strings.Contains(result.NewContent, "The MVP ships") {
		t.Error("second occurrence should not have been replaced")
	}
	// Everything outside the replaced span is byte-identical.
	expected := strings.Replace(sampleDoc, "MVP", "minimum viable product", 1)
	if result.NewContent != expected {
		t.Errorf("unexpected content:\n%s", result.NewContent)
	}
}

func TestFindAndReplaceAll(t *testing.T) {
	result := FindAndReplace(sampleDoc, "MVP", "minimum viable product", true)
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	if strings.Contains(result.NewContent, "MVP") {
		t.Error("all occurrences should have been replaced")
	}
	if !strings.Contains(result.Message, "2 occurrences") {
		t.Errorf("message should report the count, got %q", result.Message)
	}
}

func TestFindAndReplaceAbsentSubstring(t *testing.T) {
	result := FindAndReplace(sampleDoc, "ZZZ", "Y", false)
	if result.Success {
		t.Fatal("expected failure for absent substring")
	}
	if result.NewContent != sampleDoc {
		t.Error("failed call must leave content unmodified")
	}
}

func TestFindAndReplaceEmptyFind(t *testing.T) {
	result := FindAndReplace(sampleDoc, "", "x", false)
	if result.Success {
		t.Fatal("expected failure for empty search text")
	}
	if result.NewContent != sampleDoc {
		t.Error("failed call must leave content unmodified")
	}
}

func TestReplaceSectionPreservesFollowingSection(t *testing.T) {
	result := ReplaceSection(sampleDoc, "## Pricing", "Contact sales for pricing.")
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	if !strings.Contains(result.NewContent, "## Pricing\nContact sales for pricing.") {
		t.Errorf("new body not in place:\n%s", result.NewContent)
	}
	if strings.Contains(result.NewContent, "Free tier") {
		t.Error("old section body should be gone")
	}
	if !strings.Contains(result.NewContent, "## FAQ\nNothing yet.\n") {
		t.Error("following section must be untouched")
	}
	if !strings.Contains(result.NewContent, "## Overview\nWe are building") {
		t.Error("preceding section must be untouched")
	}
}

func TestReplaceSectionHeadingMatchIgnoresMarkers(t *testing.T) {
	// Caller passes the heading without '#' markers.
	result := ReplaceSection(sampleDoc, "Pricing", "New body.")
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	if !strings.Contains(result.NewContent, "## Pricing\nNew body.") {
		t.Errorf("heading line must be preserved:\n%s", result.NewContent)
	}
}

func TestReplaceSectionExtendsToEOF(t *testing.T) {
	result := ReplaceSection(sampleDoc, "FAQ", "Q: when?\nA: soon.\n")
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	if !strings.HasSuffix(result.NewContent, "## FAQ\nQ: when?\nA: soon.\n") {
		t.Errorf("last section should extend to end of document:\n%s", result.NewContent)
	}
}

func TestReplaceSectionNotFound(t *testing.T) {
	result := ReplaceSection(sampleDoc, "Roadmap", "body")
	if result.Success {
		t.Fatal("expected failure for missing heading")
	}
	if result.NewContent != sampleDoc {
		t.Error("failed call must leave content unmodified")
	}
}

func TestReplaceSectionDeeperHeadingsStayInside(t *testing.T) {
	doc := "## A\nbody a\n### A1\nnested\n## B\nbody b\n"
	result := ReplaceSection(doc, "A", "flat")
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	if strings.Contains(result.NewContent, "### A1") {
		t.Error("sub-heading belongs to the replaced section")
	}
	if !strings.Contains(result.NewContent, "## B\nbody b\n") {
		t.Error("sibling section must be untouched")
	}
}

func TestInsertAtPositionAnchors(t *testing.T) {
	tests := []struct {
		name     string
		anchor   string
		text     string
		ok       bool
		contains string
	}{
		{"start", AnchorStart, "PREFACE", true, "PREFACE\n# Product Brief"},
		{"end", AnchorEnd, "THE END", true, "Nothing yet.\nTHE END"},
		{"after heading", "after_heading:Overview", "INSERTED", true, "## Overview\nINSERTED\nWe are building"},
		{"line", "line:2", "LINE2", true, "# Product Brief\nLINE2\n"},
		{"line clamped", "line:9999", "TAIL", true, "TAIL"},
		{"missing heading", "after_heading:Roadmap", "X", false, ""},
		{"bad anchor", "middle", "X", false, ""},
		{"bad line number", "line:abc", "X", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InsertAtPosition(sampleDoc, tt.text, tt.anchor)
			if result.Success != tt.ok {
				t.Fatalf("success=%v, want %v (%s)", result.Success, tt.ok, result.Message)
			}
			if !tt.ok {
				if result.NewContent != sampleDoc {
					t.Error("failed call must leave content unmodified")
				}
				return
			}
			if !strings.Contains(result.NewContent, tt.contains) {
				t.Errorf("content missing %q:\n%s", tt.contains, result.NewContent)
			}
		})
	}
}

func TestInsertMessageReportsSplicedSize(t *testing.T) {
	doc := "line one"
	result := InsertAtPosition(doc, "TAIL", AnchorEnd)
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	// joinInsert adds a separating newline, so the edit is one byte larger
	// than the inserted text; the message must count the actual splice.
	grew := len(result.NewContent) - len(doc)
	if grew != len("\nTAIL") {
		t.Fatalf("content grew by %d bytes", grew)
	}
	want := fmt.Sprintf("Inserted %d characters", grew)
	if !strings.Contains(result.Message, want) {
		t.Errorf("message %q does not report the spliced size %d", result.Message, grew)
	}
}

func TestInsertAfterHeadingBeforeNextHeading(t *testing.T) {
	doc := "# Intro\n\nText here\n## Next\nmore\n"
	result := InsertAtPosition(doc, "X", "after_heading:Intro")
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	headingIdx := strings.Index(result.NewContent, "# Intro")
	xIdx := strings.Index(result.NewContent, "X")
	nextIdx := strings.Index(result.NewContent, "## Next")
	if !(headingIdx < xIdx && xIdx < nextIdx) {
		t.Errorf("X must be strictly between the heading and the next heading:\n%s", result.NewContent)
	}
}

func TestInsertIntoEmptyDocument(t *testing.T) {
	result := InsertAtPosition("", "Hello", AnchorStart)
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	if result.NewContent != "Hello" {
		t.Errorf("got %q", result.NewContent)
	}
}

func TestRewriteDocumentIdempotent(t *testing.T) {
	once := RewriteDocument(sampleDoc, "fresh start")
	if !once.Success {
		t.Fatal("rewrite must always succeed")
	}
	twice := RewriteDocument(once.NewContent, "fresh start")
	if twice.NewContent != once.NewContent {
		t.Error("rewrite must be idempotent under repeated application")
	}
}

func TestReplaceSelectionRoundTrip(t *testing.T) {
	start := strings.Index(sampleDoc, "early adopters")
	sel := &Selection{
		Text:            "early adopters",
		StartOffset:     start,
		EndOffset:       start + len("early adopters"),
		ContentSnapshot: sampleDoc,
	}

	result := ReplaceSelection(sampleDoc, sel, "design partners")
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Message)
	}
	expected := strings.Replace(sampleDoc, "early adopters", "design partners", 1)
	if result.NewContent != expected {
		t.Errorf("exactly the captured span must be replaced:\n%s", result.NewContent)
	}

	// The captured text no longer appears: a second application fails.
	again := ReplaceSelection(result.NewContent, sel, "whoever")
	if again.Success {
		t.Fatal("expected failure once the selected text is gone")
	}
	if again.NewContent != result.NewContent {
		t.Error("failed call must leave content unmodified")
	}
}

func TestReplaceSelectionStaleOffsetsFallBackToSearch(t *testing.T) {
	// Content drifted: text moved, offsets stale.
	drifted := "NEW PREAMBLE\n" + sampleDoc
	sel := &Selection{
		Text:            "Free tier plus a paid plan.",
		StartOffset:     strings.Index(sampleDoc, "Free tier"),
		EndOffset:       strings.Index(sampleDoc, "Free tier") + len("Free tier plus a paid plan."),
		ContentSnapshot: sampleDoc,
	}

	result := ReplaceSelection(drifted, sel, "Usage-based pricing.")
	if !result.Success {
		t.Fatalf("expected fallback search to succeed: %s", result.Message)
	}
	if !strings.Contains(result.NewContent, "Usage-based pricing.") {
		t.Error("replacement missing")
	}
	if strings.Contains(result.NewContent, "Free tier") {
		t.Error("selected text should have been replaced")
	}
}

func TestReplaceSelectionNilSelection(t *testing.T) {
	result := ReplaceSelection(sampleDoc, nil, "x")
	if result.Success {
		t.Fatal("expected failure without a selection")
	}
	if result.NewContent != sampleDoc {
		t.Error("failed call must leave content unmodified")
	}
}

func TestSelectionResolveOffsetFastPath(t *testing.T) {
	content := "abc def abc"
	// Offsets point at the second "abc"; the fast path must win over the
	// first-occurrence search.
	sel := &Selection{Text: "abc", StartOffset: 8, EndOffset: 11}
	start, end, ok := sel.Resolve(content)
	if !ok || start != 8 || end != 11 {
		t.Fatalf("got (%d,%d,%v), want (8,11,true)", start, end, ok)
	}
}
