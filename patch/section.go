// Markdown heading and line resolution helpers.

package patch

import (
	"fmt"
	"strconv"
	"strings"
)

// headingLevel returns the ATX heading level of a line (1-6), or 0 when the
// line is not a heading.
func headingLevel(line string) int {
	trimmed := strings.TrimLeft(line, " \t")
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0
	}
	if level == len(trimmed) || trimmed[level] == ' ' || trimmed[level] == '\t' {
		return level
	}
	return 0
}

// headingText returns the heading's text with '#' markers and surrounding
// whitespace stripped.
func headingText(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	trimmed = strings.TrimLeft(trimmed, "#")
	return strings.TrimSpace(trimmed)
}

// matchesHeading reports whether a heading line matches the wanted heading,
// ignoring leading '#' markers and surrounding whitespace on both sides.
func matchesHeading(line, wanted string) bool {
	if headingLevel(line) == 0 {
		return false
	}
	want := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(wanted), "#"))
	return headingText(line) == want
}

// section describes a resolved markdown section as byte offsets into the
// document: [start, end) spans the heading line through the last body byte,
// bodyStart is the first byte after the heading line.
type section struct {
	start     int
	bodyStart int
	end       int
	level     int
}

// splitLines splits content into lines, each with its starting byte offset.
// The line text excludes the trailing newline.
func splitLines(content string) (lines []string, offsets []int) {
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			offsets = append(offsets, start)
			start = i + 1
		}
	}
	if start < len(content) || len(content) == 0 {
		lines = append(lines, content[start:])
		offsets = append(offsets, start)
	}
	return lines, offsets
}

// findSection locates the first section whose heading matches. The section
// ends at the next heading of equal or higher level (lower or equal number),
// or end of document.
func findSection(content, heading string) (section, bool) {
	lines, offsets := splitLines(content)

	for i, line := range lines {
		if !matchesHeading(line, heading) {
			continue
		}
		level := headingLevel(line)

		sec := section{
			start:     offsets[i],
			bodyStart: offsets[i] + len(line),
			level:     level,
			end:       len(content),
		}
		if sec.bodyStart < len(content) {
			sec.bodyStart++ // consume the heading line's newline
		}

		for j := i + 1; j < len(lines); j++ {
			if lv := headingLevel(lines[j]); lv > 0 && lv <= level {
				sec.end = offsets[j]
				break
			}
		}
		return sec, true
	}
	return section{}, false
}

// afterHeading returns the byte offset immediately after the heading line
// matching heading (case-sensitive on the heading text) and its trailing
// blank line, if present.
func afterHeading(content, heading string) (int, bool) {
	lines, offsets := splitLines(content)

	for i, line := range lines {
		if !matchesHeading(line, heading) {
			continue
		}
		pos := offsets[i] + len(line)
		if pos < len(content) {
			pos++ // newline after the heading line
		}
		// Skip a single trailing blank line.
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == "" {
			pos = offsets[i+1] + len(lines[i+1])
			if pos < len(content) {
				pos++
			}
		}
		return pos, true
	}
	return 0, false
}

// lineOffset returns the byte offset of the start of 1-indexed line n,
// clamped to document bounds, along with the clamped line number.
func lineOffset(content string, n int) (int, int) {
	lines, offsets := splitLines(content)
	if n < 1 {
		n = 1
	}
	if n > len(lines) {
		return len(content), len(lines) + 1
	}
	return offsets[n-1], n
}

func parseLineNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return n, nil
}
