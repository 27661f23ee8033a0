package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// EmptyFileReminder is the literal string Read returns for a zero-byte file
// (spec glossary: "Empty-file reminder").
const EmptyFileReminder = "System reminder: File exists but has empty contents"

// DefaultReadLimit is the default number of lines Read returns when limit<=0.
const DefaultReadLimit = 2000

// maxLineLen is the per-line length above which lines are split into
// continuation chunks (spec §8 boundary behavior).
const maxLineLen = 10000

// FormatNumberedLines renders lines[offset:offset+limit] in cat -n style:
// each printed as "␣␣␣␣␣N\t<line>", width 6, splitting any line longer than
// maxLineLen into "N.k" continuation chunks.
func FormatNumberedLines(lines []string, offset, limit int) string {
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return EmptyFileReminder
	}
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}
	if offset >= len(lines) {
		return ""
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		lineNum := i + 1
		line := lines[i]
		if len(line) <= maxLineLen {
			writeNumberedLine(&b, strconv.Itoa(lineNum), line)
			continue
		}
		chunk := 1
		for pos := 0; pos < len(line); pos += maxLineLen {
			stop := pos + maxLineLen
			if stop > len(line) {
				stop = len(line)
			}
			label := fmt.Sprintf("%d.%d", lineNum, chunk)
			writeNumberedLine(&b, label, line[pos:stop])
			chunk++
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeNumberedLine(b *strings.Builder, label, content string) {
	fmt.Fprintf(b, "%6s\t%s\n", label, content)
}
