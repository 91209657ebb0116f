package chunker

import (
	"strings"
)

// pageBreak separates pages in extracted text.
const pageBreak = "\f"

type cleanOptions struct {
	whitespace   bool
	emptyLines   bool
	headerFooter bool
}

// clean normalises whitespace and blank lines, then removes repeated
// headers and footers. Applying it twice gives the same result.
func clean(text string, opts cleanOptions) string {
	rawPages := strings.Split(text, pageBreak)
	pages := make([][]string, len(rawPages))

	for i, page := range rawPages {
		lines := strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n")
		kept := lines[:0]
		for _, line := range lines {
			if opts.whitespace {
				line = collapseSpaces(line)
			}
			if opts.emptyLines && strings.TrimSpace(line) == "" {
				continue
			}
			kept = append(kept, line)
		}
		pages[i] = kept
	}

	if opts.headerFooter && len(pages) > 1 {
		pages = stripHeaderFooter(pages)
	}

	joined := make([]string, len(pages))
	for i, lines := range pages {
		joined[i] = strings.Join(lines, "\n")
	}
	return strings.Join(joined, "\n")
}

// collapseSpaces trims a line and replaces runs of spaces and tabs by one space.
func collapseSpaces(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	space := false
	for _, r := range strings.TrimSpace(line) {
		if r == ' ' || r == '\t' {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripHeaderFooter drops the first and last non-blank line of each page
// when the same line opens (or closes) more than half of the pages.
func stripHeaderFooter(pages [][]string) [][]string {
	headers := make(map[string]int)
	footers := make(map[string]int)
	for _, lines := range pages {
		if first, ok := firstLine(lines); ok {
			headers[strings.TrimSpace(lines[first])]++
		}
		if last, ok := lastLine(lines); ok {
			footers[strings.TrimSpace(lines[last])]++
		}
	}

	repeated := func(counts map[string]int, line string) bool {
		return counts[strings.TrimSpace(line)]*2 > len(pages)
	}

	out := make([][]string, len(pages))
	for i, lines := range pages {
		first, hasFirst := firstLine(lines)
		last, hasLast := lastLine(lines)
		drop := make(map[int]bool, 2)
		if hasFirst && repeated(headers, lines[first]) {
			drop[first] = true
		}
		if hasLast && repeated(footers, lines[last]) {
			drop[last] = true
		}

		kept := make([]string, 0, len(lines))
		for j, line := range lines {
			if !drop[j] {
				kept = append(kept, line)
			}
		}
		out[i] = kept
	}
	return out
}

func firstLine(lines []string) (int, bool) {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i, true
		}
	}
	return 0, false
}

func lastLine(lines []string) (int, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i, true
		}
	}
	return 0, false
}
