package search

import (
	"sort"
	"strings"
)

type span struct {
	start, end int
}

// Highlight wraps every case-insensitive occurrence of the given words in
// text with the open/close markers. Spans are located against the original
// text and merged before any marker is inserted, so overlapping or adjacent
// words cannot corrupt markers inserted by an earlier word.
func Highlight(text string, words []string, open, close string) string {
	spans := matchSpans(text, words)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(open)+len(close)))
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])
		b.WriteString(open)
		b.WriteString(text[s.start:s.end])
		b.WriteString(close)
		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// matchSpans returns the merged, ordered byte spans where any word occurs
// in text, case-insensitively.
func matchSpans(text string, words []string) []span {
	lower := strings.ToLower(text)
	var spans []span
	for _, w := range words {
		w = strings.ToLower(w)
		if w == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(lower[from:], w)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, span{start: start, end: start + len(w)})
			from = start + 1
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
