package mht

import "strings"

// Span is a half-open byte range [Start, End) within a document.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// findSpan locates open in text starting at offset from, then close after it.
// The returned span covers open through close inclusive. openFound reports
// whether the opening literal was present at all, so callers can tell an
// absent region from a truncated one.
func findSpan(text, open, close string, from int) (span Span, openFound, ok bool) {
	if from < 0 || from > len(text) {
		return Span{}, false, false
	}
	start := strings.Index(text[from:], open)
	if start < 0 {
		return Span{}, false, false
	}
	start += from

	end := strings.Index(text[start+len(open):], close)
	if end < 0 {
		return Span{Start: start, End: start + len(open)}, true, false
	}
	end += start + len(open) + len(close)

	return Span{Start: start, End: end}, true, true
}

// cut returns text with span removed.
func cut(text string, span Span) string {
	return text[:span.Start] + text[span.End:]
}

// keep returns only the part of text covered by span.
func keep(text string, span Span) string {
	return text[span.Start:span.End]
}
