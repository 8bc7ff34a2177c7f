package mht

import "strings"

const (
	recordedXMLMarker = "<!-- This is the recorded XML data that was used in generating this page. -->"
	recordedXMLEnd    = "</xml>"
	doctype           = "<!DOCTYPE html>"
	htmlEnd           = "</html>"
	slideShowItem     = `<li title="Review the recorded steps as a slide show">`
	listItemEnd       = "</li>"
)

// ScaffoldStats records which optional regions StripScaffold removed.
type ScaffoldStats struct {
	RecordedXMLRemoved bool
	SlideShowRemoved   bool
	// Trimmed is the number of bytes discarded outside the html element.
	Trimmed int
}

// StripScaffold removes the recorded XML block, everything outside
// <!DOCTYPE html>...</html>, and the slide show list item. The XML block and
// the list item are optional; the doctype and closing html tag are not.
func StripScaffold(text string) (string, ScaffoldStats, error) {
	var st ScaffoldStats

	span, found, ok := findSpan(text, recordedXMLMarker, recordedXMLEnd, 0)
	switch {
	case ok:
		text = cut(text, span)
		st.RecordedXMLRemoved = true
	case found:
		return "", st, missing("strip scaffold", recordedXMLEnd)
	}

	span, found, ok = findSpan(text, doctype, htmlEnd, 0)
	if !ok {
		if found {
			return "", st, missing("strip scaffold", htmlEnd)
		}
		return "", st, missing("strip scaffold", doctype)
	}
	st.Trimmed = len(text) - span.Len()
	text = keep(text, span)

	span, found, ok = findSpan(text, slideShowItem, listItemEnd, 0)
	switch {
	case ok:
		text = cut(text, span)
		st.SlideShowRemoved = true
	case found:
		return "", st, missing("strip scaffold", listItemEnd)
	}

	return text, st, nil
}

// ExtractRecordedXML returns the recorded XML block that StripScaffold would
// remove, without the leading comment. ok is false when there is none.
func ExtractRecordedXML(text string) (string, bool) {
	span, _, ok := findSpan(text, recordedXMLMarker, recordedXMLEnd, 0)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(keep(text, span)[len(recordedXMLMarker):]), true
}
