package mht

import (
	"regexp"
	"strings"
)

// Boundary terminates the body of every part in the archives this package
// understands. Only the fixed prefix is matched; the generated suffix varies.
const Boundary = "--=_NextPart_SMP"

// Part is a MIME part located by its Content-Location header line.
type Part struct {
	// Location is the matched header line, e.g. "Content-Location: main.css".
	Location string
	// Span covers the header line through the byte before the terminator.
	Span Span
	// Body is the part content with the header line and blank line removed.
	Body string
}

// ExtractPart returns the first part whose header matches marker. The body
// ends at the first terminator following the header.
func ExtractPart(text string, marker *regexp.Regexp, terminator string) (Part, error) {
	loc := marker.FindStringIndex(text)
	if loc == nil {
		return Part{}, missing("extract part", marker.String())
	}
	return partAt(text, loc, terminator)
}

// ExtractParts returns every part whose header matches marker, in document
// order. No match yields an empty slice and no error.
func ExtractParts(text string, marker *regexp.Regexp, terminator string) ([]Part, error) {
	locs := marker.FindAllStringIndex(text, -1)
	parts := make([]Part, 0, len(locs))
	for _, loc := range locs {
		part, err := partAt(text, loc, terminator)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func partAt(text string, loc []int, terminator string) (Part, error) {
	start := loc[0]
	end := strings.Index(text[start:], terminator)
	if end < 0 {
		return Part{}, missing("extract part", terminator)
	}
	end += start

	location := text[loc[0]:loc[1]]
	return Part{
		Location: location,
		Span:     Span{Start: start, End: end},
		Body:     stripHeader(text[start:end], len(location)),
	}, nil
}

// stripHeader drops the header block and the blank line ending it. Parts
// produced by the recorder end their headers with Content-Location, so this
// is normally just the matched line plus CRLF CRLF.
func stripHeader(section string, headerLen int) string {
	rest := section[headerLen:]
	crlf := strings.Index(rest, "\r\n\r\n")
	lf := strings.Index(rest, "\n\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return rest[crlf+4:]
	case lf >= 0:
		return rest[lf+2:]
	}
	return strings.TrimLeft(rest, "\r\n")
}
