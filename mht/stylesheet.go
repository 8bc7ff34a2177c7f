package mht

import (
	"errors"
	"regexp"
	"strings"
)

const (
	stylesheetLocation = "Content-Location: main.css"
	stylesheetLink     = `<link rel="stylesheet" type="text/css" href="main.css">`
)

var stylesheetMarker = regexp.MustCompile(regexp.QuoteMeta(stylesheetLocation))

// RelocateStylesheet replaces the main.css link tag with an inline style
// block holding the embedded main.css part. It returns the number of
// stylesheet bytes inlined; zero means the text came back unchanged.
func RelocateStylesheet(text string) (string, int, error) {
	hasLink := strings.Contains(text, stylesheetLink)

	part, err := ExtractPart(text, stylesheetMarker, Boundary)
	if err != nil {
		if !hasLink {
			return text, 0, nil
		}
		return "", 0, relabel(err, "relocate stylesheet", stylesheetLocation)
	}
	if !hasLink {
		return text, 0, nil
	}

	return strings.Replace(text, stylesheetLink, "<style>"+part.Body+"</style>", 1), len(part.Body), nil
}

// relabel attributes an extraction failure to the calling pass. A missing
// header is reported by its literal form rather than the regexp source.
func relabel(err error, pass, literal string) error {
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		return err
	}
	marker := malformed.Marker
	if marker != Boundary {
		marker = literal
	}
	return &MalformedInputError{Pass: pass, Marker: marker}
}
