// Package mht converts recorded-steps MHTML archives into standalone HTML.
//
// The conversion is a fixed sequence of text passes over the raw archive:
// JPEG parts are inlined as data URIs, the main.css part replaces its link
// tag, and finally the MIME and XML scaffolding is cut away. Scaffold
// stripping must run last because it discards the part boundaries the first
// two passes search for.
package mht

import "strings"

const (
	// MIMEType is the content type of every converted document.
	MIMEType = "text/html"

	sourceSuffix = ".mht"
	outputSuffix = "_cleaned.html"
)

// Report summarises what a conversion did.
type Report struct {
	Images          ImageStats
	StylesheetBytes int
	Scaffold        ScaffoldStats
}

// StylesheetRelocated reports whether the main.css link was replaced.
func (r Report) StylesheetRelocated() bool {
	return r.StylesheetBytes > 0
}

// LogAttrs returns the report as slog key/value pairs.
func (r Report) LogAttrs() []any {
	return []any{
		"imageParts", r.Images.Parts,
		"imageAttributes", r.Images.Attributes,
		"inlined", r.Images.Inlined,
		"untouched", r.Images.Untouched,
		"dropped", r.Images.Dropped,
		"stylesheetBytes", r.StylesheetBytes,
		"recordedXMLRemoved", r.Scaffold.RecordedXMLRemoved,
		"slideShowRemoved", r.Scaffold.SlideShowRemoved,
	}
}

// Result is a converted document ready for delivery.
type Result struct {
	HTML     string
	FileName string
	MIMEType string
	Report   Report
}

// Convert runs the image, stylesheet and scaffold passes over raw and derives
// the output file name from fileName. Converting an already converted
// document returns it unchanged, unless the archive linked main.css more than
// once: only the first link is replaced, so the remaining one has no part to
// resolve against and the second conversion fails with a MalformedInputError.
func Convert(raw, fileName string) (Result, error) {
	var report Report

	text, images, err := InlineImages(raw)
	if err != nil {
		return Result{}, err
	}
	report.Images = images

	text, report.StylesheetBytes, err = RelocateStylesheet(text)
	if err != nil {
		return Result{}, err
	}

	text, report.Scaffold, err = StripScaffold(text)
	if err != nil {
		return Result{}, err
	}

	return Result{
		HTML:     text,
		FileName: OutputFileName(fileName),
		MIMEType: MIMEType,
		Report:   report,
	}, nil
}

// OutputFileName strips a trailing ".mht" (exact case) and appends
// "_cleaned.html". "demo.MHT" becomes "demo.MHT_cleaned.html".
func OutputFileName(name string) string {
	return strings.TrimSuffix(name, sourceSuffix) + outputSuffix
}
