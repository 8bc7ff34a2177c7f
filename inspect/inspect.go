// Package inspect reports on the contents of a recorded-steps archive and on
// the document it converts to.
package inspect

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	// Registered so mislabelled screenshot parts can be identified.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/emersion/go-message/textproto"

	"github.com/dhcgn/mht-to-html/mht"
)

// Report is the result of inspecting one archive.
type Report struct {
	Name      string
	Size      int
	Parts     []PartInfo
	Recording *Recording
	Output    *Output
	// ConvertErr is set when the archive could not be converted.
	ConvertErr error
}

// PartInfo describes a MIME part as declared by its headers.
type PartInfo struct {
	Index       int
	ContentType string
	Location    string
	Encoding    string
	Size        int
	// Format is the decoded image format for image parts, if recognised.
	Format string
	Width  int
	Height int
}

// Inspect analyses raw. Failures to convert are recorded in the report rather
// than returned.
func Inspect(name string, raw []byte) (Report, error) {
	text := string(raw)
	report := Report{Name: name, Size: len(raw)}

	parts, err := ListParts(text)
	if err != nil {
		return report, err
	}
	report.Parts = parts

	if block, ok := mht.ExtractRecordedXML(text); ok {
		rec, err := ParseRecording(block)
		if err != nil {
			return report, fmt.Errorf("recorded xml: %w", err)
		}
		report.Recording = rec
	}

	res, err := mht.Convert(text, name)
	if err != nil {
		report.ConvertErr = err
		return report, nil
	}

	out, err := AnalyzeOutput(res)
	if err != nil {
		return report, err
	}
	report.Output = out

	return report, nil
}

// ListParts splits text on the part boundary and reads each part's header
// block. The preamble before the first boundary is skipped.
func ListParts(text string) ([]PartInfo, error) {
	segments := strings.Split(text, mht.Boundary)
	if len(segments) < 2 {
		return nil, nil
	}

	var parts []PartInfo
	for i, segment := range segments[1:] {
		// The rest of the boundary line; "--" marks the closing boundary.
		nl := strings.IndexByte(segment, '\n')
		if nl < 0 {
			break
		}
		if strings.HasPrefix(strings.TrimLeft(segment[:nl], "_0123456789abcdefABCDEF"), "--") {
			break
		}

		br := bufio.NewReader(strings.NewReader(segment[nl+1:]))
		header, err := textproto.ReadHeader(br)
		if err != nil {
			return nil, fmt.Errorf("part %d header: %w", i+1, err)
		}

		body := segment[nl+1:]
		if idx := headerEnd(body); idx >= 0 {
			body = body[idx:]
		}

		info := PartInfo{
			Index:       i + 1,
			ContentType: header.Get("Content-Type"),
			Location:    header.Get("Content-Location"),
			Encoding:    strings.ToLower(header.Get("Content-Transfer-Encoding")),
			Size:        len(body),
		}
		if isImagePart(info) && info.Encoding == "base64" {
			info.Format, info.Width, info.Height = sniffImage(body)
		}
		parts = append(parts, info)
	}
	return parts, nil
}

// Mislabelled reports whether an image part declared as JPEG decodes as
// something else.
func (p PartInfo) Mislabelled() bool {
	return strings.HasSuffix(p.Location, ".JPEG") && p.Format != "" && p.Format != "jpeg"
}

func isImagePart(p PartInfo) bool {
	return strings.HasPrefix(strings.ToLower(p.ContentType), "image/") || strings.HasSuffix(p.Location, ".JPEG")
}

func headerEnd(s string) int {
	crlf := strings.Index(s, "\r\n\r\n")
	lf := strings.Index(s, "\n\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf + 4
	case lf >= 0:
		return lf + 2
	}
	return -1
}

func sniffImage(payload string) (format string, width, height int) {
	dec := base64.NewDecoder(base64.StdEncoding, strings.NewReader(strings.TrimSpace(payload)))
	cfg, format, err := image.DecodeConfig(dec)
	if err != nil {
		return "", 0, 0
	}
	return format, cfg.Width, cfg.Height
}

// Issues lists anything a reader of the converted document would notice.
func (r Report) Issues() []string {
	var issues []string
	if r.ConvertErr != nil {
		issues = append(issues, fmt.Sprintf("conversion failed: %v", r.ConvertErr))
	}
	for _, p := range r.Parts {
		if p.Mislabelled() {
			issues = append(issues, fmt.Sprintf("part %d (%s) is %s, not jpeg", p.Index, p.Location, p.Format))
		}
	}
	if r.Output == nil {
		return issues
	}
	if n := r.Output.UnresolvedImages; n > 0 {
		issues = append(issues, fmt.Sprintf("%d image(s) still reference a .JPEG file", n))
	}
	if n := r.Output.Conversion.Images.Dropped; n > 0 {
		issues = append(issues, fmt.Sprintf("%d image part(s) had no matching img tag", n))
	}
	if n := r.Output.StylesheetLinks; n > 0 {
		issues = append(issues, fmt.Sprintf("%d stylesheet link(s) remain", n))
	}
	return issues
}
