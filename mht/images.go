package mht

import (
	"fmt"
	"regexp"
)

const imageLocation = "Content-Location: <name>.JPEG"

var (
	imageMarker    = regexp.MustCompile(`Content-Location: .*JPEG`)
	imageAttribute = regexp.MustCompile(`src="[^"]*JPEG"`)
)

// ImageStats describes one InlineImages pass.
type ImageStats struct {
	Parts      int
	Attributes int
	Inlined    int
	// Untouched counts attributes left as-is because the parts ran out.
	Untouched int
	// Dropped counts parts that had no attribute left to pair with.
	Dropped int
}

// InlineImages replaces src="....JPEG" attributes with data URIs built from
// the embedded JPEG parts. The base64 payload is copied verbatim.
func InlineImages(text string) (string, ImageStats, error) {
	parts, err := ExtractParts(text, imageMarker, Boundary)
	if err != nil {
		return "", ImageStats{}, relabel(err, "inline images", imageLocation)
	}

	uris := make([]string, 0, len(parts))
	for _, part := range parts {
		uris = append(uris, dataURI("image/jpeg", part.Body))
	}

	out, paired := pairByOrdinalPosition(text, imageAttribute, uris)

	st := ImageStats{
		Parts:      len(parts),
		Attributes: paired.occurrences,
		Inlined:    paired.replaced,
		Untouched:  paired.occurrences - paired.replaced,
		Dropped:    len(uris) - paired.replaced,
	}
	return out, st, nil
}

type pairing struct {
	occurrences int
	replaced    int
}

// pairByOrdinalPosition replaces the Nth match of attr with src="<Nth uri>".
// Pairing is by position alone; names are never compared. Matches beyond the
// end of uris are left untouched and unused uris are discarded.
func pairByOrdinalPosition(text string, attr *regexp.Regexp, uris []string) (string, pairing) {
	var p pairing
	queue := uris
	out := attr.ReplaceAllStringFunc(text, func(match string) string {
		p.occurrences++
		if len(queue) == 0 {
			return match
		}
		uri := queue[0]
		queue = queue[1:]
		p.replaced++
		return `src="` + uri + `"`
	})
	return out, p
}

func dataURI(mimeType, payload string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, payload)
}
