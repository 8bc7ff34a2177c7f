package inspect

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/dhcgn/mht-to-html/mht"
)

var (
	selImages      = cascadia.MustCompile("img")
	selDataImages  = cascadia.MustCompile(`img[src^="data:image/jpeg;base64,"]`)
	selUnresolved  = cascadia.MustCompile(`img[src$="JPEG"]`)
	selStyles      = cascadia.MustCompile("style")
	selStylesheets = cascadia.MustCompile(`link[rel="stylesheet"]`)
	selTitle       = cascadia.MustCompile("title")
)

// Output describes the converted document.
type Output struct {
	FileName         string
	Bytes            int
	Title            string
	Images           int
	DataImages       int
	UnresolvedImages int
	StyleBlocks      int
	StylesheetLinks  int
	CSSRules         int
	Conversion       mht.Report
}

// AnalyzeOutput parses a conversion result and counts what ended up in it.
func AnalyzeOutput(res mht.Result) (*Output, error) {
	doc, err := html.Parse(strings.NewReader(res.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse output html: %w", err)
	}

	out := &Output{
		FileName:         res.FileName,
		Bytes:            len(res.HTML),
		Images:           len(cascadia.QueryAll(doc, selImages)),
		DataImages:       len(cascadia.QueryAll(doc, selDataImages)),
		UnresolvedImages: len(cascadia.QueryAll(doc, selUnresolved)),
		StylesheetLinks:  len(cascadia.QueryAll(doc, selStylesheets)),
		Conversion:       res.Report,
	}

	if title := cascadia.Query(doc, selTitle); title != nil {
		out.Title = strings.TrimSpace(textContent(title))
	}

	var css strings.Builder
	for _, style := range cascadia.QueryAll(doc, selStyles) {
		out.StyleBlocks++
		css.WriteString(textContent(style))
		css.WriteString("\n")
	}
	if css.Len() > 0 {
		sheet, err := parser.Parse(css.String())
		if err != nil {
			return nil, fmt.Errorf("parse inline css: %w", err)
		}
		out.CSSRules = len(sheet.Rules)
	}

	return out, nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
