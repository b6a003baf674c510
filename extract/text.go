package extract

import (
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type TextExtractor interface {
	ExtractText(r io.Reader) (string, error)
}

var ErrNoText = errors.New("extract: no visible text")

// HTMLText prefers the main or article landmark and falls back to the body.
type HTMLText struct{}

var regions = []string{"main", "article", "body"}

var invisible = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

func (HTMLText) ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	sel := doc.Selection
	for _, region := range regions {
		if found := doc.Find(region).First(); found.Length() > 0 {
			sel = found
			break
		}
	}
	var lines []string
	for _, n := range sel.Nodes {
		lines = appendText(lines, n)
	}
	if len(lines) == 0 {
		return "", ErrNoText
	}
	return strings.Join(lines, "\n"), nil
}

func appendText(lines []string, n *html.Node) []string {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			lines = append(lines, s)
		}
		return lines
	case html.ElementNode:
		if invisible[n.Data] {
			return lines
		}
	case html.CommentNode:
		return lines
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		lines = appendText(lines, c)
	}
	return lines
}
