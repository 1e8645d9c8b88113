package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// boilerplateSelector names the elements removed before text
// extraction; chrome and scripts would otherwise flood the matcher
// with navigation labels.
const boilerplateSelector = "script, style, nav, footer, header"

// htmlText parses markup and returns the whitespace-joined text of the
// remaining nodes plus the trimmed document title.
func htmlText(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(boilerplateSelector).Remove()

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		appendText(&b, node)
	}
	return strings.TrimSpace(b.String()), title, nil
}

// appendText walks the node tree collecting trimmed text nodes joined
// by single spaces.
func appendText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(b, c)
	}
}
