// Package extract converts fetched documents into plain text.
package extract

import (
	"fmt"
	"strings"

	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// maxPDFTitleLen bounds the URL-derived title for PDF documents.
const maxPDFTitleLen = 200

// PDFReader extracts text from PDF bytes. Implementations must treat
// a missing text layer as empty text, not an error.
type PDFReader interface {
	Text(body []byte) (string, error)
}

// Extractor dispatches to a format-specific strategy. The PDF strategy
// is injected so the service degrades to a no-op when PDF support is
// disabled.
type Extractor struct {
	pdf PDFReader
}

// New builds an Extractor around the given PDF strategy.
func New(pdf PDFReader) *Extractor {
	if pdf == nil {
		pdf = NoopPDF{}
	}
	return &Extractor{pdf: pdf}
}

// Extract returns the document's plain text and best-effort title.
// Empty text with a nil error means there is nothing to scan.
func (e *Extractor) Extract(doc scanner.Document) (string, string, error) {
	switch doc.Type {
	case scanner.DocumentPDF:
		text, err := e.pdf.Text(doc.Body)
		if err != nil {
			return "", "", fmt.Errorf("extract pdf text: %w", err)
		}
		// PDFs rarely expose a usable title field; fall back to the
		// final path segment of the URL.
		return text, pdfTitle(doc.URL), nil
	default:
		return htmlText(doc.Body)
	}
}

func pdfTitle(rawURL string) string {
	title := rawURL
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		title = rawURL[i+1:]
	}
	if len(title) > maxPDFTitleLen {
		title = title[:maxPDFTitleLen]
	}
	return title
}
