package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LedongPDF extracts text with github.com/ledongthuc/pdf, joining page
// text in order with newlines.
type LedongPDF struct{}

// Text implements PDFReader. Pages without a text layer are skipped;
// a document with no text layer at all yields an empty string.
func (LedongPDF) Text(body []byte) (text string, err error) {
	// The pdf package panics on some malformed documents; convert
	// that to an error so a broken upload only skips one URL.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// NoopPDF is the strategy used when PDF support is disabled. It
// returns empty text so the caller skips the document instead of
// failing the job.
type NoopPDF struct{}

// Text implements PDFReader.
func (NoopPDF) Text(_ []byte) (string, error) {
	return "", nil
}
