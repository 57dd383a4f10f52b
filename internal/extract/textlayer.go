package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of a PDF, one string per physical page.
type TextLayer interface {
	Pages(data []byte) ([]string, error)
}

// PDFTextLayer reads text layers with ledongthuc/pdf.
type PDFTextLayer struct{}

// Pages returns the plain text of every page in physical order. Pages with
// no text layer yield an empty string so positions stay aligned.
func (PDFTextLayer) Pages(data []byte) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: parser panic: %v", ErrUnreadable, r)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUnreadable)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
