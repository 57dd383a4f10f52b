// Package pagetext models text recovered from a document along with the
// page each piece came from.
package pagetext

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Method records which extraction path produced the text.
type Method int

const (
	// DigitalParse means the text came from the PDF's embedded text layer.
	DigitalParse Method = iota
	// OCR means the text was recognized from rendered page images.
	OCR
)

func (m Method) String() string {
	switch m {
	case DigitalParse:
		return "digital"
	case OCR:
		return "ocr"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

func (m Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Method) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML renders the method name for CLI output.
func (m Method) MarshalYAML() (any, error) {
	return m.String(), nil
}

// ParseMethod is the inverse of Method.String.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "digital":
		return DigitalParse, nil
	case "ocr":
		return OCR, nil
	default:
		return 0, fmt.Errorf("unknown extraction method: %q", s)
	}
}

// PageText is the text of one physical page. PageNumber is 1-based.
type PageText struct {
	PageNumber int    `json:"page_number" yaml:"page_number"`
	Text       string `json:"text" yaml:"text"`
}

// ExtractionResult is everything recovered from one document.
//
// Pages holds only pages with non-blank text, ordered by page number. It is
// empty when no page boundaries could be recovered.
type ExtractionResult struct {
	FullText string     `json:"full_text" yaml:"full_text"`
	Method   Method     `json:"method" yaml:"method"`
	Pages    []PageText `json:"pages" yaml:"pages"`
}

// pageSeparator joins page texts into the full text.
const pageSeparator = "\n\n"

// FromPages builds a result from per-page texts in physical order. Index i
// becomes page i+1; pages that are blank after trimming are dropped.
func FromPages(method Method, texts []string) *ExtractionResult {
	pages := make([]PageText, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		pages = append(pages, PageText{PageNumber: i + 1, Text: t})
	}
	return &ExtractionResult{
		FullText: JoinPages(pages),
		Method:   method,
		Pages:    pages,
	}
}

// SinglePage wraps a blob with no recoverable page boundaries. Non-blank
// text becomes page 1; blank text yields no pages.
func SinglePage(method Method, text string) *ExtractionResult {
	text = strings.TrimSpace(text)
	res := &ExtractionResult{
		FullText: text,
		Method:   method,
		Pages:    []PageText{},
	}
	if text != "" {
		res.Pages = append(res.Pages, PageText{PageNumber: 1, Text: text})
	}
	return res
}

// JoinPages concatenates page texts in sequence order.
func JoinPages(pages []PageText) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, pageSeparator)
}

// PageNumbers returns the set of page numbers present in the result.
func (r *ExtractionResult) PageNumbers() map[int]bool {
	set := make(map[int]bool, len(r.Pages))
	for _, p := range r.Pages {
		set[p.PageNumber] = true
	}
	return set
}

// TrimmedLength is the character count of the trimmed page texts. Page
// separators do not count, so many near-empty pages cannot add up to
// meaningful text. Without pages it measures the trimmed full text.
func (r *ExtractionResult) TrimmedLength() int {
	if len(r.Pages) == 0 {
		return utf8.RuneCountInString(strings.TrimSpace(r.FullText))
	}
	n := 0
	for _, p := range r.Pages {
		n += utf8.RuneCountInString(strings.TrimSpace(p.Text))
	}
	return n
}
