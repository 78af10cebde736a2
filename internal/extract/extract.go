// Package extract turns uploaded files into per-page plain text. Each
// supported file type has an extractor; the indexing worker picks one by
// extension and fails the job for anything unsupported.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor produces one string per page. Formats without a page concept
// return a single page, except plain text which honors form feeds.
type Extractor interface {
	// Pages extracts the text of every page, in order.
	Pages(path string) ([]string, error)
}

// ForFile returns the extractor for the file's extension.
func ForFile(path string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".txt", ".text":
		return &PlainTextExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// PageCount reports how many pages the extractor would produce, without
// keeping the text. PDF short-circuits to the document page count.
func PageCount(path string) (int, error) {
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return pdfPageCount(path)
	}
	ex, err := ForFile(path)
	if err != nil {
		return 0, err
	}
	pages, err := ex.Pages(path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}
