package extract

import (
	"fmt"
	"os"
	"strings"
)

// PlainTextExtractor reads .txt files. Form feed characters act as page
// breaks; most files have none and come back as a single page.
type PlainTextExtractor struct{}

func (e *PlainTextExtractor) Pages(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var pages []string
	for _, part := range strings.Split(string(data), "\f") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, part)
	}
	return pages, nil
}
