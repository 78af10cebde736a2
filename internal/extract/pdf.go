package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFExtractor extracts page text from PDFs. pdfcpu decodes each page's
// content stream to disk; the text-showing operators (Tj, TJ, ', ") are
// then parsed out of the stream.
type PDFExtractor struct{}

func pdfPageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	return n, nil
}

func (e *PDFExtractor) Pages(path string) ([]string, error) {
	count, err := pdfPageCount(path)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "docdex-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := api.ExtractContentFile(path, tmp, nil, nil); err != nil {
		return nil, fmt.Errorf("extracting content of %s: %w", path, err)
	}

	// pdfcpu names the dumps <base>_Content_page_<n>.txt; glob loosely
	// and order by the trailing page number.
	matches, err := filepath.Glob(filepath.Join(tmp, "*_page_*.txt"))
	if err != nil {
		return nil, err
	}
	byPage := make(map[int]string, len(matches))
	for _, m := range matches {
		num, ok := pageNumber(m)
		if !ok {
			continue
		}
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("reading extracted page: %w", err)
		}
		byPage[num] = contentStreamText(data)
	}

	return assemblePages(byPage, count), nil
}

// assemblePages orders extracted page texts by page number. Pages with
// no content stream dump stay empty in place so later pages keep their
// position.
func assemblePages(byPage map[int]string, count int) []string {
	pages := make([]string, count)
	for n := 1; n <= count; n++ {
		pages[n-1] = byPage[n]
	}
	return pages
}

func pageNumber(path string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".txt")
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// contentStreamText walks a decoded content stream and concatenates the
// operands of the text-showing operators. Positioning operators become
// whitespace so words do not run together.
func contentStreamText(data []byte) string {
	var (
		out     strings.Builder
		pending []string
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		for _, s := range pending {
			out.WriteString(s)
		}
		pending = pending[:0]
		out.WriteByte(' ')
	}

	for i := 0; i < len(data); {
		switch c := data[i]; {
		case c == '(':
			s, next := parseLiteralString(data, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] != '<':
			s, next := parseHexString(data, i)
			pending = append(pending, s)
			i = next
		case c == '%':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case isRegular(c):
			j := i
			for j < len(data) && isRegular(data[j]) {
				j++
			}
			switch string(data[i:j]) {
			case "Tj", "TJ", "'", "\"":
				flush()
			case "Td", "TD", "T*", "ET":
				flush()
				if out.Len() > 0 {
					out.WriteByte('\n')
				}
			}
			i = j
		default:
			i++
		}
	}
	flush()

	var lines []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', '\x00', '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}

// parseLiteralString decodes a ( ... ) string starting at open. Handles
// balanced parens, backslash escapes and octal codes.
func parseLiteralString(data []byte, open int) (string, int) {
	var raw []byte
	depth := 0
	i := open
	for ; i < len(data); i++ {
		c := data[i]
		if c == '\\' && i+1 < len(data) {
			i++
			switch e := data[i]; e {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b', 'f':
			case '\n':
			case '(', ')', '\\':
				raw = append(raw, e)
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for n := 0; n < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; n++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					raw = append(raw, byte(v))
				} else {
					raw = append(raw, e)
				}
			}
			continue
		}
		if c == '(' {
			depth++
			if depth > 1 {
				raw = append(raw, c)
			}
			continue
		}
		if c == ')' {
			depth--
			if depth == 0 {
				i++
				break
			}
			raw = append(raw, c)
			continue
		}
		raw = append(raw, c)
	}
	return decodePDFString(raw), i
}

// parseHexString decodes a < ... > string starting at open.
func parseHexString(data []byte, open int) (string, int) {
	i := open + 1
	var hex []byte
	for ; i < len(data) && data[i] != '>'; i++ {
		c := data[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			hex = append(hex, c)
		}
	}
	if i < len(data) {
		i++
	}
	if len(hex)%2 == 1 {
		hex = append(hex, '0')
	}
	raw := make([]byte, len(hex)/2)
	for j := 0; j < len(raw); j++ {
		hi, _ := strconv.ParseUint(string(hex[2*j:2*j+2]), 16, 8)
		raw[j] = byte(hi)
	}
	return decodePDFString(raw), i
}

// decodePDFString interprets UTF-16BE strings by their BOM; everything
// else passes through as single-byte text.
func decodePDFString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		u := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			u = append(u, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(u))
	}
	return string(raw)
}
