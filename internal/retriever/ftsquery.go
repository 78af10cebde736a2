package retriever

import (
	"regexp"
	"strings"
	"unicode"
)

var wsRE = regexp.MustCompile(`\s+`)

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

// normalizeWS collapses runs of whitespace to single spaces.
func normalizeWS(s string) string {
	return wsRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// cleanQuery replaces smart quotes with plain ones and normalizes
// whitespace, so LLM-produced rewrites are safe FTS input.
func cleanQuery(s string) string {
	if s == "" {
		return ""
	}
	return normalizeWS(smartQuotes.Replace(s))
}

// prepTerm turns one analysis term into an FTS literal: already-quoted
// terms pass through, multi-word terms become exact phrases with interior
// quotes doubled.
func prepTerm(term string) string {
	t := cleanQuery(term)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, `"`) && strings.HasSuffix(t, `"`) && len(t) > 1 {
		return t
	}
	if strings.ContainsFunc(t, unicode.IsSpace) {
		return `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return t
}

// prepTerms cleans every term, dropping empties and duplicates while
// preserving order.
func prepTerms(terms []string) []string {
	var out []string
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		lit := prepTerm(t)
		if lit == "" || seen[lit] {
			continue
		}
		seen[lit] = true
		out = append(out, lit)
	}
	return out
}

// buildFTSQuery composes the lexical match expression: the cleaned
// keyword text as the base group (or the OR of must-terms when there is
// no keyword text), OR-combined with an optional-terms group.
func buildFTSQuery(keywordText string, mustTerms, shouldTerms []string) string {
	var groups []string

	if cleaned := cleanQuery(keywordText); cleaned != "" {
		groups = append(groups, "("+cleaned+")")
	} else if must := prepTerms(mustTerms); len(must) > 0 {
		groups = append(groups, "("+strings.Join(must, " OR ")+")")
	}

	if optional := prepTerms(shouldTerms); len(optional) > 0 {
		groups = append(groups, "("+strings.Join(optional, " OR ")+")")
	}

	if len(groups) == 0 {
		return `""`
	}
	return strings.Join(groups, " OR ")
}
