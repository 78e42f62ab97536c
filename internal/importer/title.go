package importer

import (
	"regexp"
	"strings"
)

// ParenKeepKeywords marks parenthetical groups that are version/season
// qualifiers rather than alternate names. Matching is case-insensitive
// substring containment.
var ParenKeepKeywords = []string{
	"remake",
	"season",
	"part",
	"s2",
	"s3",
	"vol",
	"volume",
	"spin-off",
}

var (
	parenGroupRe = regexp.MustCompile(`\([^)]+\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	altSplitRe   = regexp.MustCompile(`[;,/]`)
)

// NormalizeWhitespace trims and collapses internal whitespace runs to a
// single space. Idempotent.
func NormalizeWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func shouldKeepParen(content string, keywords []string) bool {
	lowered := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// ParseImportedTitle splits a raw spreadsheet title into the main title and a
// list of alternate names pulled out of parenthetical groups. Groups whose
// content matches a keep keyword stay in the main title; the rest are removed
// and split on ";", "," or "/" into alternate-title candidates. Candidates
// are deduplicated case-insensitively, first occurrence wins.
func ParseImportedTitle(rawTitle string, keywords []string) (string, []string) {
	normalized := NormalizeWhitespace(rawTitle)
	if normalized == "" {
		return "", nil
	}

	var alts []string
	withoutParens := parenGroupRe.ReplaceAllStringFunc(normalized, func(match string) string {
		content := NormalizeWhitespace(match[1 : len(match)-1])
		if content == "" || shouldKeepParen(content, keywords) {
			return match
		}
		for _, part := range altSplitRe.Split(content, -1) {
			if part = NormalizeWhitespace(part); part != "" {
				alts = append(alts, part)
			}
		}
		return " "
	})

	return NormalizeWhitespace(withoutParens), dedupeTitles(alts)
}

// dedupeTitles removes case-insensitive duplicates, keeping first-seen
// casing and order.
func dedupeTitles(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		normalized := NormalizeWhitespace(v)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
