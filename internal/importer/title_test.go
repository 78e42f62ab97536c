package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseImportedTitleNoParens(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Solo Leveling", "Solo Leveling"},
		{"  Solo   Leveling  ", "Solo Leveling"},
		{"Omniscient Reader's Viewpoint", "Omniscient Reader's Viewpoint"},
	}
	for _, tc := range cases {
		main, alts := ParseImportedTitle(tc.in, ParenKeepKeywords)
		assert.Equal(t, tc.want, main, "input %q", tc.in)
		assert.Empty(t, alts, "input %q", tc.in)
	}
}

func TestParseImportedTitleKeepsKeywordParens(t *testing.T) {
	main, alts := ParseImportedTitle("Title (Season 2)", ParenKeepKeywords)
	assert.Equal(t, "Title (Season 2)", main)
	assert.Empty(t, alts)

	main, alts = ParseImportedTitle("Tower of God (Part 3)", ParenKeepKeywords)
	assert.Equal(t, "Tower of God (Part 3)", main)
	assert.Empty(t, alts)

	// keyword match is case-insensitive substring containment
	main, alts = ParseImportedTitle("Reborn (REMAKE)", ParenKeepKeywords)
	assert.Equal(t, "Reborn (REMAKE)", main)
	assert.Empty(t, alts)
}

func TestParseImportedTitleExtractsAltNames(t *testing.T) {
	main, alts := ParseImportedTitle("Title (Alt Name)", ParenKeepKeywords)
	assert.Equal(t, "Title", main)
	assert.Equal(t, []string{"Alt Name"}, alts)
}

func TestParseImportedTitleSplitsAndDedupes(t *testing.T) {
	main, alts := ParseImportedTitle("Title (Alt A; Alt B, Alt A)", ParenKeepKeywords)
	assert.Equal(t, "Title", main)
	assert.Equal(t, []string{"Alt A", "Alt B"}, alts)

	// dedup is case-insensitive, first casing wins
	_, alts = ParseImportedTitle("Title (Alt A; ALT A / alt a)", ParenKeepKeywords)
	assert.Equal(t, []string{"Alt A"}, alts)
}

func TestParseImportedTitleMultipleGroups(t *testing.T) {
	main, alts := ParseImportedTitle("Main (First Alt) Story (Second Alt / Third Alt)", ParenKeepKeywords)
	assert.Equal(t, "Main Story", main)
	assert.Equal(t, []string{"First Alt", "Second Alt", "Third Alt"}, alts)
}

func TestParseImportedTitleOnlyKeepParenthetical(t *testing.T) {
	main, alts := ParseImportedTitle("(Season 2)", ParenKeepKeywords)
	assert.Equal(t, "(Season 2)", main)
	assert.Empty(t, alts)
}

func TestParseImportedTitleEmpty(t *testing.T) {
	main, alts := ParseImportedTitle("   ", ParenKeepKeywords)
	assert.Equal(t, "", main)
	assert.Empty(t, alts)
}

func TestNormalizeWhitespaceIdempotent(t *testing.T) {
	inputs := []string{"Solo Leveling", "  a \t b\n c ", "single"}
	for _, in := range inputs {
		once := NormalizeWhitespace(in)
		assert.Equal(t, once, NormalizeWhitespace(once), "input %q", in)
	}
}
