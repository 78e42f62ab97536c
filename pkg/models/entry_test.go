package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntryType(t *testing.T) {
	cases := []struct {
		in   string
		want EntryType
	}{
		{"Manhwa", TypeManhwa},
		{"MANHWA", TypeManhwa},
		{"manhua", TypeManhua},
		{"LightNovel", TypeLightNovel},
		{"Light Novel", TypeLightNovel},
		{"Light_Novel", TypeLightNovel},
		{"western", TypeWestern},
		{" Manhwa ", TypeManhwa},
		{"Manga", ""},
		{"Sheet1", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseEntryType(tc.in), "input %q", tc.in)
	}
}
