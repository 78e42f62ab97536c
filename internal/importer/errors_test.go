package importer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateErrorShortMessageUntouched(t *testing.T) {
	assert.Equal(t, "read workbook: boom", truncateError(errors.New("read workbook: boom")))
}

func TestTruncateErrorKeepsRuneBoundary(t *testing.T) {
	// 나 is 3 bytes; 167 copies put a rune astride the 500-byte limit
	msg := strings.Repeat("나", 167)
	got := truncateError(errors.New(msg))

	assert.LessOrEqual(t, len(got), maxErrorLen)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("나", 166), got)
}
