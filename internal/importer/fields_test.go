package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateCellAbsent(t *testing.T) {
	for _, in := range []string{"", "   ", "?", "??", "????", "not a date"} {
		assert.Nil(t, parseDateCell(in), "input %q", in)
	}
}

func TestParseDateCellISO(t *testing.T) {
	got := parseDateCell("2023-04-17")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 17), *got)

	got = parseDateCell("2023/4/7")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 7), *got)
}

func TestParseDateCellAmbiguousTriplet(t *testing.T) {
	// first component greater than 12 must be the day
	got := parseDateCell("17/4/2023")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 17), *got)

	// second component greater than 12 must be the day
	got = parseDateCell("4/17/2023")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 17), *got)

	// both fit: first is the day
	got = parseDateCell("3/4/2023")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 3), *got)
}

func TestParseDateCellTwoDigitYears(t *testing.T) {
	got := parseDateCell("1/2/65")
	require.NotNil(t, got)
	assert.Equal(t, 2065, got.Year())

	got = parseDateCell("1/2/69")
	require.NotNil(t, got)
	assert.Equal(t, 2069, got.Year())

	got = parseDateCell("1/2/70")
	require.NotNil(t, got)
	assert.Equal(t, 1970, got.Year())

	got = parseDateCell("1/2/75")
	require.NotNil(t, got)
	assert.Equal(t, 1975, got.Year())
}

func TestParseDateCellSerial(t *testing.T) {
	// serial 1 on the 1899-12-30 epoch is 1899-12-31
	got := parseDateCell("1")
	require.NotNil(t, got)
	assert.Equal(t, date(1899, time.December, 31), *got)

	// 2023-04-17 is serial day 45033
	got = parseDateCell("45033")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 17), *got)

	// fractional serials carry a time of day; it is dropped
	got = parseDateCell("45033.75")
	require.NotNil(t, got)
	assert.Equal(t, date(2023, time.April, 17), *got)
}
