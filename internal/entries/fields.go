package entries

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"comictracker/pkg/models"
)

// Sentinel tokens that mean "no data" wherever they appear in a field.
var unknownTokens = map[string]struct{}{
	"":        {},
	"?":       {},
	"n/a":     {},
	"na":      {},
	"unknown": {},
	"-":       {},
}

// NormalizeField trims a raw field value and maps sentinel tokens to absent.
func NormalizeField(value string) (string, bool) {
	s := strings.TrimSpace(value)
	if _, absent := unknownTokens[strings.ToLower(s)]; absent {
		return "", false
	}
	return s, true
}

// ParseIntField parses a numeric field, truncating toward zero. Unparseable
// input degrades to absent, never an error.
func ParseIntField(value string) *int {
	s, ok := NormalizeField(value)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

var scoreRatioRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)$`)

// ParseScore accepts a plain number or a "numerator/denominator" ratio.
// Ratios are rescaled to 0-10. The result is clamped to [0, 10] and rounded
// to two decimals.
func ParseScore(value string) *float64 {
	s, ok := NormalizeField(value)
	if !ok {
		return nil
	}

	score := math.NaN()
	if m := scoreRatioRe.FindStringSubmatch(s); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && den > 0 {
			score = (num / den) * 10
		}
	} else if f, err := strconv.ParseFloat(s, 64); err == nil {
		score = f
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil
	}
	score = math.Max(0, math.Min(10, score))
	score = math.Round(score*100) / 100
	return &score
}

func ParseStatus(value string) *models.EntryStatus {
	s, ok := NormalizeField(value)
	if !ok {
		return nil
	}
	var st models.EntryStatus
	switch strings.ToUpper(s) {
	case "CR", "CURRENT":
		st = models.StatusCurrent
	case "COM", "COMPLETED":
		st = models.StatusCompleted
	default:
		return nil
	}
	return &st
}

// ParseDateField is the manual-entry date parser: plain ISO dates or full
// RFC 3339 timestamps, truncated to midnight UTC. The import path has its
// own, more tolerant parser for spreadsheet-native representations.
func ParseDateField(value string) *time.Time {
	s, ok := NormalizeField(value)
	if !ok {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
