package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// excelEpoch is the serial-day epoch used by spreadsheet tools.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	isoDateRe     = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
	dateSplitRe   = regexp.MustCompile(`[/-]`)
	questionDates = map[string]struct{}{"?": {}, "??": {}, "????": {}}
)

// parseDateCell handles the representations a workbook cell can surface as:
// an ISO YYYY-MM-DD / YYYY/MM/DD string, an ambiguous A/B/C triplet (the
// component greater than 12 is the day; first-is-day when both fit), or a
// bare serial day count on the 1899-12-30 epoch. "?", "??" and "????" mean
// absent. Anything unparseable is absent, never an error.
func parseDateCell(value string) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	if _, absent := questionDates[strings.ToLower(s)]; absent {
		return nil
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	if parts := dateSplitRe.Split(s, -1); len(parts) == 3 {
		first, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		second, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		year, err3 := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil
		}

		a, b, y := int(first), int(second), int(year)
		// the component greater than 12 must be the day; first-is-day
		// when both fit
		day, month := a, b
		if a <= 12 && b > 12 {
			day, month = b, a
		}

		// two-digit years: <=69 is 2000s, the rest 1900s
		if y < 100 {
			if y <= 69 {
				y += 2000
			} else {
				y += 1900
			}
		}

		t := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	// serial day count, possibly fractional; the time-of-day part is
	// dropped, dates are stored at midnight
	if days, err := strconv.ParseFloat(s, 64); err == nil {
		ms := int64(days * 86400000)
		t := excelEpoch.Add(time.Duration(ms) * time.Millisecond)
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &t
	}

	return nil
}
