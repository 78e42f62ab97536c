package importer

import (
	"time"

	"comictracker/pkg/models"
)

// ParsedRow is the normalized form of one spreadsheet row with a usable
// title. It lives only between parsing and merge.
type ParsedRow struct {
	RowNumber     int // 1-based, including the header row
	Title         string
	TitleLower    string
	Type          models.EntryType
	Status        *models.EntryStatus
	ChaptersRead  *int
	TotalChapters *int
	Score         *float64
	StartDate     *time.Time
	EndDate       *time.Time
	AltTitles     []string
}

// groupKey is the identity key for deduplication: rows with the same type
// and normalized title collapse into one entry.
func groupKey(r ParsedRow) string {
	return string(r.Type) + "::" + r.TitleLower
}

// rowGroups accumulates rows per key in first-insertion order.
type rowGroups struct {
	order  []string
	groups map[string][]ParsedRow
}

func newRowGroups() *rowGroups {
	return &rowGroups{groups: make(map[string][]ParsedRow)}
}

func (g *rowGroups) add(r ParsedRow) {
	key := groupKey(r)
	if _, ok := g.groups[key]; !ok {
		g.order = append(g.order, key)
	}
	g.groups[key] = append(g.groups[key], r)
}

// duplicates is the sum of (size-1) over all groups.
func (g *rowGroups) duplicates() int {
	n := 0
	for _, rows := range g.groups {
		n += len(rows) - 1
	}
	return n
}

// mergeGroup collapses a group of rows for the same key into one record.
//
// Base fields come from the first row in scan order. Numeric fields take the
// maximum of present values (chaptersRead additionally collapses 0 to
// absent). COMPLETED dominates CURRENT for status. startDate takes the
// earliest value; endDate takes the latest when the merged status is
// COMPLETED, otherwise the first row's own value with the latest as
// fallback. Alt titles are unioned with first-seen dedup.
func mergeGroup(rows []ParsedRow) ParsedRow {
	merged := rows[0]

	chaptersRead := 0
	for _, r := range rows {
		if r.ChaptersRead != nil && *r.ChaptersRead > chaptersRead {
			chaptersRead = *r.ChaptersRead
		}
	}
	if chaptersRead > 0 {
		merged.ChaptersRead = &chaptersRead
	} else {
		merged.ChaptersRead = nil
	}

	merged.TotalChapters = maxIntPtr(rows, func(r ParsedRow) *int { return r.TotalChapters })
	merged.Score = maxFloatPtr(rows)
	merged.Status = mergeStatus(rows)

	earliestStart, latestEnd := mergeDates(rows)
	merged.StartDate = earliestStart
	if merged.Status != nil && *merged.Status == models.StatusCompleted {
		merged.EndDate = latestEnd
	} else if rows[0].EndDate != nil {
		merged.EndDate = rows[0].EndDate
	} else {
		merged.EndDate = latestEnd
	}

	var alts []string
	for _, r := range rows {
		alts = append(alts, r.AltTitles...)
	}
	merged.AltTitles = dedupeTitles(alts)

	return merged
}

func mergeStatus(rows []ParsedRow) *models.EntryStatus {
	hasCurrent := false
	for _, r := range rows {
		if r.Status == nil {
			continue
		}
		if *r.Status == models.StatusCompleted {
			completed := models.StatusCompleted
			return &completed
		}
		hasCurrent = true
	}
	if hasCurrent {
		current := models.StatusCurrent
		return &current
	}
	return nil
}

func mergeDates(rows []ParsedRow) (earliestStart, latestEnd *time.Time) {
	for _, r := range rows {
		if r.StartDate != nil && (earliestStart == nil || r.StartDate.Before(*earliestStart)) {
			earliestStart = r.StartDate
		}
		if r.EndDate != nil && (latestEnd == nil || r.EndDate.After(*latestEnd)) {
			latestEnd = r.EndDate
		}
	}
	return earliestStart, latestEnd
}

func maxIntPtr(rows []ParsedRow, get func(ParsedRow) *int) *int {
	var max *int
	for _, r := range rows {
		v := get(r)
		if v == nil {
			continue
		}
		if max == nil || *v > *max {
			val := *v
			max = &val
		}
	}
	return max
}

func maxFloatPtr(rows []ParsedRow) *float64 {
	var max *float64
	for _, r := range rows {
		if r.Score == nil {
			continue
		}
		if max == nil || *r.Score > *max {
			val := *r.Score
			max = &val
		}
	}
	return max
}
