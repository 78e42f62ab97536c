package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"comictracker/internal/entries"
	"comictracker/pkg/models"
)

const sheetName = "ComicTracker Export"

// formatVersion bumps when the export layout changes.
const formatVersion = "2"

var headers = []string{
	"Type",
	"Title",
	"Status",
	"Chapters Read",
	"Total Chapters",
	"Score",
	"Start Date",
	"End Date",
	"Alt Titles",
	"Cover Image URL",
	"Cover Source",
	"Cover Source ID",
	"Source Titles JSON",
	"Updated At",
}

// Options narrows what goes into the workbook.
type Options struct {
	Type             models.EntryType // empty exports every type
	IncludeAltTitles bool
	IncludeCovers    bool
}

// DefaultOptions includes everything.
func DefaultOptions() Options {
	return Options{IncludeAltTitles: true, IncludeCovers: true}
}

// Builder renders the catalog into a single-sheet workbook: a banner row, a
// version row, a blank spacer, the header row, then one row per entry
// ordered by type then title.
type Builder struct {
	Entries *entries.Repo

	// pageSize bounds each listing query; the export itself is unbounded.
	pageSize int
}

func NewBuilder(repo *entries.Repo) *Builder {
	return &Builder{Entries: repo, pageSize: 500}
}

func (b *Builder) Build(ctx context.Context, opts Options) (*excelize.File, error) {
	var items []models.Entry
	for _, t := range models.EntryTypes {
		if opts.Type != "" && t != opts.Type {
			continue
		}
		for offset := 0; ; offset += b.pageSize {
			page, err := b.Entries.List(ctx, entries.ListQuery{Type: t, Limit: b.pageSize, Offset: offset})
			if err != nil {
				return nil, err
			}
			for i := range page {
				full, err := b.Entries.GetByID(ctx, page[i].ID)
				if err != nil {
					return nil, err
				}
				if full != nil {
					items = append(items, *full)
				}
			}
			if len(page) < b.pageSize {
				break
			}
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{sheetName},
		{"Version", formatVersion},
		{},
		toAnyRow(headers),
	}
	for _, e := range items {
		rows = append(rows, entryRow(e, opts))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	return f, nil
}

func entryRow(e models.Entry, opts Options) []any {
	altTitles := ""
	if opts.IncludeAltTitles {
		names := make([]string, 0, len(e.AltTitles))
		for _, a := range e.AltTitles {
			if a.Title != "" {
				names = append(names, a.Title)
			}
		}
		altTitles = strings.Join(names, " | ")
	}

	var coverURL, coverSource, sourceTitlesJSON string
	var coverSourceID any = ""
	if opts.IncludeCovers {
		if e.CoverImageURL != nil && isHTTPURL(*e.CoverImageURL) {
			coverURL = *e.CoverImageURL
		}
		if e.CoverSource != nil {
			coverSource = *e.CoverSource
		}
		if e.CoverSourceID != nil {
			coverSourceID = *e.CoverSourceID
		}
		if e.SourceTitlesJSON != nil {
			sourceTitlesJSON = *e.SourceTitlesJSON
		}
	}

	return []any{
		string(e.Type),
		e.Title,
		statusString(e.Status),
		intOrBlank(e.ChaptersRead),
		intOrBlank(e.TotalChapters),
		floatOrBlank(e.Score),
		formatDate(e.StartDate),
		formatDate(e.EndDate),
		altTitles,
		coverURL,
		coverSource,
		coverSourceID,
		sourceTitlesJSON,
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toAnyRow(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func statusString(s *models.EntryStatus) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func intOrBlank(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}

func floatOrBlank(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}
