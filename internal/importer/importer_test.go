package importer

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"comictracker/internal/activity"
	"comictracker/internal/entries"
	"comictracker/pkg/database"
	"comictracker/pkg/models"
)

type sheetData struct {
	name string
	rows [][]any
}

func buildWorkbook(t *testing.T, sheets []sheetData) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for _, s := range sheets {
		_, err := f.NewSheet(s.name)
		require.NoError(t, err)
		for i, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func newTestImporter(t *testing.T) (*Importer, *entries.Repo) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := entries.NewRepo(db)
	im := New(repo, NewRunRepo(db), activity.NewRepo(db), "")
	return im, repo
}

var testHeader = []any{
	"Title", "Status (CR/COM)", "Chapters Read", "Total Chapters",
	"Score", "Start Date", "End Date",
}

func TestImportMergesDuplicateRows(t *testing.T) {
	im, repo := newTestImporter(t)
	ctx := context.Background()

	wb := buildWorkbook(t, []sheetData{
		{name: "Manhwa", rows: [][]any{
			testHeader,
			{"Solo Leveling (Only I Level Up)", "CR", "120", "", "8/10", "2021-03-01", "?"},
			{"solo leveling", "COM", "179", "179", "9", "5/1/21", "17/6/23"},
			{"?", "", "", "", "", "", ""},
		}},
		{name: "LightNovel", rows: [][]any{
			testHeader,
			{"Omniscient Reader's Viewpoint", "Current", "551", "551", "10", "", ""},
		}},
	})

	run, err := im.Import(ctx, "backlog.xlsx", wb)
	require.NoError(t, err)
	assert.Equal(t, models.RunSuccess, run.Status)
	assert.Equal(t, 4, run.TotalRows)
	assert.Equal(t, 2, run.UniqueKeys)
	assert.Equal(t, 1, run.Duplicates)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 2, run.Created)
	assert.Equal(t, 0, run.Updated)

	got, err := repo.GetByTitleType(ctx, "Solo Leveling", models.TypeManhwa)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Status)
	assert.Equal(t, models.StatusCompleted, *got.Status)
	require.NotNil(t, got.ChaptersRead)
	assert.Equal(t, 179, *got.ChaptersRead)
	require.NotNil(t, got.TotalChapters)
	assert.Equal(t, 179, *got.TotalChapters)
	require.NotNil(t, got.Score)
	assert.Equal(t, 9.0, *got.Score)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC), got.StartDate.UTC())
	require.NotNil(t, got.EndDate)
	assert.Equal(t, time.Date(2023, time.June, 17, 0, 0, 0, 0, time.UTC), got.EndDate.UTC())
	require.Len(t, got.AltTitles, 1)
	assert.Equal(t, "Only I Level Up", got.AltTitles[0].Title)

	ln, err := repo.GetByTitleType(ctx, "Omniscient Reader's Viewpoint", models.TypeLightNovel)
	require.NoError(t, err)
	require.NotNil(t, ln)
	require.NotNil(t, ln.Status)
	assert.Equal(t, models.StatusCurrent, *ln.Status)

	runs, err := im.Runs.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunSuccess, runs[0].Status)
}

func TestImportReimportIsIdempotent(t *testing.T) {
	im, repo := newTestImporter(t)
	ctx := context.Background()

	sheets := []sheetData{
		{name: "Manhwa", rows: [][]any{
			testHeader,
			{"Tower of God", "CR", "550", "", "8.5", "", ""},
		}},
	}

	run, err := im.Import(ctx, "backlog.xlsx", buildWorkbook(t, sheets))
	require.NoError(t, err)
	assert.Equal(t, 1, run.Created)
	assert.Equal(t, 0, run.Updated)

	run, err = im.Import(ctx, "backlog.xlsx", buildWorkbook(t, sheets))
	require.NoError(t, err)
	assert.Equal(t, 0, run.Created)
	assert.Equal(t, 1, run.Updated)

	// still exactly one stored entry
	n, err := repo.Count(ctx, entries.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// the re-import logs an update with an empty change set
	logs, err := im.Activity.List(ctx, 50)
	require.NoError(t, err)
	var updated *models.ActivityLog
	for i := range logs {
		if logs[i].Action == models.ActionEntryUpdated {
			updated = &logs[i]
			break
		}
	}
	require.NotNil(t, updated)
	assert.Empty(t, updated.Changes)
}

func TestImportNativeDateCells(t *testing.T) {
	im, repo := newTestImporter(t)
	ctx := context.Background()

	// date-typed cells with the day <= 12: the rendered display string would
	// be month/day ambiguous, the raw serial value is not
	wb := buildWorkbook(t, []sheetData{
		{name: "Manhwa", rows: [][]any{
			testHeader,
			{"Alpha", "COM", "10", "", "",
				time.Date(2023, time.April, 3, 0, 0, 0, 0, time.UTC),
				time.Date(2023, time.May, 7, 0, 0, 0, 0, time.UTC)},
		}},
	})

	_, err := im.Import(ctx, "backlog.xlsx", wb)
	require.NoError(t, err)

	got, err := repo.GetByTitleType(ctx, "Alpha", models.TypeManhwa)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, time.Date(2023, time.April, 3, 0, 0, 0, 0, time.UTC), got.StartDate.UTC())
	require.NotNil(t, got.EndDate)
	assert.Equal(t, time.Date(2023, time.May, 7, 0, 0, 0, 0, time.UTC), got.EndDate.UTC())
}

func TestImportSkipsUnrecognizedSheets(t *testing.T) {
	im, repo := newTestImporter(t)
	ctx := context.Background()

	wb := buildWorkbook(t, []sheetData{
		{name: "Notes", rows: [][]any{
			testHeader,
			{"Not An Entry", "CR", "", "", "", "", ""},
		}},
	})

	run, err := im.Import(ctx, "backlog.xlsx", wb)
	require.NoError(t, err)
	assert.Equal(t, models.RunSuccess, run.Status)
	assert.Equal(t, 0, run.TotalRows)

	n, err := repo.Count(ctx, entries.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestImportStatusColumnFallback(t *testing.T) {
	im, repo := newTestImporter(t)
	ctx := context.Background()

	wb := buildWorkbook(t, []sheetData{
		{name: "Manhwa", rows: [][]any{
			{"Title", "Status"},
			{"Alpha", "COM"},
		}},
	})

	_, err := im.Import(ctx, "backlog.xlsx", wb)
	require.NoError(t, err)

	got, err := repo.GetByTitleType(ctx, "Alpha", models.TypeManhwa)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Status)
	assert.Equal(t, models.StatusCompleted, *got.Status)
}

func TestImportRejectsNonXlsx(t *testing.T) {
	im, _ := newTestImporter(t)
	ctx := context.Background()

	run, err := im.Import(ctx, "backlog.csv", bytes.NewReader([]byte("Title\nAlpha\n")))
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "unsupported file type")

	// the failed run is still recorded
	runs, err := im.Runs.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
}

func TestImportLockContention(t *testing.T) {
	im, _ := newTestImporter(t)
	ctx := context.Background()

	im.LockPath = filepath.Join(t.TempDir(), "import.lock")
	held := flock.New(im.LockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	wb := buildWorkbook(t, []sheetData{
		{name: "Manhwa", rows: [][]any{testHeader}},
	})
	run, err := im.Import(ctx, "backlog.xlsx", wb)
	require.ErrorIs(t, err, ErrImportInProgress)
	require.NotNil(t, run)
	assert.Equal(t, models.RunFailed, run.Status)
}
