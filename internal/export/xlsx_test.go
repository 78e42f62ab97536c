package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comictracker/internal/entries"
	"comictracker/pkg/database"
	"comictracker/pkg/models"
)

func newTestBuilder(t *testing.T) (*Builder, *entries.Repo) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := entries.NewRepo(db)
	return NewBuilder(repo), repo
}

func seedCatalog(t *testing.T, repo *entries.Repo) {
	t.Helper()
	ctx := context.Background()

	completed := models.StatusCompleted
	chapters := 179
	score := 9.5
	start := time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC)
	cover := "https://img.example/sl.png"
	source := "ANILIST"

	solo := &models.Entry{
		Type:           models.TypeManhwa,
		Title:          "Solo Leveling",
		TitleLower:     "solo leveling",
		BaseTitle:      "Solo Leveling",
		BaseTitleLower: "solo leveling",
		Status:         &completed,
		ChaptersRead:   &chapters,
		Score:          &score,
		StartDate:      &start,
		CoverImageURL:  &cover,
		CoverSource:    &source,
	}
	require.NoError(t, repo.Create(ctx, solo, []string{"Only I Level Up"}))

	orv := &models.Entry{
		Type:           models.TypeLightNovel,
		Title:          "Omniscient Reader's Viewpoint",
		TitleLower:     "omniscient reader's viewpoint",
		BaseTitle:      "Omniscient Reader's Viewpoint",
		BaseTitleLower: "omniscient reader's viewpoint",
	}
	require.NoError(t, repo.Create(ctx, orv, nil))
}

func TestBuildLayout(t *testing.T) {
	b, repo := newTestBuilder(t)
	seedCatalog(t, repo)

	f, err := b.Build(context.Background(), DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Equal(t, sheetName, rows[0][0])
	assert.Equal(t, []string{"Version", formatVersion}, rows[1][:2])
	assert.Equal(t, headers, rows[3][:len(headers)])

	// entries come out ordered by type, then title
	assert.Equal(t, "MANHWA", rows[4][0])
	assert.Equal(t, "Solo Leveling", rows[4][1])
	assert.Equal(t, "COMPLETED", rows[4][2])
	assert.Equal(t, "179", rows[4][3])
	assert.Equal(t, "9.5", rows[4][5])
	assert.Equal(t, "2021-01-05", rows[4][6])
	assert.Equal(t, "Only I Level Up", rows[4][8])
	assert.Equal(t, "https://img.example/sl.png", rows[4][9])

	assert.Equal(t, "LIGHT_NOVEL", rows[5][0])
	assert.Equal(t, "Omniscient Reader's Viewpoint", rows[5][1])
}

func TestBuildPagesThroughLargeCatalogs(t *testing.T) {
	b, repo := newTestBuilder(t)
	ctx := context.Background()

	titles := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for _, title := range titles {
		e := &models.Entry{
			Type:           models.TypeManhwa,
			Title:          title,
			TitleLower:     title,
			BaseTitle:      title,
			BaseTitleLower: title,
		}
		require.NoError(t, repo.Create(ctx, e, nil))
	}

	b.pageSize = 2
	f, err := b.Build(ctx, DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	// banner, version, spacer, header, then every entry
	require.Len(t, rows, 4+len(titles))

	var got []string
	for _, row := range rows[4:] {
		got = append(got, row[1])
	}
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma", "delta", "epsilon"}, got)
}

func TestBuildTypeFilter(t *testing.T) {
	b, repo := newTestBuilder(t)
	seedCatalog(t, repo)

	f, err := b.Build(context.Background(), Options{
		Type:             models.TypeLightNovel,
		IncludeAltTitles: true,
		IncludeCovers:    true,
	})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Omniscient Reader's Viewpoint", rows[4][1])
}

func TestBuildExcludesOptionalColumns(t *testing.T) {
	b, repo := newTestBuilder(t)
	seedCatalog(t, repo)

	f, err := b.Build(context.Background(), Options{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)

	soloRow := rows[4]
	if len(soloRow) > 8 {
		assert.Empty(t, soloRow[8], "alt titles excluded")
	}
	if len(soloRow) > 9 {
		assert.Empty(t, soloRow[9], "cover url excluded")
	}
}
