package entries

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comictracker/pkg/database"
	"comictracker/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func testEntry(title string, typ models.EntryType) *models.Entry {
	lower := title
	return &models.Entry{
		Type:           typ,
		Title:          title,
		TitleLower:     lower,
		BaseTitle:      title,
		BaseTitleLower: lower,
	}
}

func TestRepoCreateAndGet(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e := testEntry("solo leveling", models.TypeManhwa)
	e.Title = "Solo Leveling"
	e.ChaptersRead = intp(179)
	e.Score = fp(9.5)
	require.NoError(t, r.Create(ctx, e, []string{"Only I Level Up"}))
	require.NotEmpty(t, e.ID)

	got, err := r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Solo Leveling", got.Title)
	assert.Equal(t, models.TypeManhwa, got.Type)
	require.NotNil(t, got.ChaptersRead)
	assert.Equal(t, 179, *got.ChaptersRead)
	require.NotNil(t, got.Score)
	assert.Equal(t, 9.5, *got.Score)
	require.Len(t, got.AltTitles, 1)
	assert.Equal(t, "Only I Level Up", got.AltTitles[0].Title)
	assert.Nil(t, got.Status)
	assert.Nil(t, got.StartDate)
}

func TestRepoGetMissingReturnsNil(t *testing.T) {
	r := newTestRepo(t)
	got, err := r.GetByID(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepoListSearchMatchesAltTitles(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a := testEntry("solo leveling", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, a, []string{"Only I Level Up"}))
	b := testEntry("tower of god", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, b, nil))

	got, err := r.List(ctx, ListQuery{Q: "level up"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "solo leveling", got[0].Title)

	n, err := r.Count(ctx, ListQuery{Q: "level up"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepoListFilters(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a := testEntry("alpha", models.TypeManhwa)
	cur := models.StatusCurrent
	a.Status = &cur
	require.NoError(t, r.Create(ctx, a, nil))
	b := testEntry("beta", models.TypeManhua)
	require.NoError(t, r.Create(ctx, b, nil))

	got, err := r.List(ctx, ListQuery{Type: models.TypeManhua})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].Title)

	got, err = r.List(ctx, ListQuery{Status: "current"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].Title)
}

func TestRepoUpdateReplacesAltTitles(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e := testEntry("alpha", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, e, []string{"Old Alt"}))

	e.Score = fp(7)
	require.NoError(t, r.Update(ctx, e, []string{"New Alt"}, true))

	got, err := r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 7.0, *got.Score)
	require.Len(t, got.AltTitles, 1)
	assert.Equal(t, "New Alt", got.AltTitles[0].Title)
}

func TestRepoUpsertMergedKeepsIDOnConflict(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	first := testEntry("alpha", models.TypeManhwa)
	first.ChaptersRead = intp(10)
	id1, err := r.UpsertMerged(ctx, first, []string{"Alt A"})
	require.NoError(t, err)

	second := testEntry("alpha", models.TypeManhwa)
	second.ChaptersRead = intp(42)
	id2, err := r.UpsertMerged(ctx, second, []string{"Alt B"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := r.GetByID(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, got.ChaptersRead)
	assert.Equal(t, 42, *got.ChaptersRead)
	// alt titles are replaced, not accumulated
	require.Len(t, got.AltTitles, 1)
	assert.Equal(t, "Alt B", got.AltTitles[0].Title)
}

func TestRepoIncrementChaptersClampsAtZero(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e := testEntry("alpha", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, e, nil))

	got, err := r.IncrementChapters(ctx, e.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, got.ChaptersRead)
	assert.Equal(t, 3, *got.ChaptersRead)

	got, err = r.IncrementChapters(ctx, e.ID, -10)
	require.NoError(t, err)
	require.NotNil(t, got.ChaptersRead)
	assert.Equal(t, 0, *got.ChaptersRead)
}

func TestRepoDeleteCascadesAltTitles(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e := testEntry("alpha", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, e, []string{"Alt"}))

	ok, err := r.Delete(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var n int
	require.NoError(t, r.DB.QueryRow(`SELECT COUNT(*) FROM alt_titles`).Scan(&n))
	assert.Equal(t, 0, n)

	ok, err = r.Delete(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepoAltTitleDedupAndRemove(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e := testEntry("alpha", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, e, nil))

	alt, err := r.AddAltTitle(ctx, e.ID, "Side Name")
	require.NoError(t, err)
	assert.Equal(t, "side name", alt.TitleLower)
	_, err = r.AddAltTitle(ctx, e.ID, "side name")
	require.NoError(t, err)

	got, err := r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.AltTitles, 1)

	ok, err := r.RemoveAltTitle(ctx, e.ID, got.AltTitles[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepoSetAndClearCover(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e := testEntry("alpha", models.TypeManhwa)
	require.NoError(t, r.Create(ctx, e, nil))

	missing, err := r.ListMissingCovers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, r.SetCover(ctx, e.ID, CoverUpdate{
		ImageURL:         "https://img.example/cover.png",
		Source:           "ANILIST",
		SourceID:         101,
		SourceTitlesJSON: `["Alpha"]`,
	}))

	missing, err = r.ListMissingCovers(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	got, err := r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CoverImageURL)
	assert.Equal(t, "https://img.example/cover.png", *got.CoverImageURL)
	require.NotNil(t, got.CoverSourceID)
	assert.Equal(t, int64(101), *got.CoverSourceID)

	require.NoError(t, r.ClearCover(ctx, e.ID))
	got, err = r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CoverImageURL)
}
