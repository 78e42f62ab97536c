package entries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"comictracker/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Q      string // keyword search in title and alt titles
	Type   models.EntryType
	Status string
	Sort   string // "title", "updated", "score"
	Limit  int
	Offset int
}

const entryColumns = `
	id, type, title, title_lower, base_title, base_title_lower,
	descriptor, descriptor_lower, status, chapters_read, total_chapters, score,
	start_date, end_date, cover_image_url, cover_source, cover_source_id,
	cover_fetched_at, source_titles_json, source_titles_at, created_at, updated_at
`

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if err := r.attachAltTitles(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByTitleType looks up by the identity key used for import reconciliation.
func (r *Repo) GetByTitleType(ctx context.Context, title string, t models.EntryType) (*models.Entry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE title = ? AND type = ?
	`, title, string(t))
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry by title/type: %w", err)
	}
	if err := r.attachAltTitles(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Entry, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.Entry, 0, q.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list. The keyword filter
// also matches alternate titles via an EXISTS subquery.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + entryColumns + ` FROM entries`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM entries`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, `(title_lower LIKE ? OR EXISTS (
			SELECT 1 FROM alt_titles a WHERE a.entry_id = entries.id AND a.title_lower LIKE ?
		))`)
		pat := "%" + strings.ToLower(kw) + "%"
		args = append(args, pat, pat)
	}

	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}

	if st := strings.TrimSpace(q.Status); st != "" {
		where = append(where, "UPPER(status) = ?")
		args = append(args, strings.ToUpper(st))
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		switch q.Sort {
		case "updated":
			sqlStr += " ORDER BY updated_at DESC"
		case "score":
			sqlStr += " ORDER BY score IS NULL, score DESC, title_lower ASC"
		default:
			sqlStr += " ORDER BY title_lower ASC"
		}
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

// Create inserts a new entry plus its alternate titles in one transaction.
func (r *Repo) Create(ctx context.Context, e *models.Entry, altTitles []string) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entryArgs(e)...); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	if err := insertAltTitles(ctx, tx, e.ID, altTitles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Update rewrites all entry fields. When replaceAlts is set the stored
// alternate-title set is dropped and recreated from altTitles.
func (r *Repo) Update(ctx context.Context, e *models.Entry, altTitles []string, replaceAlts bool) error {
	e.UpdatedAt = time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE entries SET
			type = ?, title = ?, title_lower = ?, base_title = ?, base_title_lower = ?,
			descriptor = ?, descriptor_lower = ?, status = ?, chapters_read = ?,
			total_chapters = ?, score = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?
	`, string(e.Type), e.Title, e.TitleLower, e.BaseTitle, e.BaseTitleLower,
		nullStringPtr(e.Descriptor), e.DescriptorLower, nullStatus(e.Status),
		nullIntPtr(e.ChaptersRead), nullIntPtr(e.TotalChapters), nullFloatPtr(e.Score),
		nullTimePtr(e.StartDate), nullTimePtr(e.EndDate), e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if replaceAlts {
		if _, err := tx.ExecContext(ctx, `DELETE FROM alt_titles WHERE entry_id = ?`, e.ID); err != nil {
			return fmt.Errorf("delete alt titles: %w", err)
		}
		if err := insertAltTitles(ctx, tx, e.ID, altTitles); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertMerged applies one merged import record: entry upsert keyed on
// (title, type) plus a full delete-and-recreate of the alternate-title set,
// all inside a single transaction. Returns the entry id.
func (r *Repo) UpsertMerged(ctx context.Context, e *models.Entry, altTitles []string) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (
			id, type, title, title_lower, base_title, base_title_lower,
			descriptor, descriptor_lower, status, chapters_read, total_chapters, score,
			start_date, end_date, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(title, type) DO UPDATE SET
			title_lower = excluded.title_lower,
			base_title = excluded.base_title,
			base_title_lower = excluded.base_title_lower,
			descriptor = excluded.descriptor,
			descriptor_lower = excluded.descriptor_lower,
			status = excluded.status,
			chapters_read = excluded.chapters_read,
			total_chapters = excluded.total_chapters,
			score = excluded.score,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at
	`, e.ID, string(e.Type), e.Title, e.TitleLower, e.BaseTitle, e.BaseTitleLower,
		nullStringPtr(e.Descriptor), e.DescriptorLower, nullStatus(e.Status),
		nullIntPtr(e.ChaptersRead), nullIntPtr(e.TotalChapters), nullFloatPtr(e.Score),
		nullTimePtr(e.StartDate), nullTimePtr(e.EndDate), now, now); err != nil {
		return "", fmt.Errorf("upsert entry: %w", err)
	}

	// The conflict path keeps the existing row id.
	var id string
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM entries WHERE title = ? AND type = ?
	`, e.Title, string(e.Type)).Scan(&id); err != nil {
		return "", fmt.Errorf("select upserted id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM alt_titles WHERE entry_id = ?`, id); err != nil {
		return "", fmt.Errorf("delete alt titles: %w", err)
	}
	if err := insertAltTitles(ctx, tx, id, altTitles); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// IncrementChapters adjusts chapters_read by delta, clamped at zero.
func (r *Repo) IncrementChapters(ctx context.Context, id string, delta int) (*models.Entry, error) {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE entries SET
			chapters_read = MAX(0, COALESCE(chapters_read, 0) + ?),
			updated_at = ?
		WHERE id = ?
	`, delta, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("increment chapters: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) AddAltTitle(ctx context.Context, entryID, title string) (*models.AltTitle, error) {
	alt := models.AltTitle{
		ID:         uuid.NewString(),
		EntryID:    entryID,
		Title:      title,
		TitleLower: strings.ToLower(strings.TrimSpace(title)),
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO alt_titles (id, entry_id, title, title_lower)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entry_id, title_lower) DO NOTHING
	`, alt.ID, alt.EntryID, alt.Title, alt.TitleLower)
	if err != nil {
		return nil, fmt.Errorf("add alt title: %w", err)
	}
	return &alt, nil
}

func (r *Repo) RemoveAltTitle(ctx context.Context, entryID, altID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM alt_titles WHERE id = ? AND entry_id = ?
	`, altID, entryID)
	if err != nil {
		return false, fmt.Errorf("remove alt title: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) LatestUpdated(ctx context.Context, limit int) ([]models.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return r.List(ctx, ListQuery{Sort: "updated", Limit: limit})
}

// ListMissingCovers returns entries without a cover image, most recently
// updated first. Used by the cover autofill pass.
func (r *Repo) ListMissingCovers(ctx context.Context, limit int) ([]models.Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE cover_image_url IS NULL OR cover_image_url = ''
		ORDER BY updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing covers: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		if err := r.attachAltTitles(ctx, e); err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type CoverUpdate struct {
	ImageURL         string
	Source           string
	SourceID         int64
	SourceTitlesJSON string
}

func (r *Repo) SetCover(ctx context.Context, id string, cover CoverUpdate) error {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		UPDATE entries SET
			cover_image_url = ?, cover_source = ?, cover_source_id = ?,
			cover_fetched_at = ?, source_titles_json = ?, source_titles_at = ?,
			updated_at = ?
		WHERE id = ?
	`, cover.ImageURL, cover.Source, cover.SourceID, now, cover.SourceTitlesJSON, now, now, id)
	if err != nil {
		return fmt.Errorf("set cover: %w", err)
	}
	return nil
}

func (r *Repo) ClearCover(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE entries SET
			cover_image_url = NULL, cover_source = NULL, cover_source_id = NULL,
			cover_fetched_at = NULL, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("clear cover: %w", err)
	}
	return nil
}

func (r *Repo) attachAltTitles(ctx context.Context, e *models.Entry) error {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, entry_id, title, title_lower
		FROM alt_titles
		WHERE entry_id = ?
		ORDER BY title ASC
	`, e.ID)
	if err != nil {
		return fmt.Errorf("list alt titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.AltTitle
		if err := rows.Scan(&a.ID, &a.EntryID, &a.Title, &a.TitleLower); err != nil {
			return fmt.Errorf("scan alt title: %w", err)
		}
		e.AltTitles = append(e.AltTitles, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	return nil
}

func insertAltTitles(ctx context.Context, tx *sql.Tx, entryID string, titles []string) error {
	for _, t := range titles {
		lower := strings.ToLower(strings.TrimSpace(t))
		if lower == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alt_titles (id, entry_id, title, title_lower)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(entry_id, title_lower) DO NOTHING
		`, uuid.NewString(), entryID, t, lower); err != nil {
			return fmt.Errorf("insert alt title: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                models.Entry
		typ              string
		descriptor       sql.NullString
		status           sql.NullString
		chaptersRead     sql.NullInt64
		totalChapters    sql.NullInt64
		score            sql.NullFloat64
		startDate        sql.NullTime
		endDate          sql.NullTime
		coverImageURL    sql.NullString
		coverSource      sql.NullString
		coverSourceID    sql.NullInt64
		coverFetchedAt   sql.NullTime
		sourceTitlesJSON sql.NullString
		sourceTitlesAt   sql.NullTime
	)

	if err := row.Scan(
		&e.ID, &typ, &e.Title, &e.TitleLower, &e.BaseTitle, &e.BaseTitleLower,
		&descriptor, &e.DescriptorLower, &status, &chaptersRead, &totalChapters, &score,
		&startDate, &endDate, &coverImageURL, &coverSource, &coverSourceID,
		&coverFetchedAt, &sourceTitlesJSON, &sourceTitlesAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Type = models.EntryType(typ)
	if descriptor.Valid {
		e.Descriptor = &descriptor.String
	}
	if status.Valid {
		s := models.EntryStatus(status.String)
		e.Status = &s
	}
	if chaptersRead.Valid {
		v := int(chaptersRead.Int64)
		e.ChaptersRead = &v
	}
	if totalChapters.Valid {
		v := int(totalChapters.Int64)
		e.TotalChapters = &v
	}
	if score.Valid {
		e.Score = &score.Float64
	}
	if startDate.Valid {
		t := startDate.Time
		e.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		e.EndDate = &t
	}
	if coverImageURL.Valid {
		e.CoverImageURL = &coverImageURL.String
	}
	if coverSource.Valid {
		e.CoverSource = &coverSource.String
	}
	if coverSourceID.Valid {
		e.CoverSourceID = &coverSourceID.Int64
	}
	if coverFetchedAt.Valid {
		t := coverFetchedAt.Time
		e.CoverFetchedAt = &t
	}
	if sourceTitlesJSON.Valid {
		e.SourceTitlesJSON = &sourceTitlesJSON.String
	}
	if sourceTitlesAt.Valid {
		t := sourceTitlesAt.Time
		e.SourceTitlesAt = &t
	}
	return &e, nil
}

func entryArgs(e *models.Entry) []any {
	return []any{
		e.ID, string(e.Type), e.Title, e.TitleLower, e.BaseTitle, e.BaseTitleLower,
		nullStringPtr(e.Descriptor), e.DescriptorLower, nullStatus(e.Status),
		nullIntPtr(e.ChaptersRead), nullIntPtr(e.TotalChapters), nullFloatPtr(e.Score),
		nullTimePtr(e.StartDate), nullTimePtr(e.EndDate),
		nullStringPtr(e.CoverImageURL), nullStringPtr(e.CoverSource),
		nullInt64Ptr(e.CoverSourceID), nullTimePtr(e.CoverFetchedAt),
		nullStringPtr(e.SourceTitlesJSON), nullTimePtr(e.SourceTitlesAt),
		e.CreatedAt, e.UpdatedAt,
	}
}

func nullStringPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStatus(p *models.EntryStatus) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func nullIntPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt64Ptr(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTimePtr(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
