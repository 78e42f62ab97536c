package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"

	"comictracker/internal/activity"
	"comictracker/internal/entries"
	"comictracker/pkg/models"
)

// maxErrorLen bounds the failure message stored on a run record.
const maxErrorLen = 500

// ErrImportInProgress is returned when the advisory lock is already held.
var ErrImportInProgress = errors.New("another import is already running")

// Column headers recognized per row. "Status (CR/COM)" falls back to "Status".
const (
	colTitle          = "Title"
	colStatus         = "Status (CR/COM)"
	colStatusFallback = "Status"
	colChaptersRead   = "Chapters Read"
	colTotalChapters  = "Total Chapters"
	colScore          = "Score"
	colStartDate      = "Start Date"
	colEndDate        = "End Date"
)

// Importer runs the workbook import: parse all recognized sheets, group rows
// by (type, normalized title), merge each group into one record, and
// reconcile against the store. Sequential; one group's upsert is awaited
// before the next.
type Importer struct {
	Entries  *entries.Repo
	Runs     *RunRepo
	Activity *activity.Repo

	// LockPath, when set, serializes imports across processes via an
	// advisory file lock. Empty disables locking.
	LockPath string
}

func New(entriesRepo *entries.Repo, runs *RunRepo, activityRepo *activity.Repo, lockPath string) *Importer {
	return &Importer{
		Entries:  entriesRepo,
		Runs:     runs,
		Activity: activityRepo,
		LockPath: lockPath,
	}
}

// Import processes one uploaded workbook and returns the finalized run
// summary. Exactly one run record is persisted per call, SUCCESS or FAILED.
// Row-level problems degrade to skips or absent fields; only structural
// failures (bad file, unreadable workbook, storage errors) fail the run.
func (im *Importer) Import(ctx context.Context, filename string, r io.Reader) (*models.ImportRun, error) {
	started := time.Now()
	run := &models.ImportRun{Filename: filename}

	fail := func(cause error) (*models.ImportRun, error) {
		run.Status = models.RunFailed
		run.DurationMs = time.Since(started).Milliseconds()
		msg := truncateError(cause)
		run.Error = &msg
		if err := im.Runs.Record(ctx, run); err != nil {
			// nothing left to record the failure with
			log.Printf("[import] record failed run: %v", err)
		}
		im.logRun(ctx, run)
		return run, cause
	}

	if im.LockPath != "" {
		lock := flock.New(im.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return fail(fmt.Errorf("acquire import lock: %w", err))
		}
		if !ok {
			return fail(ErrImportInProgress)
		}
		defer lock.Unlock()
	}

	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return fail(fmt.Errorf("unsupported file type %q: expected .xlsx", filepath.Ext(filename)))
	}

	wb, err := excelize.OpenReader(r)
	if err != nil {
		return fail(fmt.Errorf("read workbook: %w", err))
	}
	defer wb.Close()

	groups, err := im.scanSheets(wb, run)
	if err != nil {
		return fail(err)
	}

	run.UniqueKeys = len(groups.order)
	run.Duplicates = groups.duplicates()

	for _, key := range groups.order {
		merged := mergeGroup(groups.groups[key])
		if err := im.applyGroup(ctx, key, merged, run); err != nil {
			return fail(err)
		}
	}

	run.Status = models.RunSuccess
	run.DurationMs = time.Since(started).Milliseconds()
	if err := im.Runs.Record(ctx, run); err != nil {
		return fail(err)
	}
	im.logRun(ctx, run)
	return run, nil
}

// scanSheets walks every recognized sheet in order and accumulates parsed
// rows into groups. Unrecognized sheet names are skipped entirely.
func (im *Importer) scanSheets(wb *excelize.File, run *models.ImportRun) (*rowGroups, error) {
	groups := newRowGroups()

	for _, sheetName := range wb.GetSheetList() {
		entryType := models.ParseEntryType(sheetName)
		if entryType == "" {
			continue
		}

		// Raw values keep date-typed cells as serial day counts instead of
		// their rendered (and locale-ambiguous) display strings.
		rows, err := wb.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
		}
		if len(rows) == 0 {
			continue
		}

		header := headerIndex(rows[0])
		for i, raw := range rows[1:] {
			run.TotalRows++

			rawTitle, ok := entries.NormalizeField(cellAt(header, raw, colTitle))
			if !ok {
				run.Skipped++
				continue
			}

			mainTitle, altTitles := ParseImportedTitle(rawTitle, ParenKeepKeywords)
			title := NormalizeWhitespace(mainTitle)

			statusCell := cellAt(header, raw, colStatus)
			if statusCell == "" {
				statusCell = cellAt(header, raw, colStatusFallback)
			}

			groups.add(ParsedRow{
				RowNumber:     i + 2,
				Title:         title,
				TitleLower:    strings.ToLower(title),
				Type:          entryType,
				Status:        entries.ParseStatus(statusCell),
				ChaptersRead:  entries.ParseIntField(cellAt(header, raw, colChaptersRead)),
				TotalChapters: entries.ParseIntField(cellAt(header, raw, colTotalChapters)),
				Score:         entries.ParseScore(cellAt(header, raw, colScore)),
				StartDate:     parseDateCell(cellAt(header, raw, colStartDate)),
				EndDate:       parseDateCell(cellAt(header, raw, colEndDate)),
				AltTitles:     altTitles,
			})
		}
	}

	return groups, nil
}

// applyGroup reconciles one merged record against the store: look up the
// existing entry by (title, type), upsert, and log the change set. The
// presence of a prior record alone classifies the row as updated, even when
// nothing changed.
func (im *Importer) applyGroup(ctx context.Context, key string, merged ParsedRow, run *models.ImportRun) error {
	existing, err := im.Entries.GetByTitleType(ctx, merged.Title, merged.Type)
	if err != nil {
		return err
	}

	entry := entryFromRow(merged)
	id, err := im.Entries.UpsertMerged(ctx, entry, merged.AltTitles)
	if err != nil {
		return err
	}

	if existing != nil {
		changes := computeChanges(existing, entry, merged.AltTitles)
		fields := make([]string, 0, len(changes))
		for f := range changes {
			fields = append(fields, f)
		}
		msg := fmt.Sprintf("Updated %q (%s) from import; %d field(s) changed", merged.Title, merged.Type, len(fields))
		if err := im.Activity.Record(ctx, models.ActionEntryUpdated, &id, msg, changes); err != nil {
			return err
		}
		log.Printf("[import] update key=%s id=%s changed=%v", key, id, fields)
		run.Updated++
	} else {
		msg := fmt.Sprintf("Created %q (%s) from import", merged.Title, merged.Type)
		if err := im.Activity.Record(ctx, models.ActionEntryCreated, &id, msg, nil); err != nil {
			return err
		}
		run.Created++
	}
	return nil
}

func (im *Importer) logRun(ctx context.Context, run *models.ImportRun) {
	msg := fmt.Sprintf("Import %s (%s): %d rows, %d unique, %d duplicates, %d created, %d updated, %d skipped",
		run.Status, run.Filename, run.TotalRows, run.UniqueKeys, run.Duplicates,
		run.Created, run.Updated, run.Skipped)
	if run.Error != nil {
		msg += " — " + *run.Error
	}
	if err := im.Activity.Record(ctx, models.ActionImportRun, nil, msg, nil); err != nil {
		log.Printf("[import] record run activity: %v", err)
	}
}

// entryFromRow shapes a merged row into the stored record. The main title
// doubles as the base title; descriptors only come from manual entry.
func entryFromRow(r ParsedRow) *models.Entry {
	return &models.Entry{
		Type:           r.Type,
		Title:          r.Title,
		TitleLower:     r.TitleLower,
		BaseTitle:      r.Title,
		BaseTitleLower: r.TitleLower,
		Status:         r.Status,
		ChaptersRead:   r.ChaptersRead,
		TotalChapters:  r.TotalChapters,
		Score:          r.Score,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
	}
}

// computeChanges builds the field-by-field before/after map for the change
// log. Dates compare on their ISO form; alt titles compare as lowercased
// sets.
func computeChanges(existing, incoming *models.Entry, incomingAlts []string) map[string]any {
	changes := make(map[string]any)

	compare := func(field string, oldVal, newVal any) {
		if oldVal != newVal {
			changes[field] = models.FieldChange{From: oldVal, To: newVal}
		}
	}

	compare("title", existing.Title, incoming.Title)
	compare("titleLower", existing.TitleLower, incoming.TitleLower)
	compare("baseTitle", existing.BaseTitle, incoming.BaseTitle)
	compare("baseTitleLower", existing.BaseTitleLower, incoming.BaseTitleLower)
	compare("descriptor", strPtrValue(existing.Descriptor), strPtrValue(incoming.Descriptor))
	compare("descriptorLower", existing.DescriptorLower, incoming.DescriptorLower)
	compare("status", statusValue(existing.Status), statusValue(incoming.Status))
	compare("chaptersRead", intPtrValue(existing.ChaptersRead), intPtrValue(incoming.ChaptersRead))
	compare("totalChapters", intPtrValue(existing.TotalChapters), intPtrValue(incoming.TotalChapters))
	compare("score", floatPtrValue(existing.Score), floatPtrValue(incoming.Score))
	compare("startDate", isoDate(existing.StartDate), isoDate(incoming.StartDate))
	compare("endDate", isoDate(existing.EndDate), isoDate(incoming.EndDate))

	existingSet := make(map[string]struct{}, len(existing.AltTitles))
	for _, a := range existing.AltTitles {
		existingSet[a.TitleLower] = struct{}{}
	}
	incomingSet := make(map[string]struct{}, len(incomingAlts))
	for _, a := range incomingAlts {
		incomingSet[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	altsChanged := len(existingSet) != len(incomingSet)
	if !altsChanged {
		for k := range incomingSet {
			if _, ok := existingSet[k]; !ok {
				altsChanged = true
				break
			}
		}
	}
	if altsChanged {
		changes["altTitles"] = models.FieldChange{
			From: sortedKeys(existingSet),
			To:   sortedKeys(incomingSet),
		}
	}

	return changes
}

func headerIndex(headerRow []string) map[string]int {
	idx := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

// cellAt reads a named column from a raw row; missing columns and short
// rows read as empty.
func cellAt(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// truncateError bounds a failure message, cutting on a rune boundary.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) <= maxErrorLen {
		return msg
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func isoDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func strPtrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func statusValue(p *models.EntryStatus) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func intPtrValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
