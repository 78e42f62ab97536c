package anilist

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode"

	"comictracker/internal/entries"
	"comictracker/pkg/models"
)

// CoverSourceAniList is stored on entries whose cover came from AniList.
const CoverSourceAniList = "ANILIST"

// requestGap spaces out AniList calls during a bulk pass.
const requestGap = 900 * time.Millisecond

// AutofillSummary reports one cover autofill pass.
type AutofillSummary struct {
	Scanned         int     `json:"scanned"`
	Updated         int     `json:"updated"`
	Skipped         int     `json:"skipped"`
	Failed          int     `json:"failed"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Autofiller fills in missing cover art by matching entry titles against
// AniList search results. Conservative: a result is only accepted when a
// normalized name matches and it is either the top result or the only one.
type Autofiller struct {
	Client  *Client
	Entries *entries.Repo

	// Sleep between requests; overridable in tests.
	Gap time.Duration
}

func NewAutofiller(client *Client, repo *entries.Repo) *Autofiller {
	return &Autofiller{Client: client, Entries: repo, Gap: requestGap}
}

type sourceTitles struct {
	Romaji     string   `json:"romaji,omitempty"`
	English    string   `json:"english,omitempty"`
	Native     string   `json:"native,omitempty"`
	Synonyms   []string `json:"synonyms"`
	SelectedAt string   `json:"selectedAt"`
}

// Run processes up to limit entries missing covers. Per-item failures are
// counted, never raised; each lookup is a single best-effort call with a
// fixed sleep before the next.
func (a *Autofiller) Run(ctx context.Context, limit int) (*AutofillSummary, error) {
	started := time.Now()
	if limit < 1 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}

	items, err := a.Entries.ListMissingCovers(ctx, limit)
	if err != nil {
		return nil, err
	}

	summary := &AutofillSummary{Scanned: len(items)}

	for i, entry := range items {
		if err := a.fillOne(ctx, entry, summary); err != nil {
			log.Printf("[anilist] autofill %q: %v", entry.Title, err)
			summary.Failed++
		}

		if i < len(items)-1 {
			select {
			case <-ctx.Done():
				summary.DurationSeconds = time.Since(started).Seconds()
				return summary, ctx.Err()
			case <-time.After(a.Gap):
			}
		}
	}

	summary.DurationSeconds = time.Since(started).Seconds()
	return summary, nil
}

func (a *Autofiller) fillOne(ctx context.Context, entry models.Entry, summary *AutofillSummary) error {
	media, err := a.Client.Search(ctx, entry.Title, 5)
	if err != nil {
		return err
	}
	if len(media) == 0 {
		summary.Skipped++
		return nil
	}

	candidates := entryNames(entry)
	matchedIndex := -1
	for i, m := range media {
		if namesOverlap(mediaNames(m), candidates) {
			matchedIndex = i
			break
		}
	}

	// only trust the top result, or a lone result
	if matchedIndex == -1 || (matchedIndex != 0 && len(media) != 1) {
		summary.Skipped++
		return nil
	}

	matched := media[matchedIndex]
	coverURL := matched.CoverURL()
	if coverURL == "" {
		summary.Skipped++
		return nil
	}

	titlesJSON, err := json.Marshal(sourceTitles{
		Romaji:     matched.Title.Romaji,
		English:    matched.Title.English,
		Native:     matched.Title.Native,
		Synonyms:   matched.Synonyms,
		SelectedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := a.Entries.SetCover(ctx, entry.ID, entries.CoverUpdate{
		ImageURL:         coverURL,
		Source:           CoverSourceAniList,
		SourceID:         matched.ID,
		SourceTitlesJSON: string(titlesJSON),
	}); err != nil {
		return err
	}

	summary.Updated++
	return nil
}

// normalizeName reduces a title to lowercase letters/digits separated by
// single spaces so cross-source spellings compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func entryNames(e models.Entry) map[string]struct{} {
	out := make(map[string]struct{})
	if n := normalizeName(e.Title); n != "" {
		out[n] = struct{}{}
	}
	for _, alt := range e.AltTitles {
		if n := normalizeName(alt.Title); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func mediaNames(m Media) map[string]struct{} {
	out := make(map[string]struct{})
	for _, name := range append([]string{m.Title.English, m.Title.Romaji, m.Title.Native}, m.Synonyms...) {
		if n := normalizeName(name); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func namesOverlap(a, b map[string]struct{}) bool {
	for n := range b {
		if _, ok := a[n]; ok {
			return true
		}
	}
	return false
}
