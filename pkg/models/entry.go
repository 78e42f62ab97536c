package models

import "time"

// EntryType is derived from which sheet a row came from during import,
// or chosen explicitly when creating an entry by hand.
type EntryType string

const (
	TypeManhwa     EntryType = "MANHWA"
	TypeManhua     EntryType = "MANHUA"
	TypeLightNovel EntryType = "LIGHT_NOVEL"
	TypeWestern    EntryType = "WESTERN"
)

// EntryTypes lists every recognized type, in display order.
var EntryTypes = []EntryType{TypeManhwa, TypeManhua, TypeLightNovel, TypeWestern}

type EntryStatus string

const (
	StatusCurrent   EntryStatus = "CURRENT"
	StatusCompleted EntryStatus = "COMPLETED"
)

// Entry is one tracked title in the catalog. (Title, Type) is unique.
// Optional fields are pointers; nil means "no data".
type Entry struct {
	ID               string       `json:"id"`
	Type             EntryType    `json:"type"`
	Title            string       `json:"title"`
	TitleLower       string       `json:"title_lower"`
	BaseTitle        string       `json:"base_title"`
	BaseTitleLower   string       `json:"base_title_lower"`
	Descriptor       *string      `json:"descriptor,omitempty"`
	DescriptorLower  string       `json:"descriptor_lower"`
	Status           *EntryStatus `json:"status,omitempty"`
	ChaptersRead     *int         `json:"chapters_read,omitempty"`
	TotalChapters    *int         `json:"total_chapters,omitempty"`
	Score            *float64     `json:"score,omitempty"`
	StartDate        *time.Time   `json:"start_date,omitempty"`
	EndDate          *time.Time   `json:"end_date,omitempty"`
	CoverImageURL    *string      `json:"cover_image_url,omitempty"`
	CoverSource      *string      `json:"cover_source,omitempty"`
	CoverSourceID    *int64       `json:"cover_source_id,omitempty"`
	CoverFetchedAt   *time.Time   `json:"cover_fetched_at,omitempty"`
	SourceTitlesJSON *string      `json:"source_titles_json,omitempty"`
	SourceTitlesAt   *time.Time   `json:"source_titles_at,omitempty"`
	AltTitles        []AltTitle   `json:"alt_titles,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// AltTitle is an alternate name for an entry, used for search matching.
// TitleLower is unique per entry.
type AltTitle struct {
	ID         string `json:"id"`
	EntryID    string `json:"entry_id"`
	Title      string `json:"title"`
	TitleLower string `json:"title_lower"`
}

// ParseEntryType maps a user or sheet supplied string onto an EntryType.
// Returns "" when the value is not recognized.
func ParseEntryType(s string) EntryType {
	switch normalizeUpper(s) {
	case "MANHWA":
		return TypeManhwa
	case "MANHUA":
		return TypeManhua
	case "LIGHTNOVEL", "LIGHT_NOVEL", "LIGHT NOVEL":
		return TypeLightNovel
	case "WESTERN":
		return TypeWestern
	}
	return ""
}
