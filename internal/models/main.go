// Package models defines the data structures exchanged with a Komga server
// and cached locally: users, libraries, series, books, and the paginated
// list envelope.
package models

import (
	"encoding/json"
	"time"
)

// AuthUser is the authenticated-user snapshot returned by /api/v2/users/me.
type AuthUser struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`
	// Email is the login identity.
	Email string `json:"email"`
	// Roles holds the server-side role names granted to the user.
	Roles []string `json:"roles"`
	// LabelsAllow and LabelsExclude restrict visible content by sharing label.
	LabelsAllow   []string `json:"labelsAllow"`
	LabelsExclude []string `json:"labelsExclude"`
	// SharedAllLibraries is true when the user can see every library.
	SharedAllLibraries bool `json:"sharedAllLibraries"`
	// SharedLibrariesIDs lists the visible libraries when
	// SharedAllLibraries is false.
	SharedLibrariesIDs []string `json:"sharedLibrariesIds"`
	// AgeRestriction is the content age policy, if one is set.
	AgeRestriction *AgeRestriction `json:"ageRestriction"`
}

// AgeRestriction is a content age policy attached to a user.
type AgeRestriction struct {
	Age int `json:"age"`
	// Restriction is either "ALLOW_ONLY" or "EXCLUDE".
	Restriction string `json:"restriction"`
}

// Library is a remote content library.
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Root string `json:"root"`
}

// Author is a named contributor with a role ("writer", "penciller", ...).
type Author struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// WebLink is an external link attached to metadata.
type WebLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Series is a remote series record.
type Series struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	LibraryID        string              `json:"libraryId"`
	URL              string              `json:"url"`
	Oneshot          bool                `json:"oneshot"`
	Deleted          bool                `json:"deleted"`
	Created          time.Time           `json:"created"`
	LastModified     time.Time           `json:"lastModified"`
	FileLastModified time.Time           `json:"fileLastModified"`
	BooksCount       int                 `json:"booksCount"`
	BooksReadCount   int                 `json:"booksReadCount"`
	BooksUnreadCount int                 `json:"booksUnreadCount"`
	BooksInProgress  int                 `json:"booksInProgressCount"`
	Metadata         SeriesMetadata      `json:"metadata"`
	BooksMetadata    SeriesBooksMetadata `json:"booksMetadata"`
}

// SeriesMetadata holds the editable series metadata.
type SeriesMetadata struct {
	Title            string           `json:"title"`
	TitleSort        string           `json:"titleSort"`
	Status           string           `json:"status"`
	Summary          string           `json:"summary"`
	Publisher        string           `json:"publisher"`
	Language         string           `json:"language"`
	ReadingDirection string           `json:"readingDirection"`
	AgeRating        *int             `json:"ageRating"`
	TotalBookCount   *int             `json:"totalBookCount"`
	Genres           []string         `json:"genres"`
	Tags             []string         `json:"tags"`
	SharingLabels    []string         `json:"sharingLabels"`
	AlternateTitles  []AlternateTitle `json:"alternateTitles"`
	Links            []WebLink        `json:"links"`
	Created          time.Time        `json:"created"`
	LastModified     time.Time        `json:"lastModified"`
}

// AlternateTitle is a labeled alternative title for a series.
type AlternateTitle struct {
	Label string `json:"label"`
	Title string `json:"title"`
}

// SeriesBooksMetadata aggregates metadata across the books of a series.
type SeriesBooksMetadata struct {
	Authors       []Author  `json:"authors"`
	Summary       string    `json:"summary"`
	SummaryNumber string    `json:"summaryNumber"`
	Tags          []string  `json:"tags"`
	ReleaseDate   *FlexTime `json:"releaseDate"`
	Created       time.Time `json:"created"`
	LastModified  time.Time `json:"lastModified"`
}

// Book is a remote book record. It is also the metadata snapshot persisted
// verbatim next to a downloaded book file.
type Book struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	LibraryID        string        `json:"libraryId"`
	SeriesID         string        `json:"seriesId"`
	SeriesTitle      string        `json:"seriesTitle"`
	Number           int           `json:"number"`
	Oneshot          bool          `json:"oneshot"`
	Deleted          bool          `json:"deleted"`
	URL              string        `json:"url"`
	FileHash         string        `json:"fileHash"`
	Size             string        `json:"size"`
	SizeBytes        int64         `json:"sizeBytes"`
	Created          time.Time     `json:"created"`
	LastModified     time.Time     `json:"lastModified"`
	FileLastModified time.Time     `json:"fileLastModified"`
	Media            BookMedia     `json:"media"`
	Metadata         BookMetadata  `json:"metadata"`
	ReadProgress     *ReadProgress `json:"readProgress"`
}

// BookMedia describes the analyzed media file backing a book.
type BookMedia struct {
	Status               string `json:"status"`
	MediaType            string `json:"mediaType"`
	MediaProfile         string `json:"mediaProfile"`
	PagesCount           int    `json:"pagesCount"`
	Comment              string `json:"comment"`
	EpubDivinaCompatible bool   `json:"epubDivinaCompatible"`
	EpubIsKepub          bool   `json:"epubIsKepub"`
}

// BookMetadata holds the editable book metadata.
type BookMetadata struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Number       string    `json:"number"`
	NumberSort   int       `json:"numberSort"`
	ISBN         string    `json:"isbn"`
	Authors      []Author  `json:"authors"`
	Tags         []string  `json:"tags"`
	Links        []WebLink `json:"links"`
	ReleaseDate  *FlexTime `json:"releaseDate"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

// ReadProgress is per-user reading state for a book.
type ReadProgress struct {
	Page         int       `json:"page"`
	Completed    bool      `json:"completed"`
	ReadDate     time.Time `json:"readDate"`
	DeviceID     string    `json:"deviceId"`
	DeviceName   string    `json:"deviceName"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

// Page is the Spring-style paginated envelope returned by list endpoints.
type Page[T any] struct {
	Content          []T      `json:"content"`
	Empty            bool     `json:"empty"`
	First            bool     `json:"first"`
	Last             bool     `json:"last"`
	Number           int      `json:"number"`
	NumberOfElements int      `json:"numberOfElements"`
	Size             int      `json:"size"`
	TotalElements    int64    `json:"totalElements"`
	TotalPages       int      `json:"totalPages"`
	Pageable         Pageable `json:"pageable"`
	Sort             SortInfo `json:"sort"`
}

// Pageable describes the page window of a Page.
type Pageable struct {
	Offset     int64    `json:"offset"`
	PageNumber int      `json:"pageNumber"`
	PageSize   int      `json:"pageSize"`
	Paged      bool     `json:"paged"`
	Unpaged    bool     `json:"unpaged"`
	Sort       SortInfo `json:"sort"`
}

// SortInfo describes the sort applied to a Page.
type SortInfo struct {
	Empty    bool `json:"empty"`
	Sorted   bool `json:"sorted"`
	Unsorted bool `json:"unsorted"`
}

// FlexTime decodes the timestamp shapes Komga emits for release dates:
// full RFC 3339, a bare date, or null.
type FlexTime struct {
	time.Time
}

const dateOnly = "2006-01-02"

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, *s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(dateOnly, *s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. Date-only values stay date-only.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return json.Marshal(t.Format(dateOnly))
	}
	return json.Marshal(t.Format(time.RFC3339))
}
