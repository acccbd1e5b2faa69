// Package model defines core data structures and types for the journal application.
package model

import (
	"html/template"
	"time"
)

type EntryID string

type UserID string

// DateLayout is the storage format of an entry's journal day.
const DateLayout = "2006-01-02"

type Entry struct {
	ID EntryID

	Title    string
	Date     string // journal day, DateLayout
	Timezone string // IANA zone name the day is anchored to

	// Body is the stored clean-serialized markup: persistent content only,
	// no editor decorations.
	Body []byte

	// Content is the rendered read-view HTML.
	Content template.HTML
	Path    string

	// Used for cache busting.
	// We cannot use the content hash because the content is already rendered.
	BodyHash string

	// Version increments on every accepted save. Saves carrying a stale
	// version are rejected with a conflict.
	Version int64

	// Optional data: the entry's reference image, managed outside the body.
	ReferenceImage ImageID

	CreatedDate  time.Time
	ModifiedDate time.Time

	// Optional data: owner of the entry (for example, the user who created it).
	Owner UserID
}

// Day resolves the entry's journal day in its own timezone.
func (e *Entry) Day() (time.Time, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, e.Date, loc)
}

// DisplayTitle falls back to the formatted journal day for untitled entries.
func (e *Entry) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	if day, err := e.Day(); err == nil {
		return day.Format("January 2, 2006")
	}
	return string(e.ID)
}
