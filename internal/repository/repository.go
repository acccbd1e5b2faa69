// Package repository persists journal entries. Saves are conditioned on
// the entry's version number so concurrent writers surface as conflicts
// instead of silent lost updates.
package repository

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/daybookhq/daybook/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

// ErrVersionMismatch is returned when a save carries a version that no
// longer matches the stored entry. The caller answers it with a conflict,
// never a retry.
var ErrVersionMismatch = errors.New("entry version mismatch")

// ErrEntryNotFound is returned when the entry id does not exist.
var ErrEntryNotFound = errors.New("entry not found")

// EntryUpdate is the field set one save replaces. The body is the entry's
// clean-serialized markup.
type EntryUpdate struct {
	Body     []byte
	Title    string
	Date     string
	Timezone string
}

type EntryRepository interface {
	Init()

	GetEntries() ([]model.Entry, map[string]*model.Entry, error)
	GetEntryList() []model.Entry
	ReadEntry(id model.EntryID) (*model.Entry, error)

	NewEntry() *model.Entry
	SaveEntry(entry *model.Entry) error

	// UpdateEntry applies upd when expectedVersion still matches the stored
	// row, bumps the version, and returns the updated entry. A stale
	// expectedVersion yields ErrVersionMismatch and leaves the row alone.
	UpdateEntry(id model.EntryID, upd EntryUpdate, expectedVersion int64) (*model.Entry, error)

	// SetReference replaces the entry's reference image outside the
	// versioned save path. An empty id clears the slot.
	SetReference(id model.EntryID, image model.ImageID) error

	ReloadEntries()

	// SetReloadNotifier sets a function that will be called when an entry
	// changes behind the server's back.
	SetReloadNotifier(notifier func(model.EntryID))
}
