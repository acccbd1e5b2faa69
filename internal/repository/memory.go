package repository

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/util"
)

// MemoryEntryRepository keeps entries in memory. Used by tests and by
// servers running without a database. The version predicate behaves
// exactly like the SQLite implementation's.
type MemoryEntryRepository struct {
	mu      sync.RWMutex
	entries map[model.EntryID]*model.Entry
	sorted  []model.Entry

	reloadNotifier func(model.EntryID)
}

func NewMemoryEntryRepository() *MemoryEntryRepository {
	return &MemoryEntryRepository{
		entries: make(map[model.EntryID]*model.Entry),
	}
}

func (r *MemoryEntryRepository) Init() {}

func (r *MemoryEntryRepository) GetEntries() ([]model.Entry, map[string]*model.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entryMap := make(map[string]*model.Entry, len(r.entries))
	for id, entry := range r.entries {
		entryMap[string(id)] = entry
	}
	return slices.Clone(r.sorted), entryMap, nil
}

func (r *MemoryEntryRepository) GetEntryList() []model.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted
}

func (r *MemoryEntryRepository) ReadEntry(id model.EntryID) (*model.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	cp := *entry
	return &cp, nil
}

func (r *MemoryEntryRepository) NewEntry() *model.Entry {
	now := time.Now().UTC()

	return &model.Entry{
		ID: model.EntryID(uuid.New().String()),

		Date:     now.Format(model.DateLayout),
		Timezone: "UTC",
		Version:  1,

		CreatedDate:  now,
		ModifiedDate: now,
	}
}

func (r *MemoryEntryRepository) SaveEntry(entry *model.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("entry already exists: %s", entry.ID)
	}

	entry.BodyHash = util.ContentHash(entry.Body)
	cp := *entry
	r.entries[entry.ID] = &cp
	r.resortLocked()
	return nil
}

func (r *MemoryEntryRepository) UpdateEntry(id model.EntryID, upd EntryUpdate, expectedVersion int64) (*model.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if entry.Version != expectedVersion {
		return nil, fmt.Errorf("%w: expected %d, have %d", ErrVersionMismatch, expectedVersion, entry.Version)
	}

	entry.Body = slices.Clone(upd.Body)
	entry.Title = upd.Title
	entry.Date = upd.Date
	entry.Timezone = upd.Timezone
	entry.BodyHash = util.ContentHash(upd.Body)
	entry.Version++
	entry.ModifiedDate = time.Now().UTC()
	r.resortLocked()

	cp := *entry
	return &cp, nil
}

func (r *MemoryEntryRepository) SetReference(id model.EntryID, image model.ImageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	entry.ReferenceImage = image
	return nil
}

func (r *MemoryEntryRepository) ReloadEntries() {}

func (r *MemoryEntryRepository) SetReloadNotifier(notifier func(model.EntryID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadNotifier = notifier
}

func (r *MemoryEntryRepository) resortLocked() {
	sorted := make([]model.Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		sorted = append(sorted, *entry)
	}
	slices.SortStableFunc(sorted, func(a, b model.Entry) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})
	r.sorted = sorted
}
