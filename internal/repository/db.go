package repository

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybookhq/daybook/internal/cache"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/util"
	"github.com/daybookhq/daybook/internal/util/compression"
)

type DBEntryRepository struct { // implements EntryRepository
	entriesCache       *cache.Cache[string, *model.Entry]
	entriesCacheSorted []model.Entry

	reloadNotifier   func(model.EntryID)
	lastModifiedTime *time.Time // Track the latest modification time

	db         db.DB
	compressor compression.Compressor
}

func NewDBEntryRepository(db db.DB) *DBEntryRepository {
	return &DBEntryRepository{
		entriesCache: cache.NewCache[string, *model.Entry](),

		db: db,

		compressor: compression.ZstdCompressor{},
	}
}

func (r *DBEntryRepository) Init() {
	entries, entryMap, err := r.GetEntries()
	if err != nil {
		repoLogger.Fatal().Err(err).Msg("Error initializing entries")
	}

	r.entriesCacheSorted = entries
	r.entriesCache.SetTo(entryMap)

	go r.ReloadEntries()
}

func (r *DBEntryRepository) GetLatestModifiedTime() (*time.Time, error) {
	var latestTimeStr sql.NullString
	row := r.db.Get().QueryRow(`SELECT MAX(modified_at) FROM entries`)
	err := row.Scan(&latestTimeStr)
	if err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil // It was NULL, so no entries or no valid timestamps.
	}

	// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
	// It can be in a format with a space separator.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00", // Space separator with timezone
		time.RFC3339Nano,                      // 'T' separator with timezone
		time.RFC3339,                          // 'T' separator, no nanos
	}

	var latestTime time.Time
	var parseErr error
	for _, format := range timeFormats {
		latestTime, parseErr = time.Parse(format, latestTimeStr.String)
		if parseErr == nil {
			return &latestTime, nil
		}
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

func (r *DBEntryRepository) GetEntries() ([]model.Entry, map[string]*model.Entry, error) {
	rows, err := r.db.Query(`SELECT id, title, entry_date, timezone, body, body_hash, reference_image, version, created_at, modified_at, user_id FROM entries`)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	entryMap := make(map[string]*model.Entry)
	var latestModTime *time.Time

	for rows.Next() {
		var entry model.Entry
		var compressed []byte

		err := rows.Scan(&entry.ID, &entry.Title, &entry.Date, &entry.Timezone, &compressed,
			&entry.BodyHash, &entry.ReferenceImage, &entry.Version, &entry.CreatedDate, &entry.ModifiedDate, &entry.Owner)
		if err != nil {
			return nil, nil, fmt.Errorf("error scanning entry: %w", err)
		}

		// Track the latest modification time
		if latestModTime == nil || entry.ModifiedDate.After(*latestModTime) {
			latestModTime = &entry.ModifiedDate
		}

		// Decompress the body
		body, err := r.compressor.Decompress(compressed)
		if err != nil {
			return nil, nil, fmt.Errorf("error decompressing body: %w", err)
		}
		entry.Body = body
		entry.Path = string(entry.ID)

		entries = append(entries, entry)
		entryMap[string(entry.ID)] = &entry
	}

	// Update our tracked modification time
	r.lastModifiedTime = latestModTime

	// Sort the entries by journal day, newest first
	slices.SortStableFunc(entries, func(a, b model.Entry) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})

	return entries, entryMap, nil
}

func (r *DBEntryRepository) GetEntryList() []model.Entry {
	return r.entriesCacheSorted
}

func (r *DBEntryRepository) ReadEntry(id model.EntryID) (*model.Entry, error) {
	entry, ok := r.entriesCache.Get(string(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return entry, nil
}

func (r *DBEntryRepository) ReloadEntries() {
	sleepFunc := func() {
		time.Sleep(10 * time.Second)
	}

	for {
		// First, do a lightweight check to see if anything has changed
		latestTime, err := r.GetLatestModifiedTime()
		if err != nil {
			repoLogger.Error().Err(err).Msg("Error checking latest modification time")
			sleepFunc()
			continue
		}

		// If we have a cached time and nothing has changed, skip
		if r.lastModifiedTime != nil && latestTime != nil && !latestTime.After(*r.lastModifiedTime) {
			repoLogger.Debug().Msg("No entries modified, skipping reload")
			sleepFunc()
			continue
		}

		repoLogger.Debug().Msg("Entries may have changed, performing full reload")

		// Something changed, do the full reload
		entries, entryMap, err := r.GetEntries()
		if err != nil {
			repoLogger.Error().Err(err).Msg("Error reloading entries")
		} else {
			// Check if any entries have changed by comparing body hashes
			hasChanges := false

			// Create a map of current cached entries for quick lookup
			cachedEntries := make(map[string]*model.Entry)
			for i := range r.entriesCacheSorted {
				cachedEntries[string(r.entriesCacheSorted[i].ID)] = &r.entriesCacheSorted[i]
			}

			// Check for new or modified entries
			for _, newEntry := range entries {
				if cachedEntry, exists := cachedEntries[string(newEntry.ID)]; exists {
					// Compare body hashes to detect changes
					if newEntry.BodyHash != cachedEntry.BodyHash {
						hasChanges = true
						repoLogger.Info().
							Str("entry_id", string(newEntry.ID)).
							Str("title", newEntry.Title).
							Msg("Entry content changed, reloading")
						if r.reloadNotifier != nil {
							go r.reloadNotifier(newEntry.ID)
						}
					}
				} else {
					// New entry detected
					hasChanges = true
					repoLogger.Info().
						Str("entry_id", string(newEntry.ID)).
						Str("title", newEntry.Title).
						Msg("New entry detected")
				}
			}

			// Check for deleted entries
			if len(entries) != len(r.entriesCacheSorted) {
				hasChanges = true
				repoLogger.Info().Msg("Number of entries changed")
			}

			if hasChanges {
				repoLogger.Info().Msg("Entries have changed, updating cache")
				r.entriesCacheSorted = entries
				r.entriesCache.SetTo(entryMap)
			}
		}

		sleepFunc()
	}
}

func (r *DBEntryRepository) SetReloadNotifier(notifier func(model.EntryID)) {
	r.reloadNotifier = notifier
}

func (r *DBEntryRepository) NewEntry() *model.Entry {
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

func (r *DBEntryRepository) SaveEntry(entry *model.Entry) error {
	// Compress the body
	compressed, err := r.compressor.Compress(entry.Body)
	if err != nil {
		return fmt.Errorf("error compressing body: %w", err)
	}

	// Calculate the content hash for the compressed body
	entry.BodyHash = util.ContentHash(compressed)

	res, err := r.db.Exec(
		`INSERT INTO entries (id, title, entry_date, timezone, body, body_hash, reference_image, version, created_at, modified_at, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Title, entry.Date, entry.Timezone, compressed, entry.BodyHash,
		entry.ReferenceImage, entry.Version, entry.CreatedDate, entry.ModifiedDate, entry.Owner,
	)

	if err != nil {
		return fmt.Errorf("error saving entry: %w", err)
	}

	r.refreshCache()

	repoLogger.Debug().Interface("result", res).Msg("Entry saved")

	return nil
}

// UpdateEntry is the versioned save path. The version predicate is part of
// the UPDATE itself, so two racing saves can never both win: the loser
// matches zero rows and gets ErrVersionMismatch.
func (r *DBEntryRepository) UpdateEntry(id model.EntryID, upd EntryUpdate, expectedVersion int64) (*model.Entry, error) {
	compressed, err := r.compressor.Compress(upd.Body)
	if err != nil {
		return nil, fmt.Errorf("error compressing body: %w", err)
	}
	bodyHash := util.ContentHash(compressed)
	now := time.Now().UTC()

	res, err := r.db.Exec(
		`UPDATE entries SET title = ?, entry_date = ?, timezone = ?, body = ?, body_hash = ?, version = version + 1, modified_at = ?
		 WHERE id = ? AND version = ?`,
		upd.Title, upd.Date, upd.Timezone, compressed, bodyHash, now, id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error checking update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a stale version from a missing entry.
		var current int64
		row := r.db.Get().QueryRow(`SELECT version FROM entries WHERE id = ?`, id)
		if scanErr := row.Scan(&current); scanErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		repoLogger.Warn().
			Str("entry_id", string(id)).
			Int64("expected_version", expectedVersion).
			Int64("current_version", current).
			Msg("Version mismatch on save")
		return nil, fmt.Errorf("%w: expected %d, have %d", ErrVersionMismatch, expectedVersion, current)
	}

	r.refreshCache()

	entry, err := r.ReadEntry(id)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *DBEntryRepository) SetReference(id model.EntryID, image model.ImageID) error {
	res, err := r.db.Exec(`UPDATE entries SET reference_image = ? WHERE id = ?`, image, id)
	if err != nil {
		return fmt.Errorf("error setting reference image: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	r.refreshCache()
	return nil
}

func (r *DBEntryRepository) refreshCache() {
	entries, entryMap, err := r.GetEntries()
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error refreshing entry cache")
		return
	}
	r.entriesCacheSorted = entries
	r.entriesCache.SetTo(entryMap)
}
