package picker

import (
	"fmt"
	"sync"
	"time"

	"github.com/daybookhq/daybook/internal/cache"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/model"
)

// SQLiteLibrary serves the catalog from the images table. Usage counts are
// persisted in the use_count column so they survive restarts.
type SQLiteLibrary struct {
	imageCache       *cache.Cache[string, *model.Image]
	imageCacheSorted []model.Image

	mu    sync.Mutex
	usage map[model.ImageID]int

	// Fingerprint of the last load, for the lightweight change check.
	lastCount   int
	lastCreated string

	reloadNotifier func()

	db db.DB
}

func NewSQLiteLibrary(db db.DB) *SQLiteLibrary {
	return &SQLiteLibrary{
		imageCache: cache.NewCache[string, *model.Image](),
		usage:      make(map[model.ImageID]int),

		db: db,
	}
}

func (l *SQLiteLibrary) Init() {
	images, imageMap, usage, err := l.loadImages()
	if err != nil {
		pickerLogger.Fatal().Err(err).Msg("Error initializing image library")
	}

	l.imageCacheSorted = images
	l.imageCache.SetTo(imageMap)
	l.mu.Lock()
	l.usage = usage
	l.mu.Unlock()

	// Baseline for the change check, so the first poll does not reload.
	if count, created, err := l.fingerprint(); err == nil {
		l.mu.Lock()
		l.lastCount = count
		l.lastCreated = created
		l.mu.Unlock()
	}

	go l.reloadImages()
}

func (l *SQLiteLibrary) Get(id model.ImageID) (model.Image, bool) {
	img, ok := l.imageCache.Get(string(id))
	if !ok {
		return model.Image{}, false
	}
	return *img, true
}

func (l *SQLiteLibrary) List() []model.Image {
	return l.imageCacheSorted
}

func (l *SQLiteLibrary) Usage() map[model.ImageID]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	usage := make(map[model.ImageID]int, len(l.usage))
	for id, n := range l.usage {
		usage[id] = n
	}
	return usage
}

func (l *SQLiteLibrary) RecordUse(id model.ImageID, delta int) {
	l.mu.Lock()
	n := l.usage[id] + delta
	if n < 0 {
		n = 0
	}
	l.usage[id] = n
	l.mu.Unlock()

	_, err := l.db.Exec(`UPDATE images SET use_count = MAX(0, use_count + ?) WHERE id = ?`, delta, id)
	if err != nil {
		pickerLogger.Error().Err(err).Str("image_id", string(id)).Msg("Error recording image use")
	}
}

func (l *SQLiteLibrary) SetReloadNotifier(notifier func()) {
	l.reloadNotifier = notifier
}

func (l *SQLiteLibrary) loadImages() ([]model.Image, map[string]*model.Image, map[model.ImageID]int, error) {
	rows, err := l.db.Query(`SELECT id, source_url, alt_text, caption, use_count, created_at, user_id FROM images`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error querying images: %w", err)
	}
	defer rows.Close()

	images := make([]model.Image, 0)
	imageMap := make(map[string]*model.Image)
	usage := make(map[model.ImageID]int)

	for rows.Next() {
		var img model.Image
		var useCount int

		err := rows.Scan(&img.ID, &img.SourceURL, &img.AltText, &img.Caption, &useCount, &img.CreatedDate, &img.Owner)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("error scanning image: %w", err)
		}

		images = append(images, img)
		imageMap[string(img.ID)] = &img
		usage[img.ID] = useCount
	}

	sortGallery(images)

	return images, imageMap, usage, nil
}

// fingerprint is the lightweight change check: row count plus the newest
// created_at, compared as the raw driver string to avoid the timestamp
// format dance.
func (l *SQLiteLibrary) fingerprint() (int, string, error) {
	var count int
	var created string
	row := l.db.Get().QueryRow(`SELECT COUNT(*), COALESCE(MAX(created_at), '') FROM images`)
	if err := row.Scan(&count, &created); err != nil {
		return 0, "", fmt.Errorf("error scanning image fingerprint: %w", err)
	}
	return count, created, nil
}

func (l *SQLiteLibrary) reloadImages() {
	sleepFunc := func() {
		time.Sleep(30 * time.Second)
	}

	for {
		sleepFunc()

		count, created, err := l.fingerprint()
		if err != nil {
			pickerLogger.Error().Err(err).Msg("Error checking image library for changes")
			continue
		}

		l.mu.Lock()
		unchanged := count == l.lastCount && created == l.lastCreated
		l.mu.Unlock()
		if unchanged {
			continue
		}

		pickerLogger.Debug().Msg("Image library may have changed, reloading")

		images, imageMap, usage, err := l.loadImages()
		if err != nil {
			pickerLogger.Error().Err(err).Msg("Error reloading image library")
		} else {
			l.imageCacheSorted = images
			l.imageCache.SetTo(imageMap)
			l.mu.Lock()
			l.usage = usage
			l.lastCount = count
			l.lastCreated = created
			l.mu.Unlock()

			pickerLogger.Info().Int("images", len(images)).Msg("Image library reloaded")
			if l.reloadNotifier != nil {
				go l.reloadNotifier()
			}
		}
	}
}
