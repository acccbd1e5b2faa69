package picker

import (
	"sync"

	"github.com/daybookhq/daybook/internal/model"
)

// MemoryLibrary keeps the catalog in memory. Used by tests and by servers
// running without a database.
type MemoryLibrary struct {
	mu     sync.RWMutex
	images map[model.ImageID]model.Image
	sorted []model.Image
	usage  map[model.ImageID]int

	reloadNotifier func()
}

func NewMemoryLibrary(images ...model.Image) *MemoryLibrary {
	l := &MemoryLibrary{
		images: make(map[model.ImageID]model.Image),
		usage:  make(map[model.ImageID]int),
	}
	for _, img := range images {
		l.images[img.ID] = img
	}
	l.resort()
	return l
}

func (l *MemoryLibrary) Init() {}

func (l *MemoryLibrary) Add(img model.Image) {
	l.mu.Lock()
	l.images[img.ID] = img
	l.resortLocked()
	notifier := l.reloadNotifier
	l.mu.Unlock()

	if notifier != nil {
		notifier()
	}
}

func (l *MemoryLibrary) Get(id model.ImageID) (model.Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.images[id]
	return img, ok
}

func (l *MemoryLibrary) List() []model.Image {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sorted
}

func (l *MemoryLibrary) Usage() map[model.ImageID]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	usage := make(map[model.ImageID]int, len(l.usage))
	for id, n := range l.usage {
		usage[id] = n
	}
	return usage
}

func (l *MemoryLibrary) RecordUse(id model.ImageID, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.usage[id] + delta
	if n < 0 {
		n = 0
	}
	l.usage[id] = n
}

func (l *MemoryLibrary) SetReloadNotifier(notifier func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reloadNotifier = notifier
}

func (l *MemoryLibrary) resort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resortLocked()
}

func (l *MemoryLibrary) resortLocked() {
	sorted := make([]model.Image, 0, len(l.images))
	for _, img := range l.images {
		sorted = append(sorted, img)
	}
	sortGallery(sorted)
	l.sorted = sorted
}
