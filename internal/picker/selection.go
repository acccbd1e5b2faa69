package picker

import (
	"fmt"
	"sync"

	"github.com/daybookhq/daybook/internal/model"
)

// Selection is the picker's multi-selection. Membership is a set; Ordered
// reports members in gallery order regardless of the order they were
// clicked in, which is also the order multi-image drops insert in.
type Selection struct {
	mu  sync.Mutex
	set map[model.ImageID]bool
}

func NewSelection() *Selection {
	return &Selection{
		set: make(map[model.ImageID]bool),
	}
}

// Toggle flips membership and reports whether the id is selected after.
func (s *Selection) Toggle(id model.ImageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set[id] {
		delete(s.set, id)
		return false
	}
	s.set[id] = true
	return true
}

func (s *Selection) Contains(id model.ImageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set[id]
}

func (s *Selection) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = make(map[model.ImageID]bool)
}

// Ordered filters the gallery down to the selected ids, preserving gallery
// order.
func (s *Selection) Ordered(gallery []model.Image) []model.ImageID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]model.ImageID, 0, len(s.set))
	for _, img := range gallery {
		if s.set[img.ID] {
			ids = append(ids, img.ID)
		}
	}
	return ids
}

// Coordinator ties the library and the selection together for the drag
// engine: the engine reads the current selection and resolves payload
// images through it.
type Coordinator struct {
	library   Library
	selection *Selection
}

func NewCoordinator(library Library) *Coordinator {
	return &Coordinator{
		library:   library,
		selection: NewSelection(),
	}
}

func (c *Coordinator) Library() Library {
	return c.library
}

// Toggle flips selection membership for a gallery card. Unknown ids are
// rejected so a stale client cannot select an image that no longer exists.
func (c *Coordinator) Toggle(id model.ImageID) (bool, error) {
	if _, ok := c.library.Get(id); !ok {
		return false, fmt.Errorf("unknown image: %s", id)
	}
	return c.selection.Toggle(id), nil
}

func (c *Coordinator) Selection() []model.ImageID {
	return c.selection.Ordered(c.library.List())
}

func (c *Coordinator) Contains(id model.ImageID) bool {
	return c.selection.Contains(id)
}

func (c *Coordinator) Lookup(id model.ImageID) (model.Image, bool) {
	return c.library.Get(id)
}

func (c *Coordinator) ClearSelection() {
	c.selection.Clear()
}

// RecordPlaced and RecordRemoved keep the library's usage counts current
// as the editor inserts and removes wrappers.
func (c *Coordinator) RecordPlaced(ids ...model.ImageID) {
	for _, id := range ids {
		c.library.RecordUse(id, 1)
	}
}

func (c *Coordinator) RecordRemoved(ids ...model.ImageID) {
	for _, id := range ids {
		c.library.RecordUse(id, -1)
	}
}
