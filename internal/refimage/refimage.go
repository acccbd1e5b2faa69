// Package refimage holds an entry's single reference-image slot. The drag
// engine treats it as an opaque collaborator: it reads the current id,
// sets or clears it on drops, and consults the highlight veto.
package refimage

import (
	"sync"

	"github.com/daybookhq/daybook/internal/model"
)

type Slot struct {
	mu      sync.Mutex
	current model.ImageID
	enabled bool
}

func NewSlot(current model.ImageID) *Slot {
	return &Slot{
		current: current,
		enabled: true,
	}
}

func (s *Slot) Current() model.ImageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Slot) Set(id model.ImageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
}

// SetEnabled disables the drop zone, e.g. for read-only views.
func (s *Slot) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// ShouldHighlight is the slot's veto on drop-zone highlighting. The drag
// engine decides whether the active payload could land here at all.
func (s *Slot) ShouldHighlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}
