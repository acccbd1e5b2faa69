package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/daybookhq/daybook/internal/autosave"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/picker"
)

// ClientFactory builds the save transport for one entry's pipeline. The
// pipeline talks to the save endpoint over it and never assumes the
// endpoint is in-process.
type ClientFactory func(entryID model.EntryID) autosave.Client

// ReferenceStore persists reference-slot changes. The slot lives outside
// the versioned save body, so every mutation writes through immediately
// instead of riding the autosave pipeline.
type ReferenceStore interface {
	SetReference(id model.EntryID, image model.ImageID) error
}

// Registry tracks open editor sessions. One session per browser tab; a
// second open of the same entry gets its own session and relies on the
// version check to surface the race.
type Registry struct {
	sessions sync.Map // SessionID -> *Session

	library picker.Library
	clients ClientFactory
	refs    ReferenceStore
	clock   autosave.Clock
	cfg     config.AutosaveConfig
}

func NewRegistry(library picker.Library, clients ClientFactory, refs ReferenceStore, clock autosave.Clock, cfg config.AutosaveConfig) *Registry {
	return &Registry{
		library: library,
		clients: clients,
		refs:    refs,
		clock:   clock,
		cfg:     cfg,
	}
}

// Open creates a session for the entry. Every session gets its own picker
// coordinator (selection is per-tab) over the shared library.
func (r *Registry) Open(entry *model.Entry) (*Session, error) {
	id := SessionID(uuid.New().String())

	session, err := newSession(id, entry, picker.NewCoordinator(r.library), r.clients(entry.ID), r.refs, r.clock, r.cfg)
	if err != nil {
		return nil, err
	}

	r.sessions.Store(id, session)
	editorLogger.Info().
		Str("session_id", string(id)).
		Str("entry_id", string(entry.ID)).
		Msg("Editor session opened")
	return session, nil
}

func (r *Registry) Get(id SessionID) (*Session, error) {
	if s, ok := r.sessions.Load(id); ok {
		return s.(*Session), nil
	}
	return nil, fmt.Errorf("session not found: %s", id)
}

// Close flushes and discards a session.
func (r *Registry) Close(id SessionID) {
	if s, ok := r.sessions.LoadAndDelete(id); ok {
		s.(*Session).Close()
		editorLogger.Info().Str("session_id", string(id)).Msg("Editor session closed")
	}
}
