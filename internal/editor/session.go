// Package editor owns the server-side editing sessions: one session per
// open entry, holding the live document tree, the drag state machine, and
// the autosave pipeline. Session entry points serialize on the session
// mutex, so editor events apply one at a time like a browser event loop.
package editor

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/daybookhq/daybook/internal/autosave"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/dragdrop"
	"github.com/daybookhq/daybook/internal/layout"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/picker"
	"github.com/daybookhq/daybook/internal/refimage"
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

type SessionID string

// Session is one open editor for one entry. The document, drag engine,
// and autosave pipeline live here; HTTP handlers only translate requests
// into calls on it.
type Session struct {
	ID      SessionID
	EntryID model.EntryID
	Owner   model.UserID

	mu sync.Mutex

	doc    *document.Document
	engine *dragdrop.Engine

	pipeline *autosave.Pipeline
	coord    *picker.Coordinator
	slot     *refimage.Slot
	refs     ReferenceStore

	title    string
	date     string
	timezone string
}

func newSession(id SessionID, entry *model.Entry, coord *picker.Coordinator,
	client autosave.Client, refs ReferenceStore, clock autosave.Clock, cfg config.AutosaveConfig) (*Session, error) {

	doc, err := document.Parse(string(entry.Body))
	if err != nil {
		return nil, fmt.Errorf("error opening entry %s: %w", entry.ID, err)
	}
	layout.Normalize(doc)

	s := &Session{
		ID:      id,
		EntryID: entry.ID,
		Owner:   entry.Owner,

		doc:   doc,
		coord: coord,
		slot:  refimage.NewSlot(entry.ReferenceImage),
		refs:  refs,

		title:    entry.Title,
		date:     entry.Date,
		timezone: entry.Timezone,
	}
	s.engine = dragdrop.NewEngine(doc, coord, s.slot, s.contentChanged)
	s.pipeline = autosave.NewPipeline(client, clock, cfg, s.fieldsLocked(), entry.Version)
	return s, nil
}

// fieldsLocked captures the autosave field set from the live state. The
// caller holds the session mutex (or the session is not yet shared).
func (s *Session) fieldsLocked() autosave.Fields {
	return autosave.Fields{
		Text:           s.doc.Serialize(),
		Title:          s.title,
		Date:           s.date,
		Timezone:       s.timezone,
		ReferenceImage: s.slot.Current(),
	}
}

// contentChanged runs change detection against the live state. The drag
// engine calls it after every successful mutation; content and metadata
// updates call it directly.
func (s *Session) contentChanged() {
	s.pipeline.ContentChanged(s.fieldsLocked())
}

// SetStatusFunc registers the save-status observer (SSE fan-out).
func (s *Session) SetStatusFunc(fn func(autosave.StatusUpdate)) {
	s.pipeline.SetStatusFunc(fn)
}

// UpdateContent replaces the document with the client-submitted markup.
// Parsing through the document model keeps the whitelist authoritative;
// normalization re-derives grouping and float markers before the autosave
// pipeline sees the new serialized form. Usage counts are reconciled
// against the old tree, because the delete affordance removes wrappers
// client-side and arrives here as a content replace.
func (s *Session) UpdateContent(markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.Parse(markup)
	if err != nil {
		return fmt.Errorf("error parsing submitted content: %w", err)
	}
	layout.Normalize(doc)

	before := wrapperCounts(s.doc)
	after := wrapperCounts(doc)

	s.doc = doc
	s.engine = dragdrop.NewEngine(doc, s.coord, s.slot, s.contentChanged)
	s.reconcileUsageLocked(before, after)
	s.contentChanged()
	return nil
}

func wrapperCounts(d *document.Document) map[model.ImageID]int {
	counts := make(map[model.ImageID]int)
	for _, w := range d.Wrappers() {
		counts[document.WrapperID(w)]++
	}
	return counts
}

func (s *Session) reconcileUsageLocked(before, after map[model.ImageID]int) {
	var placed, removed []model.ImageID
	for id, n := range after {
		for ; n > before[id]; n-- {
			placed = append(placed, id)
		}
	}
	for id, n := range before {
		for ; n > after[id]; n-- {
			removed = append(removed, id)
		}
	}
	s.coord.RecordPlaced(placed...)
	s.coord.RecordRemoved(removed...)
}

// UpdateMeta replaces the entry's title, journal day, and timezone.
func (s *Session) UpdateMeta(title, date, timezone string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.title = title
	s.date = date
	s.timezone = timezone
	s.contentChanged()
}

// ToggleSelection flips picker multi-selection membership for a card.
func (s *Session) ToggleSelection(id model.ImageID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord.Toggle(id)
}

func (s *Session) DragStartPicker(id model.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.StartFromPicker(id)
}

func (s *Session) DragStartEditor(id model.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.StartFromEditor(id)
}

func (s *Session) DragStartReference() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.StartFromReference()
}

// DragHover repaints drop indication for the pointer position and reports
// whether the reference drop zone should highlight.
func (s *Session) DragHover(payload GeometryPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.UpdateHover(s.geometry(payload), payload.Point)
	return s.engine.ReferenceHighlight()
}

// DragDrop finishes the active drag. Usage counts and the reference-image
// row follow the result; the engine has already notified autosave.
func (s *Session) DragDrop(payload GeometryPayload) dragdrop.DropResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.slot.Current()
	result := s.engine.Drop(s.geometry(payload), payload.Point)
	if result.Cancelled {
		return result
	}

	s.coord.RecordPlaced(result.Inserted...)
	s.coord.RecordRemoved(result.Evicted...)
	if result.Source == dragdrop.SourceEditor {
		s.coord.RecordRemoved(result.Removed...)
	}
	if cur := s.slot.Current(); cur != prev {
		s.persistSlotLocked(cur)
	}
	return result
}

// persistSlotLocked writes the slot through to the store. The slot is not
// part of the versioned save body, so a drop that changes it must not
// wait out the debounce.
func (s *Session) persistSlotLocked(cur model.ImageID) {
	if err := s.refs.SetReference(s.EntryID, cur); err != nil {
		editorLogger.Error().Err(err).
			Str("entry_id", string(s.EntryID)).
			Str("image", string(cur)).
			Msg("Failed to persist reference image")
	}
}

func (s *Session) DragCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Cancel()
}

// Blur handles page-level focus loss: the drag state must not survive it,
// and pending edits are flushed rather than waiting out the debounce.
func (s *Session) Blur() {
	s.mu.Lock()
	s.engine.Blur()
	s.mu.Unlock()

	s.pipeline.Flush()
}

// SetReference sets or clears the reference-image slot from the slot's
// own endpoint (not a drag). The new value writes through to the store
// before the caller is answered.
func (s *Session) SetReference(id model.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.coord.Lookup(id); !ok {
			return fmt.Errorf("unknown image: %s", id)
		}
		s.slot.Set(id)
	} else {
		s.slot.Clear()
	}
	if err := s.refs.SetReference(s.EntryID, s.slot.Current()); err != nil {
		return fmt.Errorf("error persisting reference image: %w", err)
	}
	s.contentChanged()
	return nil
}

// Reference returns the slot's current image id.
func (s *Session) Reference() model.ImageID {
	return s.slot.Current()
}

// EditorHTML renders the live tree, decorations included, for fragment
// swaps.
func (s *Session) EditorHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HTML()
}

// Serialized returns the storable form of the current content.
func (s *Session) Serialized() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Serialize()
}

// SaveStatus returns the pipeline's current indicator state.
func (s *Session) SaveStatus() autosave.StatusUpdate {
	return s.pipeline.Status()
}

// Close flushes pending edits before the session is discarded.
func (s *Session) Close() {
	s.pipeline.Flush()
}
