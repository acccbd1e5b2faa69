// Package dragdrop implements the drag state machine for an editing
// session: tracking the active drag's source and payload, resolving drop
// targets from pointer geometry, and applying the resulting insert,
// reorder, and remove operations to the entry document.
package dragdrop

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/model"
)

var dragdropLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dragdropLogger = l
}

// Source tags which surface originated the active drag.
type Source int

const (
	SourcePicker Source = iota + 1
	SourceEditor
	SourceReference
)

func (s Source) String() string {
	switch s {
	case SourcePicker:
		return "picker"
	case SourceEditor:
		return "editor"
	case SourceReference:
		return "reference"
	}
	return "unknown"
}

// State describes an in-progress drag. A nil *State means idle. The value
// is owned by one Engine per editing session, never shared globally.
type State struct {
	Source  Source
	Payload []model.Image // insertion candidates in selection order
	Moving  *html.Node    // the wrapper being relocated on editor drags
}

// Count is the number of items the drag carries, shown as the drag badge.
func (s *State) Count() int {
	if s == nil {
		return 0
	}
	if s.Source == SourceEditor {
		return 1
	}
	return len(s.Payload)
}

// Picker is the gallery capability the engine consumes: the ordered
// multi-selection, image metadata lookup, and the post-drop selection
// clear. Usage counts stay inside the picker.
type Picker interface {
	Selection() []model.ImageID
	Lookup(id model.ImageID) (model.Image, bool)
	ClearSelection()
}

// ReferenceSlot is the single reference-image capability. The engine only
// needs its identity, set and clear, and its highlight predicate.
type ReferenceSlot interface {
	Current() model.ImageID
	Set(id model.ImageID)
	Clear()
	ShouldHighlight() bool
}

// Engine runs drags against one entry document. All methods are called
// from the owning session's event handling, one event at a time.
type Engine struct {
	doc    *document.Document
	picker Picker
	ref    ReferenceSlot

	state     *State
	decorated []*html.Node

	onContentChanged func()
}

func NewEngine(doc *document.Document, picker Picker, ref ReferenceSlot, onContentChanged func()) *Engine {
	return &Engine{
		doc:              doc,
		picker:           picker,
		ref:              ref,
		onContentChanged: onContentChanged,
	}
}

// State returns the active drag, or nil when idle.
func (e *Engine) State() *State {
	return e.state
}

func (e *Engine) Dragging() bool {
	return e.state != nil
}

// StartFromPicker begins a drag of the given gallery card. When the card
// belongs to an active multi-selection of two or more, the payload is the
// whole selection in gallery order; otherwise just the dragged card.
func (e *Engine) StartFromPicker(id model.ImageID) error {
	ids := []model.ImageID{id}
	if sel := e.picker.Selection(); len(sel) > 1 && containsID(sel, id) {
		ids = sel
	}

	var payload []model.Image
	for _, imgID := range ids {
		img, ok := e.picker.Lookup(imgID)
		if !ok {
			return fmt.Errorf("error starting picker drag: unknown image %s", imgID)
		}
		payload = append(payload, img)
	}

	e.state = &State{Source: SourcePicker, Payload: payload}
	dragdropLogger.Debug().Str("source", "picker").Int("count", len(payload)).Msg("Drag started")
	return nil
}

// StartFromEditor begins relocating a single wrapper already in the
// document. Multi-move is not supported for editor drags.
func (e *Engine) StartFromEditor(id model.ImageID) error {
	w := e.doc.WrapperByID(id)
	if w == nil {
		return fmt.Errorf("error starting editor drag: no wrapper for image %s", id)
	}

	e.state = &State{Source: SourceEditor, Moving: w}
	e.decorate(w, document.ClassDragging)
	dragdropLogger.Debug().Str("source", "editor").Str("image", string(id)).Msg("Drag started")
	return nil
}

// StartFromReference begins a drag of the reference-image slot's current
// image. Dropping it into the editor moves it into the content; dropping
// it on the picker clears the slot.
func (e *Engine) StartFromReference() error {
	id := e.ref.Current()
	if id == "" {
		return fmt.Errorf("error starting reference drag: slot is empty")
	}
	img, ok := e.picker.Lookup(id)
	if !ok {
		return fmt.Errorf("error starting reference drag: unknown image %s", id)
	}

	e.state = &State{Source: SourceReference, Payload: []model.Image{img}}
	dragdropLogger.Debug().Str("source", "reference").Str("image", string(id)).Msg("Drag started")
	return nil
}

// Cancel clears the drag state and every visual decoration without
// touching the document.
func (e *Engine) Cancel() {
	if e.state == nil {
		return
	}
	dragdropLogger.Debug().Str("source", e.state.Source.String()).Msg("Drag cancelled")
	e.reset()
}

// Blur handles a page-level focus loss. A drag must never survive it, or
// the editor would be stuck in a dragging state with no pointer.
func (e *Engine) Blur() {
	e.Cancel()
}

// reset returns the engine to idle and strips decorations from the tree.
func (e *Engine) reset() {
	e.clearDecorations()
	e.state = nil
}

func containsID(ids []model.ImageID, id model.ImageID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
