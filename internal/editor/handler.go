package editor

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/sse"
)

// Handler translates editor event requests into session calls and answers
// with fragments the page swaps in place.
type Handler struct {
	registry *Registry
	clients  *sse.SSEClients
}

func NewHandler(registry *Registry, clients *sse.SSEClients) *Handler {
	return &Handler{
		registry: registry,
		clients:  clients,
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	session, err := h.registry.Get(SessionID(r.PathValue("session")))
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil
	}
	return session
}

// ServeContent handles a content update: the client posts the editor's
// current markup plus the metadata fields after an input settles.
func (h *Handler) ServeContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	session := h.session(w, r)
	if session == nil {
		return
	}

	if err := session.UpdateContent(r.FormValue("content")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	session.UpdateMeta(r.FormValue("title"), r.FormValue("date"), r.FormValue("timezone"))

	w.WriteHeader(http.StatusNoContent)
}

// ServeSelect toggles picker multi-selection membership for a card.
func (h *Handler) ServeSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	session := h.session(w, r)
	if session == nil {
		return
	}

	selected, err := session.ToggleSelection(model.ImageID(r.FormValue("image")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	json.NewEncoder(w).Encode(map[string]bool{"selected": selected})
}

// ServeDragStart begins a drag. The form names the source surface and,
// for picker and editor drags, the image the gesture grabbed.
func (h *Handler) ServeDragStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	session := h.session(w, r)
	if session == nil {
		return
	}

	var err error
	switch source := r.FormValue("source"); source {
	case "picker":
		err = session.DragStartPicker(model.ImageID(r.FormValue("image")))
	case "editor":
		err = session.DragStartEditor(model.ImageID(r.FormValue("image")))
	case "reference":
		err = session.DragStartReference()
	default:
		err = fmt.Errorf("unknown drag source: %s", source)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ServeDragHover repaints drop indication for a pointer move.
func (h *Handler) ServeDragHover(w http.ResponseWriter, r *http.Request) {
	session, payload, ok := h.dragRequest(w, r)
	if !ok {
		return
	}

	highlight := session.DragHover(payload)

	w.Header().Set(config.HCType, config.CTypeHTML)
	if highlight {
		w.Header().Set("Hx-Trigger", `{"referenceHighlight":true}`)
	}
	w.Write([]byte(session.EditorHTML()))
}

// ServeDragDrop finishes the active drag and answers with the updated
// editor fragment. Cancels (drop outside any target) answer the same
// fragment; nothing changed, so the swap is a no-op. A drop that moved
// the reference slot announces the new value so the page can repaint it.
func (h *Handler) ServeDragDrop(w http.ResponseWriter, r *http.Request) {
	session, payload, ok := h.dragRequest(w, r)
	if !ok {
		return
	}

	before := session.Reference()
	result := session.DragDrop(payload)
	if result.Changed() {
		h.broadcast(session.EntryID, "unsaved")
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if after := session.Reference(); after != before {
		w.Header().Set("Hx-Trigger", fmt.Sprintf(`{"referenceChanged":%q}`, after))
	}
	w.Write([]byte(session.EditorHTML()))
}

// ServeReference sets or clears the reference slot directly, outside any
// drag gesture.
func (h *Handler) ServeReference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	session := h.session(w, r)
	if session == nil {
		return
	}

	if err := session.SetReference(model.ImageID(r.FormValue("image"))); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dragRequest(w http.ResponseWriter, r *http.Request) (*Session, GeometryPayload, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return nil, GeometryPayload{}, false
	}
	session := h.session(w, r)
	if session == nil {
		return nil, GeometryPayload{}, false
	}

	var payload GeometryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid geometry payload", http.StatusBadRequest)
		return nil, GeometryPayload{}, false
	}
	return session, payload, true
}

// ServeDragCancel clears drag state without touching the document.
func (h *Handler) ServeDragCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	session := h.session(w, r)
	if session == nil {
		return
	}

	session.DragCancel()

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Write([]byte(session.EditorHTML()))
}

// ServeBlur handles page-level focus loss: drag state resets and pending
// edits flush.
func (h *Handler) ServeBlur(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	session := h.session(w, r)
	if session == nil {
		return
	}

	session.Blur()
	w.WriteHeader(http.StatusNoContent)
}

// ServeClose flushes and discards the session.
func (h *Handler) ServeClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	id := SessionID(r.PathValue("session"))
	h.registry.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) broadcast(entryID model.EntryID, msg string) {
	if h.clients != nil {
		go h.clients.Broadcast(entryID, msg)
	}
}
