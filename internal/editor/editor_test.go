package editor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daybookhq/daybook/internal/autosave"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/dragdrop"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/picker"
)

type stubClient struct {
	mu    sync.Mutex
	saves []autosave.Request
}

func (c *stubClient) Save(ctx context.Context, req autosave.Request) (*autosave.Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, req)
	return &autosave.Ack{Version: req.Version + 1, Modified: time.Now()}, nil
}

func (c *stubClient) saved() []autosave.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]autosave.Request(nil), c.saves...)
}

// stubClock never fires its timers, so nothing saves behind the test's
// back; Flush still saves synchronously.
type stubClock struct{}

func (stubClock) Now() time.Time { return time.Unix(0, 0) }

func (stubClock) AfterFunc(d time.Duration, f func()) autosave.Timer {
	return stubTimer{}
}

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

func testConfig() config.AutosaveConfig {
	return config.AutosaveConfig{
		DebounceSeconds:  2,
		MaxWaitSeconds:   30,
		RetryBaseSeconds: 2,
		RetryLimit:       3,
	}
}

func testLibrary() picker.Library {
	return picker.NewMemoryLibrary(
		model.Image{ID: "a", SourceURL: "/images/a.jpg", CreatedDate: time.Unix(100, 0)},
		model.Image{ID: "b", SourceURL: "/images/b.jpg", CreatedDate: time.Unix(200, 0)},
	)
}

// stubRefStore records reference writes the way the entry repository
// would.
type stubRefStore struct {
	mu   sync.Mutex
	refs map[model.EntryID]model.ImageID
}

func (s *stubRefStore) SetReference(id model.EntryID, image model.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == nil {
		s.refs = make(map[model.EntryID]model.ImageID)
	}
	s.refs[id] = image
	return nil
}

func (s *stubRefStore) reference(id model.EntryID) (model.ImageID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.refs[id]
	return img, ok
}

func testRegistry(client *stubClient) *Registry {
	return NewRegistry(testLibrary(), func(model.EntryID) autosave.Client { return client }, &stubRefStore{}, stubClock{}, testConfig())
}

func testEntry(body string) *model.Entry {
	return &model.Entry{
		ID:       "entry-1",
		Title:    "A day",
		Date:     "2026-08-25",
		Timezone: "UTC",
		Body:     []byte(body),
		Version:  3,
		Owner:    "admin",
	}
}

func openSession(t *testing.T, body string) (*Registry, *Session, *stubClient) {
	t.Helper()
	client := &stubClient{}
	registry := testRegistry(client)
	session, err := registry.Open(testEntry(body))
	if err != nil {
		t.Fatalf("Failed to open session: %v", err)
	}
	return registry, session, client
}

func TestRegistryOpenGetClose(t *testing.T) {
	registry, session, _ := openSession(t, "<p>hello</p>")

	got, err := registry.Get(session.ID)
	if err != nil {
		t.Fatalf("Failed to get open session: %v", err)
	}
	if got != session {
		t.Errorf("Expected the same session back")
	}

	registry.Close(session.ID)
	if _, err := registry.Get(session.ID); err == nil {
		t.Errorf("Expected a closed session to be gone")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	client := &stubClient{}
	registry := testRegistry(client)

	first, err := registry.Open(testEntry("<p>one</p>"))
	if err != nil {
		t.Fatalf("Failed to open first session: %v", err)
	}
	second, err := registry.Open(testEntry("<p>one</p>"))
	if err != nil {
		t.Fatalf("Failed to open second session: %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("Expected distinct session ids for the same entry")
	}

	// Selection is per session.
	if _, err := first.ToggleSelection("a"); err != nil {
		t.Fatalf("Failed to toggle selection: %v", err)
	}
	if second.coord.Contains("a") {
		t.Errorf("Expected the second session's selection to be untouched")
	}
}

func TestEditorHTMLCarriesDecorations(t *testing.T) {
	wrapper := `<span class="entry-image layout-full-width" data-image-id="a"><img src="/images/a.jpg" alt=""/></span>`
	_, session, _ := openSession(t, "<p>hello</p>"+wrapper)

	editorView := session.EditorHTML()
	if !strings.Contains(editorView, "image-delete") {
		t.Errorf("Expected delete affordances in the editor view, got %s", editorView)
	}

	stored := session.Serialized()
	if strings.Contains(stored, "image-delete") {
		t.Errorf("Expected no affordances in the serialized form, got %s", stored)
	}
	if !strings.Contains(stored, `data-image-id="a"`) {
		t.Errorf("Expected the wrapper to persist, got %s", stored)
	}
}

func TestUpdateContentSanitizes(t *testing.T) {
	_, session, client := openSession(t, "<p>hello</p>")

	dirty := `<div class="image-group">` +
		`<span class="entry-image layout-full-width" data-image-id="a"><img src="/images/a.jpg" alt=""/>` +
		`<button class="image-delete">x</button></span></div><p>after</p>`
	if err := session.UpdateContent(dirty); err != nil {
		t.Fatalf("Failed to update content: %v", err)
	}

	stored := session.Serialized()
	if strings.Contains(stored, "image-group") {
		t.Errorf("Expected derived grouping to dissolve on serialize, got %s", stored)
	}

	session.Blur()
	saves := client.saved()
	if len(saves) == 0 {
		t.Fatalf("Expected blur to flush the pending edit")
	}
	last := saves[len(saves)-1]
	if last.Version != 3 {
		t.Errorf("Expected the save conditioned on version 3, got %d", last.Version)
	}
	if strings.Contains(last.Text, "image-delete") {
		t.Errorf("Expected the flushed save to carry clean markup, got %s", last.Text)
	}
}

func TestUpdateMetaTriggersChange(t *testing.T) {
	_, session, client := openSession(t, "<p>hello</p>")

	session.UpdateMeta("New title", "2026-08-26", "Europe/Lisbon")
	session.Blur()

	saves := client.saved()
	if len(saves) == 0 {
		t.Fatalf("Expected a flushed save after a metadata change")
	}
	last := saves[len(saves)-1]
	if last.NewTitle != "New title" || last.NewDate != "2026-08-26" || last.NewTimezone != "Europe/Lisbon" {
		t.Errorf("Expected the new metadata on the wire, got %+v", last)
	}
}

func TestBlurWithoutChangesSavesNothing(t *testing.T) {
	_, session, client := openSession(t, "<p>hello</p>")

	session.Blur()
	if saves := client.saved(); len(saves) != 0 {
		t.Errorf("Expected no save without changes, got %d", len(saves))
	}
}

func dropPayload(hitPath []int) GeometryPayload {
	return GeometryPayload{
		Point:   dragdrop.Point{X: 100, Y: 10},
		HitPath: hitPath,
		Blocks: map[int]dragdrop.Rect{
			0: {Top: 0, Bottom: 90, Left: 0, Right: 800},
		},
		OverEditor: true,
	}
}

func TestDragFromPickerToParagraph(t *testing.T) {
	_, session, _ := openSession(t, "<p>hello world</p>")

	if err := session.DragStartPicker("a"); err != nil {
		t.Fatalf("Failed to start drag: %v", err)
	}

	session.DragHover(dropPayload([]int{0}))
	if !strings.Contains(session.EditorHTML(), "drop-target") {
		t.Errorf("Expected float indication while hovering a paragraph")
	}

	result := session.DragDrop(dropPayload([]int{0}))
	if result.Cancelled {
		t.Fatalf("Expected the drop to land")
	}
	if len(result.Inserted) != 1 || result.Inserted[0] != "a" {
		t.Errorf("Expected image a inserted, got %+v", result)
	}

	stored := session.Serialized()
	if !strings.Contains(stored, `data-image-id="a"`) || !strings.Contains(stored, "layout-float-right") {
		t.Errorf("Expected a float wrapper in the stored form, got %s", stored)
	}

	// Usage follows placements.
	if got := session.coord.Library().Usage()["a"]; got != 1 {
		t.Errorf("Expected usage count 1 for image a, got %d", got)
	}
}

func referenceDropPayload() GeometryPayload {
	return GeometryPayload{
		Point:         dragdrop.Point{X: 900, Y: 120},
		OverReference: true,
	}
}

func TestDropOnReferenceSlotPersistsImmediately(t *testing.T) {
	registry, session, _ := openSession(t, "<p>hello</p>")
	store := registry.refs.(*stubRefStore)

	if err := session.DragStartPicker("a"); err != nil {
		t.Fatalf("Failed to start drag: %v", err)
	}
	result := session.DragDrop(referenceDropPayload())
	if result.Cancelled || result.Reference != "a" {
		t.Fatalf("Expected the drop to set the reference, got %+v", result)
	}
	if session.Reference() != "a" {
		t.Errorf("Expected the slot to hold image a")
	}

	// The save body never carries the slot, so the store must already
	// have it before any save runs.
	if got, ok := store.reference(session.EntryID); !ok || got != "a" {
		t.Errorf("Expected the reference persisted on drop, got %q", got)
	}

	session.Blur()
	if st := session.SaveStatus(); st.Status != autosave.StatusSaved {
		t.Errorf("Expected status saved after the flush, got %s", st.Status)
	}
	if got, _ := store.reference(session.EntryID); got != "a" {
		t.Errorf("Expected the reference to survive the save, got %q", got)
	}
}

func TestReferenceDropOnPickerPersistsClear(t *testing.T) {
	registry, session, _ := openSession(t, "<p>hello</p>")
	store := registry.refs.(*stubRefStore)

	if err := session.SetReference("a"); err != nil {
		t.Fatalf("Failed to set reference: %v", err)
	}
	if err := session.DragStartReference(); err != nil {
		t.Fatalf("Failed to start reference drag: %v", err)
	}

	result := session.DragDrop(GeometryPayload{
		Point:      dragdrop.Point{X: 900, Y: 400},
		OverPicker: true,
	})
	if result.Cancelled || len(result.Removed) != 1 || result.Removed[0] != "a" {
		t.Fatalf("Expected the drop to clear the slot, got %+v", result)
	}
	if session.Reference() != "" {
		t.Errorf("Expected an empty slot after the removal drop")
	}
	if got, ok := store.reference(session.EntryID); !ok || got != "" {
		t.Errorf("Expected the cleared slot persisted, got %q", got)
	}
}

func TestDeleteViaContentReplaceReleasesUsage(t *testing.T) {
	_, session, _ := openSession(t, "<p>hello world</p>")

	if err := session.DragStartPicker("a"); err != nil {
		t.Fatalf("Failed to start drag: %v", err)
	}
	if result := session.DragDrop(dropPayload([]int{0})); result.Cancelled {
		t.Fatalf("Expected the drop to land")
	}
	if got := session.coord.Library().Usage()["a"]; got != 1 {
		t.Fatalf("Expected usage count 1 after the drop, got %d", got)
	}

	// The delete affordance removes the wrapper in the browser and the
	// whole content arrives as a replace.
	if err := session.UpdateContent("<p>hello world</p>"); err != nil {
		t.Fatalf("Failed to update content: %v", err)
	}
	if got := session.coord.Library().Usage()["a"]; got != 0 {
		t.Errorf("Expected usage count back at 0 after the wrapper vanished, got %d", got)
	}
}

func TestDragCancelLeavesDocumentAlone(t *testing.T) {
	_, session, _ := openSession(t, "<p>hello</p>")
	before := session.Serialized()

	if err := session.DragStartPicker("a"); err != nil {
		t.Fatalf("Failed to start drag: %v", err)
	}
	session.DragHover(dropPayload([]int{0}))
	session.DragCancel()

	if got := session.Serialized(); got != before {
		t.Errorf("Expected cancel to leave the document untouched, got %s", got)
	}
	if strings.Contains(session.EditorHTML(), "drop-target") {
		t.Errorf("Expected no indication to survive the cancel")
	}
}

func TestHitNodeMismatchMissesCleanly(t *testing.T) {
	_, session, _ := openSession(t, "<p>hello</p>")

	geom := session.geometry(dropPayload([]int{5, 2}))
	if node := geom.HitNode(dragdrop.Point{X: 100, Y: 10}); node != nil {
		t.Errorf("Expected a stale hit path to resolve to nothing")
	}
}

func TestSetReferenceValidatesImage(t *testing.T) {
	registry, session, _ := openSession(t, "<p>hello</p>")
	store := registry.refs.(*stubRefStore)

	if err := session.SetReference("nope"); err == nil {
		t.Errorf("Expected an unknown image to be rejected")
	}
	if _, ok := store.reference(session.EntryID); ok {
		t.Errorf("Expected no store write for a rejected image")
	}

	if err := session.SetReference("a"); err != nil {
		t.Fatalf("Failed to set reference: %v", err)
	}
	if session.slot.Current() != "a" {
		t.Errorf("Expected the slot to hold image a")
	}
	if got, _ := store.reference(session.EntryID); got != "a" {
		t.Errorf("Expected the reference persisted, got %q", got)
	}

	if err := session.SetReference(""); err != nil {
		t.Fatalf("Failed to clear reference: %v", err)
	}
	if session.slot.Current() != "" {
		t.Errorf("Expected the slot to be empty after clearing")
	}
	if got, _ := store.reference(session.EntryID); got != "" {
		t.Errorf("Expected the cleared slot persisted, got %q", got)
	}
}
