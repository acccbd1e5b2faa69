package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/daybookhq/daybook/internal/auth"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/picker"
	"github.com/daybookhq/daybook/internal/repository"
)

func TestMain(m *testing.M) {
	if err := config.LoadConfig("testdata/no-such-config.yaml"); err != nil {
		panic(err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		panic(err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	ed25519AuthProvider, err = auth.NewEd25519AuthProvider(string(pubPEM), "Authorization", model.UserID("admin"))
	if err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func seedRepository(t *testing.T, body string) *model.Entry {
	t.Helper()

	repo := repository.NewMemoryEntryRepository()
	entry := repo.NewEntry()
	entry.Title = "Morning pages"
	entry.Body = []byte(body)
	entry.Owner = "admin"
	if err := repo.SaveEntry(entry); err != nil {
		t.Fatalf("Failed to seed entry: %v", err)
	}

	entryRepository = repo
	imageLibrary = picker.NewMemoryLibrary()
	return entry
}

func saveRequestBody(t *testing.T, req saveRequest) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to encode save request: %v", err)
	}
	return bytes.NewReader(raw)
}

func TestApiSaveEntry(t *testing.T) {
	entry := seedRepository(t, "<p>first draft</p>")

	body := saveRequestBody(t, saveRequest{
		Text:        "<p>second draft</p>",
		Version:     entry.Version,
		NewTitle:    "Evening pages",
		NewDate:     entry.Date,
		NewTimezone: "UTC",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/entries/"+string(entry.ID), body)
	r.SetPathValue("id", string(entry.ID))
	r.Header.Set(internalSaveHeader, internalSaveToken)
	w := httptest.NewRecorder()

	apiSaveEntry(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode save response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Expected success status, got %q", resp.Status)
	}
	if resp.Version != entry.Version+1 {
		t.Errorf("Expected version %d, got %d", entry.Version+1, resp.Version)
	}

	stored, err := entryRepository.ReadEntry(entry.ID)
	if err != nil {
		t.Fatalf("Failed to read stored entry: %v", err)
	}
	if !strings.Contains(string(stored.Body), "second draft") {
		t.Errorf("Expected updated body to be stored, got %s", stored.Body)
	}
	if stored.Title != "Evening pages" {
		t.Errorf("Expected updated title, got %q", stored.Title)
	}
}

func TestApiSaveEntryStaleVersion(t *testing.T) {
	entry := seedRepository(t, "<p>server copy</p>")

	body := saveRequestBody(t, saveRequest{
		Text:    "<p>stale copy</p>",
		Version: entry.Version - 1,
	})
	r := httptest.NewRequest(http.MethodPost, "/api/entries/"+string(entry.ID), body)
	r.SetPathValue("id", string(entry.ID))
	r.Header.Set(internalSaveHeader, internalSaveToken)
	w := httptest.NewRecorder()

	apiSaveEntry(w, r)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "server copy") {
		t.Errorf("Expected the conflict fragment to carry the server content, got %s", w.Body.String())
	}

	stored, err := entryRepository.ReadEntry(entry.ID)
	if err != nil {
		t.Fatalf("Failed to read stored entry: %v", err)
	}
	if !strings.Contains(string(stored.Body), "server copy") {
		t.Errorf("Expected the stale save to leave the entry untouched, got %s", stored.Body)
	}
}

func TestApiSaveEntryNotFound(t *testing.T) {
	seedRepository(t, "<p>whatever</p>")

	body := saveRequestBody(t, saveRequest{Text: "<p>x</p>", Version: 1})
	r := httptest.NewRequest(http.MethodPost, "/api/entries/no-such-entry", body)
	r.SetPathValue("id", "no-such-entry")
	r.Header.Set(internalSaveHeader, internalSaveToken)
	w := httptest.NewRecorder()

	apiSaveEntry(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestApiSaveEntryUnauthorized(t *testing.T) {
	entry := seedRepository(t, "<p>private</p>")

	body := saveRequestBody(t, saveRequest{Text: "<p>x</p>", Version: entry.Version})
	r := httptest.NewRequest(http.MethodPost, "/api/entries/"+string(entry.ID), body)
	r.SetPathValue("id", string(entry.ID))
	w := httptest.NewRecorder()

	apiSaveEntry(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without credentials, got %d", w.Code)
	}
}

func TestApiSaveEntrySanitizesDecorations(t *testing.T) {
	entry := seedRepository(t, "<p>clean</p>")

	// Decorations and derived grouping must never reach storage, no matter
	// what the client sends.
	dirty := `<div class="image-group">` +
		`<span class="entry-image layout-full-width" data-image-id="a"><img src="/a.jpg" alt=""/>` +
		`<button class="image-delete">x</button></span></div>`
	body := saveRequestBody(t, saveRequest{Text: dirty, Version: entry.Version})
	r := httptest.NewRequest(http.MethodPost, "/api/entries/"+string(entry.ID), body)
	r.SetPathValue("id", string(entry.ID))
	r.Header.Set(internalSaveHeader, internalSaveToken)
	w := httptest.NewRecorder()

	apiSaveEntry(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	stored, err := entryRepository.ReadEntry(entry.ID)
	if err != nil {
		t.Fatalf("Failed to read stored entry: %v", err)
	}
	got := string(stored.Body)
	if strings.Contains(got, "image-group") {
		t.Errorf("Expected derived grouping to be dissolved before storage, got %s", got)
	}
	if strings.Contains(got, "image-delete") {
		t.Errorf("Expected the delete affordance to be scrubbed before storage, got %s", got)
	}
	if !strings.Contains(got, `data-image-id="a"`) {
		t.Errorf("Expected the persistent wrapper to survive storage, got %s", got)
	}
}

func TestServeIndex(t *testing.T) {
	seedRepository(t, "<p>listed</p>")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	serveIndex(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Morning pages") {
		t.Errorf("Expected the entry title on the index page, got %s", w.Body.String())
	}
}

func TestServeEntry(t *testing.T) {
	entry := seedRepository(t, "<p>read view</p>")

	r := httptest.NewRequest(http.MethodGet, "/entries/"+string(entry.ID), nil)
	r.SetPathValue("id", string(entry.ID))
	w := httptest.NewRecorder()

	serveEntry(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "read view") {
		t.Errorf("Expected the entry body in the read view, got %s", w.Body.String())
	}
}

func TestServeEntryNotFound(t *testing.T) {
	seedRepository(t, "<p>x</p>")

	r := httptest.NewRequest(http.MethodGet, "/entries/missing", nil)
	r.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	serveEntry(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
