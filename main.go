package main

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/daybookhq/daybook/internal/auth"
	"github.com/daybookhq/daybook/internal/autosave"
	"github.com/daybookhq/daybook/internal/cache"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/dragdrop"
	"github.com/daybookhq/daybook/internal/editor"
	"github.com/daybookhq/daybook/internal/logger"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/picker"
	"github.com/daybookhq/daybook/internal/render"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/routes"
	"github.com/daybookhq/daybook/internal/sse"
	"github.com/daybookhq/daybook/internal/theme"
	"github.com/daybookhq/daybook/internal/util"
)

//go:embed static/* templates/*
var content embed.FS

var l zerolog.Logger

var Db db.DB

var clients = sse.NewSSEClients()

var entryRepository repository.EntryRepository
var imageLibrary picker.Library

var sessions *editor.Registry
var editorHandler *editor.Handler

var clerkAuthProvider auth.AuthProvider
var ed25519AuthProvider auth.AuthProvider

// internalSaveToken authorizes the autosave pipeline's self-posted saves.
// Regenerated on every start; it never leaves the process except on the
// loopback save calls.
var internalSaveToken = uuid.New().String()

const internalSaveHeader = "X-Daybook-Save-Token"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading .env file")
	}

	if err := config.LoadConfig("config.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	l = logger.New(config.AppConfig.Logging.Level)
	setPackageLoggers(l)

	Db = db.NewSQLite("daybook.db")
	if err := Db.InitDB(); err != nil {
		l.Fatal().Err(err).Msg("Error initializing database")
	}

	entryRepository = repository.NewDBEntryRepository(Db)

	switch config.AppConfig.Images.Library {
	case "s3":
		imageLibrary = picker.NewS3Library(
			os.Getenv("S3_ACCESS_KEY_ID"),
			os.Getenv("S3_ACCESS_KEY_SECRET"),
			config.AppConfig.Images.S3,
		)
	default:
		imageLibrary = picker.NewSQLiteLibrary(Db)
	}

	clerkAuthProvider = auth.NewClerkAuthProvider(os.Getenv("CLERK_API"))

	var err error
	ed25519AuthProvider, err = auth.NewEd25519AuthProvider(
		os.Getenv("ED25519_PUBKEY"),
		"Authorization",
		model.UserID("admin"),
	)
	if err != nil {
		l.Fatal().Err(err).Msg("Error creating auth provider")
	}

	addr := config.AppConfig.Server.Host + ":" + config.AppConfig.Server.Port
	sessions = editor.NewRegistry(imageLibrary, saveClientFactory(addr), entryRepository, autosave.SystemClock(), config.AppConfig.Autosave)
	editorHandler = editor.NewHandler(sessions, clients)

	// Calculate the hash of static content
	static, _ := fs.Sub(content, config.StaticLocalDir)
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if !d.IsDir() {
			cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash([]byte(path)))
		}
		return nil
	})

	mux := http.NewServeMux()

	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})

	mux.HandleFunc(routes.ThemeOppositeIcon, func(w http.ResponseWriter, r *http.Request) {
		currTheme := r.URL.Query().Get("theme")
		if currTheme == "" {
			http.Error(w, "theme required", http.StatusBadRequest)
			return
		}

		w.Header().Set(config.HCType, config.CTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(theme.GetThemeIcon(currTheme)))
	})

	mux.Handle(config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))

	mux.HandleFunc(routes.RootPath, serveIndex)
	mux.HandleFunc("GET "+config.EntriesUrlPath+"{id}", serveEntry)
	mux.HandleFunc(routes.NewEntry, serveNewEntry)
	mux.HandleFunc(routes.EditEntry, ServeEditEntry)

	mux.HandleFunc(routes.ThemeToggle, serveThemePostToggle)
	mux.HandleFunc(routes.SyntaxThemeSet, serveSyntaxThemePostSet)
	mux.HandleFunc(routes.SyntaxThemeGet, serveSyntaxThemeGetTheme)
	mux.HandleFunc(routes.SSEPath, eventsHandler)

	mux.HandleFunc(routes.EditContent, editorHandler.ServeContent)
	mux.HandleFunc(routes.EditSelect, editorHandler.ServeSelect)
	mux.HandleFunc(routes.EditDragStart, editorHandler.ServeDragStart)
	mux.HandleFunc(routes.EditDragHover, editorHandler.ServeDragHover)
	mux.HandleFunc(routes.EditDragDrop, editorHandler.ServeDragDrop)
	mux.HandleFunc(routes.EditDragCancel, editorHandler.ServeDragCancel)
	mux.HandleFunc(routes.EditBlur, editorHandler.ServeBlur)
	mux.HandleFunc(routes.EditClose, editorHandler.ServeClose)
	mux.HandleFunc(routes.EditReference, editorHandler.ServeReference)

	mux.HandleFunc("POST "+routes.APIEntryReference, apiSetReference)
	mux.HandleFunc(routes.APIEntries, apiSaveEntry)
	mux.HandleFunc(routes.APIImages, apiListImages)

	mux.HandleFunc(routes.WebhookUser, clerkAuthProvider.HandleWebhookUser)

	auth.RegisterEd25519AuthRoutes(mux, ed25519AuthProvider.(*auth.Ed25519AuthProvider), &content)

	go entryRepository.Init()
	entryRepository.SetReloadNotifier(handleReloadEntry)
	go imageLibrary.Init()

	securedMux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == routes.RobotsPath { // Ignore robots.txt
			mux.ServeHTTP(w, r)
		} else {
			secureHeaders(mux.ServeHTTP)(w, r)
		}
	})

	authMux := ed25519AuthProvider.WithHeaderAuthorization()(securedMux)
	authHandlerFunc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authMux.ServeHTTP(w, r)
	})

	l.Info().Str("addr", addr).Msg("Daybook listening")
	l.Fatal().Err(http.ListenAndServe(addr, cacheIt(authHandlerFunc))).Msg("Server stopped")
}

func setPackageLoggers(l zerolog.Logger) {
	auth.SetLogger(l)
	autosave.SetLogger(l)
	config.SetLogger(l)
	db.SetLogger(l)
	dragdrop.SetLogger(l)
	editor.SetLogger(l)
	picker.SetLogger(l)
	render.SetLogger(l)
	repository.SetLogger(l)
}

// saveClientFactory builds the pipeline's transport: saves go through the
// same endpoint browsers use, authorized by the internal token.
func saveClientFactory(addr string) editor.ClientFactory {
	return func(entryID model.EntryID) autosave.Client {
		client := autosave.NewHTTPClient("http://" + addr + "/api/entries/" + url.PathEscape(string(entryID)))
		client.SetAuthHeader(internalSaveHeader, internalSaveToken)
		return client
	}
}

func cacheIt(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		// Add etag header to response if it's a static file
		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != routes.RootPath {
		http.NotFound(w, r)
		return
	}

	entries := entryRepository.GetEntryList()

	tmpl, err := template.ParseFS(content, config.TemplatesLocalDir+"/"+config.TemplateLayout, config.TemplatesLocalDir+"/"+config.TemplateIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		*model.PageData
		EntriesPath string
		Entries     []model.Entry
	}{
		PageData:    model.NewPageData(r),
		EntriesPath: config.EntriesUrlPath,
		Entries:     entries,
	}

	w.Header().Set(config.HETag, util.ContentHash([]byte(data.Theme+data.SyntaxTheme)))

	err = tmpl.ExecuteTemplate(w, config.TemplateLayout, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func serveEntry(w http.ResponseWriter, r *http.Request) {
	entryID := r.PathValue("id")
	if entryID == "" {
		http.NotFound(w, r)
		return
	}

	entry, err := entryRepository.ReadEntry(model.EntryID(entryID))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	htmlContent, err := render.RenderEntryCached(entry.Body, entry.BodyHash, theme.GetSyntaxThemeFromRequest(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	entry.Content = template.HTML(htmlContent)

	data := struct {
		*model.PageData
		Entry *model.Entry
	}{
		PageData: model.NewPageData(r),
		Entry:    entry,
	}

	tmpl, err := template.ParseFS(content, config.TemplatesLocalDir+"/"+config.TemplateLayout, config.TemplatesLocalDir+"/"+config.TemplateEntry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = tmpl.ExecuteTemplate(w, config.TemplateLayout, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func serveNewEntry(w http.ResponseWriter, r *http.Request) {
	usrID, err := ed25519AuthProvider.GetUserIdFromSession(r)
	if err != nil {
		redirectToLogin(w, r)
		return
	}

	entry := entryRepository.NewEntry()
	entry.Body = []byte("<p></p>")
	entry.Owner = usrID
	if err := entryRepository.SaveEntry(entry); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	target := config.EntriesUrlPath + string(entry.ID) + "/edit"
	w.Header().Add(config.HHxRedirect, target)
	http.Redirect(w, r, target, http.StatusFound)
}

func ServeEditEntry(w http.ResponseWriter, r *http.Request) {
	usrID, err := ed25519AuthProvider.GetUserIdFromSession(r)
	if err != nil {
		redirectToLogin(w, r)
		return
	}

	entryID := r.PathValue("id")
	if entryID == "" {
		http.NotFound(w, r)
		return
	}

	entry, err := entryRepository.ReadEntry(model.EntryID(entryID))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Check ownership
	if usrID != entry.Owner {
		w.Header().Add(config.HHxRedirect, r.Header.Get("Referer"))
		return
	}

	session, err := sessions.Open(entry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	session.SetStatusFunc(statusBroadcaster(entry.ID))

	tmpl, err := template.ParseFS(content, config.TemplatesLocalDir+"/"+config.TemplateLayout, config.TemplatesLocalDir+"/"+config.TemplateEditor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		*model.PageData
		Entry     *model.Entry
		SessionID editor.SessionID
		EditorDoc template.HTML
		Images    []model.Image
	}{
		PageData:  model.NewPageData(r),
		Entry:     entry,
		SessionID: session.ID,
		EditorDoc: template.HTML(session.EditorHTML()),
		Images:    imageLibrary.List(),
	}

	showToolbar := true
	data.IsEditorPage = &showToolbar
	data.ShowToolbar = &showToolbar

	err = tmpl.ExecuteTemplate(w, config.TemplateLayout, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// statusBroadcaster fans one session's save-status updates out to the
// entry's SSE listeners. The callback runs under the pipeline lock, so
// the broadcast itself is pushed to a goroutine.
func statusBroadcaster(entryID model.EntryID) func(autosave.StatusUpdate) {
	return func(u autosave.StatusUpdate) {
		msg := "status:" + u.Status.String()
		go clients.Broadcast(entryID, msg)
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := routes.AuthLogin + "?redirect=" + url.QueryEscape(r.URL.String())
	// Verify if it's an Hx-Request and if not, use standard redirect
	if r.Header.Get("Hx-Request") == "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	w.Header().Add(config.HHxRedirect, target)
}

// saveRequest is the body of one save attempt, per the autosave wire
// contract.
type saveRequest struct {
	Text        string `json:"text"`
	Version     int64  `json:"version"`
	NewTitle    string `json:"new_title"`
	NewDate     string `json:"new_date"`
	NewTimezone string `json:"new_timezone"`
}

// apiSaveEntry is the save endpoint: a version-conditioned replace of the
// entry's saved field set. A stale version answers 409 with a rendered
// resolution fragment; transient failures answer JSON errors the pipeline
// classifies by status code.
func apiSaveEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	if !authorizeSave(w, r) {
		return
	}

	entryID := model.EntryID(r.PathValue("id"))

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSaveError(w, http.StatusBadRequest, "invalid save request body")
		return
	}

	// Re-serialize through the document model so nothing outside the
	// persistent whitelist is ever stored, no matter what the client sent.
	doc, err := document.Parse(req.Text)
	if err != nil {
		writeSaveError(w, http.StatusBadRequest, "unparseable entry content")
		return
	}
	body := doc.Serialize()

	entry, err := entryRepository.UpdateEntry(entryID, repository.EntryUpdate{
		Body:     []byte(body),
		Title:    req.NewTitle,
		Date:     req.NewDate,
		Timezone: req.NewTimezone,
	}, req.Version)

	switch {
	case err == nil:
		cache.ClearRenderedEntryCache()
		go clients.Broadcast(entry.ID, "reload")

		w.Header().Set(config.HCType, config.CTypeJSON)
		json.NewEncoder(w).Encode(map[string]any{
			"status":            "success",
			"version":           entry.Version,
			"modified_datetime": entry.ModifiedDate.Format(time.RFC3339),
		})

	case errors.Is(err, repository.ErrVersionMismatch):
		serveConflict(w, r, entryID)

	case errors.Is(err, repository.ErrEntryNotFound):
		writeSaveError(w, http.StatusNotFound, "entry not found")

	default:
		l.Error().Err(err).Str("entry_id", string(entryID)).Msg("Error saving entry")
		writeSaveError(w, http.StatusInternalServerError, "error saving entry")
	}
}

// authorizeSave accepts either the internal pipeline token or an
// authenticated owner session.
func authorizeSave(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get(internalSaveHeader) == internalSaveToken {
		return true
	}

	usrID, err := ed25519AuthProvider.GetUserIdFromSession(r)
	if err != nil {
		writeSaveError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}

	entry, err := entryRepository.ReadEntry(model.EntryID(r.PathValue("id")))
	if err == nil && entry.Owner != "" && entry.Owner != usrID {
		writeSaveError(w, http.StatusForbidden, "not the entry owner")
		return false
	}
	return true
}

// serveConflict renders the resolution fragment: the server's current
// content and version, for the client to show beside the local edits.
func serveConflict(w http.ResponseWriter, r *http.Request, entryID model.EntryID) {
	entry, err := entryRepository.ReadEntry(entryID)
	if err != nil {
		writeSaveError(w, http.StatusNotFound, "entry not found")
		return
	}

	rendered, err := render.RenderEntryCached(entry.Body, entry.BodyHash, theme.GetSyntaxThemeFromRequest(r))
	if err != nil {
		rendered = entry.Body
	}
	entry.Content = template.HTML(rendered)

	tmpl, err := template.ParseFS(content, config.TemplatesLocalDir+"/"+config.TemplateConflict)
	if err != nil {
		writeSaveError(w, http.StatusInternalServerError, "error rendering conflict")
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusConflict)
	if err := tmpl.Execute(w, entry); err != nil {
		l.Error().Err(err).Msg("Error rendering conflict fragment")
	}
}

func writeSaveError(w http.ResponseWriter, code int, message string) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}

// apiSetReference sets or clears an entry's reference image.
func apiSetReference(w http.ResponseWriter, r *http.Request) {
	usrID, err := ed25519AuthProvider.EnforceUserAndGetId(w, r)
	if err != nil {
		return
	}

	entryID := model.EntryID(r.PathValue("id"))
	entry, err := entryRepository.ReadEntry(entryID)
	if err != nil {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}
	if entry.Owner != "" && entry.Owner != usrID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	imageID := model.ImageID(r.FormValue("image"))
	if imageID != "" {
		if _, ok := imageLibrary.Get(imageID); !ok {
			http.Error(w, "Image not found", http.StatusNotFound)
			return
		}
	}

	if err := entryRepository.SetReference(entryID, imageID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiListImages serves the picker gallery with per-image usage counts.
func apiListImages(w http.ResponseWriter, r *http.Request) {
	type galleryImage struct {
		ID        model.ImageID `json:"id"`
		SourceURL string        `json:"source_url"`
		AltText   string        `json:"alt_text"`
		Caption   string        `json:"caption"`
		UseCount  int           `json:"use_count"`
	}

	usage := imageLibrary.Usage()
	images := imageLibrary.List()
	gallery := make([]galleryImage, 0, len(images))
	for _, img := range images {
		gallery = append(gallery, galleryImage{
			ID:        img.ID,
			SourceURL: img.SourceURL,
			AltText:   img.AltText,
			Caption:   img.Caption,
			UseCount:  usage[img.ID],
		})
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	json.NewEncoder(w).Encode(gallery)
}

func serveThemePostToggle(w http.ResponseWriter, r *http.Request) {
	currentTheme := theme.GetThemeFromRequest(r)

	newTheme := config.DefaultTheme
	if currentTheme == config.DarkTheme {
		newTheme = config.LightTheme
	}

	http.SetCookie(w, &http.Cookie{
		Name:  config.CookieTheme,
		Value: newTheme,
		Path:  "/",
	})

	syntaxTheme := theme.GetDefaultSyntaxTheme(newTheme)
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil {
		syntaxTheme = cookie.Value
	}

	w.Header().Set("Hx-Trigger", fmt.Sprintf(`{"themeChanged":{"value":"%s","syntaxTheme":"%s"}}`, newTheme, syntaxTheme))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(theme.GetThemeIcon(newTheme)))
}

func serveSyntaxThemePostSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	currTheme := r.FormValue("syntax-theme-select")
	if currTheme == "" {
		http.Error(w, "theme required", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    currTheme,
		Path:     "/",
		HttpOnly: true,
	})

	themeStyle := []byte(theme.GenerateSyntaxCSS(currTheme))
	w.WriteHeader(http.StatusOK)
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	w.Write(themeStyle)
}

func serveSyntaxThemeGetTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	currTheme := r.PathValue("theme")

	themeStyle := []byte(theme.GenerateSyntaxCSS(currTheme))
	w.WriteHeader(http.StatusOK)
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	w.Write(themeStyle)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	entryID := r.URL.Query().Get("entry")
	if entryID == "" {
		http.Error(w, "Entry parameter required", http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &sse.Client{
		Msg:     make(chan string),
		EntryID: model.EntryID(entryID),
	}

	clients.Add(client)

	l.Info().Msg("New SSE client connected")

	defer func() {
		clients.Delete(client)
		l.Info().Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}

func handleReloadEntry(entryID model.EntryID) {
	go clients.Broadcast(entryID, "reload")
}
