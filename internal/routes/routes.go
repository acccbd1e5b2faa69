// Package routes defines HTTP route constants for the application.
package routes

const (
	// Static and assets
	RobotsPath        = "/robots.txt"
	ThemeOppositeIcon = "/theme/opposite-icon"
	ThemeToggle       = "/theme/toggle"
	SyntaxThemeSet    = "/syntax-theme/set"
	SyntaxThemeGet    = "/syntax-theme/{theme}"

	// SSE
	SSEPath = "/sse"

	// Root
	RootPath = "/"

	// Pages
	NewEntry  = "/new/entry"
	EditEntry = "/entries/{id}/edit"

	// Editor event endpoints
	EditContent    = "/edit/{session}/content"
	EditSelect     = "/edit/{session}/select"
	EditDragStart  = "/edit/{session}/drag/start"
	EditDragHover  = "/edit/{session}/drag/hover"
	EditDragDrop   = "/edit/{session}/drag/drop"
	EditDragCancel = "/edit/{session}/drag/cancel"
	EditBlur       = "/edit/{session}/blur"
	EditClose      = "/edit/{session}/close"
	EditReference  = "/edit/{session}/reference"

	// API
	APIEntries        = "/api/entries/{id}"
	APIEntryReference = "/api/entries/{id}/reference"
	APIImages         = "/api/images"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	AuthLogin     = "/auth/login"

	// Webhooks
	WebhookUser = "/webhook/user"
)
