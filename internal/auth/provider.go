// Package auth provides the pluggable authentication providers: an
// Ed25519 challenge/signature provider for self-hosted journals and a
// Clerk-backed provider for hosted ones.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/daybookhq/daybook/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIdFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetId(w http.ResponseWriter, r *http.Request) (model.UserID, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}
