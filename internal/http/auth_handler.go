package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"uniqiita/internal/auth"
	"uniqiita/internal/config"
	"uniqiita/internal/users"
)

// AuthHandler exchanges identity-provider tokens for session cookies.
type AuthHandler struct {
	authn  *auth.Authenticator
	cookie config.SessionConfig
	logger *slog.Logger
}

// NewAuthHandler returns a handler that issues cookies per the session config.
func NewAuthHandler(authn *auth.Authenticator, cookie config.SessionConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authn: authn, cookie: cookie, logger: logger}
}

type loginRequest struct {
	IDToken string `json:"idToken"`
}

type userResponse struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Avatar *string    `json:"avatar"`
	Role   users.Role `json:"role"`
}

func newUserResponse(u *users.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.AvatarURL, Role: u.Role}
}

// Login verifies the posted ID token and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Availability is reported before the body is looked at.
	if !h.authn.Ready(r.Context()) {
		writeError(w, http.StatusInternalServerError, "Firebase Admin SDK is not available")
		return
	}

	var payload loginRequest
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	result, err := h.authn.Login(r.Context(), payload.IDToken)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(result.Session, h.cookie.MaxAge))
	writeJSON(w, http.StatusOK, newUserResponse(result.User))
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrServiceUnavailable):
		writeError(w, http.StatusInternalServerError, "Firebase Admin SDK is not available")
	case errors.Is(err, auth.ErrTokenMissing):
		writeError(w, http.StatusBadRequest, "idToken is required")
	case errors.Is(err, auth.ErrTokenMalformed):
		writeError(w, http.StatusBadRequest, "Malformed ID token")
	case errors.Is(err, auth.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid ID token")
	case errors.Is(err, auth.ErrClaimsIncomplete):
		writeError(w, http.StatusBadRequest, "Email not provided by identity provider")
	default:
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
	}
}

// Logout clears the session cookie. There is no server-side state to drop.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearCookie := h.sessionCookie("", 0)
	clearCookie.MaxAge = -1
	clearCookie.Expires = time.Unix(0, 0)

	http.SetCookie(w, clearCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the current session user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: sameSiteMode(h.cookie.SameSite),
		Secure:   h.cookie.Secure,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	return cookie
}

func sameSiteMode(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
