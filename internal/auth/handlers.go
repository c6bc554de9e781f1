package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles authentication HTTP requests.
type Handler struct {
	users    *UserRepository
	sessions *SessionStore
	ttl      time.Duration
	secure   bool
	log      zerolog.Logger
}

// NewHandler creates a new auth handler. secure controls the cookie Secure
// flag and should be false only in dev mode.
func NewHandler(users *UserRepository, sessions *SessionStore, ttl time.Duration, secure bool, log zerolog.Logger) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		secure:   secure,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes registers the unauthenticated auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
}

// RegisterProtectedRoutes registers routes that require a session.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.HandleLogout)
	r.Get("/me", h.HandleMe)
}

// LoginRequest represents a login form submission.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to look up user")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	// Same response for unknown email and wrong password
	if user == nil || !CheckPassword(user, req.Password) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.sessions.Create(user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create session")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.ttl),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Info().Str("email", user.Email).Msg("User logged in")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// HandleLogout handles POST /api/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			h.log.Warn().Err(err).Msg("Failed to delete session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"logged_out": true}})
}

// HandleMe handles GET /api/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"id":      user.ID,
			"firm_id": user.FirmID,
			"email":   user.Email,
			"name":    user.Name,
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
