package auth

import (
	"context"
	"net/http"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "stockwatch_session"

type contextKey string

const userContextKey contextKey = "current_user"

// Middleware resolves the session cookie to a user and stores it in the
// request context. Requests without a valid session get 401.
type Middleware struct {
	sessions *SessionStore
	users    *UserRepository
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(sessions *SessionStore, users *UserRepository) *Middleware {
	return &Middleware{sessions: sessions, users: users}
}

// RequireUser rejects unauthenticated requests with 401.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		userID, ok, err := m.sessions.Lookup(cookie.Value)
		if err != nil || !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		user, err := m.users.GetByID(userID)
		if err != nil || user == nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUser returns the authenticated user from the request context.
// Returns nil outside of RequireUser-protected routes.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

// WithUser returns a context carrying the given user. Test helper.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
