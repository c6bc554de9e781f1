package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqltest "github.com/stockwatch/stockwatch/internal/testing"
)

type fixture struct {
	users    *UserRepository
	sessions *SessionStore
	handler  *Handler
	mw       *Middleware
	userID   int64
	cleanup  func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, cleanup := sqltest.NewTestDB(t, "stockwatch")

	users := NewUserRepository(db.Conn())
	sessions := NewSessionStore(db.Conn(), time.Hour)

	firmID, err := users.CreateFirm("Acme Asset Management")
	require.NoError(t, err)
	userID, err := users.CreateUser(firmID, "jo@example.com", "Jo Bloggs", "hunter22")
	require.NoError(t, err)

	return &fixture{
		users:    users,
		sessions: sessions,
		handler:  NewHandler(users, sessions, time.Hour, false, zerolog.Nop()),
		mw:       NewMiddleware(sessions, users),
		userID:   userID,
		cleanup:  cleanup,
	}
}

func (f *fixture) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.HandleLogin(rec, req)
	return rec
}

func TestLoginSuccessSetsCookie(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	rec := f.login(t, "jo@example.com", "hunter22")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	rec := f.login(t, "jo@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	rec := f.login(t, "nobody@example.com", "hunter22")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUserRejectsMissingCookie(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/purchases", nil)
	rec := httptest.NewRecorder()
	f.mw.RequireUser(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUserPutsUserInContext(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	token, err := f.sessions.Create(f.userID)
	require.NoError(t, err)

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		user := CurrentUser(r.Context())
		require.NotNil(t, user)
		assert.Equal(t, "jo@example.com", user.Email)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/purchases", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	f.mw.RequireUser(next).ServeHTTP(rec, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredSessionRejected(t *testing.T) {
	db, cleanup := sqltest.NewTestDB(t, "stockwatch")
	defer cleanup()

	users := NewUserRepository(db.Conn())
	firmID, err := users.CreateFirm("Acme")
	require.NoError(t, err)
	userID, err := users.CreateUser(firmID, "jo@example.com", "Jo", "pw123456")
	require.NoError(t, err)

	// Sessions that expire immediately
	sessions := NewSessionStore(db.Conn(), -time.Minute)
	token, err := sessions.Create(userID)
	require.NoError(t, err)

	_, ok, err := sessions.Lookup(token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteExpiredSweepsOnlyExpired(t *testing.T) {
	db, cleanup := sqltest.NewTestDB(t, "stockwatch")
	defer cleanup()

	users := NewUserRepository(db.Conn())
	firmID, err := users.CreateFirm("Acme")
	require.NoError(t, err)
	userID, err := users.CreateUser(firmID, "jo@example.com", "Jo", "pw123456")
	require.NoError(t, err)

	expired := NewSessionStore(db.Conn(), -time.Minute)
	_, err = expired.Create(userID)
	require.NoError(t, err)

	live := NewSessionStore(db.Conn(), time.Hour)
	liveToken, err := live.Create(userID)
	require.NoError(t, err)

	deleted, err := live.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, ok, err := live.Lookup(liveToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogoutDeletesSession(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	token, err := f.sessions.Create(f.userID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	f.handler.HandleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	_, ok, err := f.sessions.Lookup(token)
	require.NoError(t, err)
	assert.False(t, ok)
}
