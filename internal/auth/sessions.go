package auth

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStore manages server-side sessions backed by sqlite.
type SessionStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionStore creates a session store with the given session lifetime.
func NewSessionStore(db *sql.DB, ttl time.Duration) *SessionStore {
	return &SessionStore{db: db, ttl: ttl}
}

// Create issues a new session token for the user.
func (s *SessionStore) Create(userID int64) (string, error) {
	token := uuid.New().String()
	expiresAt := time.Now().Add(s.ttl)

	_, err := s.db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

// Lookup returns the user id for a valid session token. Expired or unknown
// tokens return (0, false).
func (s *SessionStore) Lookup(token string) (int64, bool, error) {
	var userID int64
	var expiresAt time.Time

	err := s.db.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up session: %w", err)
	}

	if time.Now().After(expiresAt) {
		return 0, false, nil
	}

	return userID, true, nil
}

// Delete removes a session token.
func (s *SessionStore) Delete(token string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions. Returns the number deleted.
func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// SessionCleanupJob sweeps expired sessions. It should run daily.
type SessionCleanupJob struct {
	store *SessionStore
	log   zerolog.Logger
}

// NewSessionCleanupJob creates the session sweep job.
func NewSessionCleanupJob(store *SessionStore, log zerolog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		store: store,
		log:   log.With().Str("job", "session_cleanup").Logger(),
	}
}

// Run removes all expired sessions.
func (j *SessionCleanupJob) Run() error {
	deleted, err := j.store.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired sessions")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired sessions")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}
