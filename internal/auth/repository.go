// Package auth provides user authentication: credential checks, server-side
// sessions and the request middleware that enforces them.
package auth

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// UserRepository provides access to firms and users.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail returns the user with the given email, or nil if none exists.
func (r *UserRepository) GetByEmail(email string) (*domain.User, error) {
	query := `
		SELECT id, firm_id, email, name, password_hash, created_at
		FROM users WHERE email = ?`

	var user domain.User
	err := r.db.QueryRow(query, email).Scan(
		&user.ID, &user.FirmID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// GetByID returns the user with the given id, or nil if none exists.
func (r *UserRepository) GetByID(id int64) (*domain.User, error) {
	query := `
		SELECT id, firm_id, email, name, password_hash, created_at
		FROM users WHERE id = ?`

	var user domain.User
	err := r.db.QueryRow(query, id).Scan(
		&user.ID, &user.FirmID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// CreateFirm inserts a firm and returns its id. Existing firms with the same
// name are returned as-is.
func (r *UserRepository) CreateFirm(name string) (int64, error) {
	var id int64
	err := r.db.QueryRow("SELECT id FROM firms WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up firm: %w", err)
	}

	result, err := r.db.Exec("INSERT INTO firms (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create firm: %w", err)
	}

	return result.LastInsertId()
}

// CreateUser inserts a user with a bcrypt-hashed password and returns its id.
func (r *UserRepository) CreateUser(firmID int64, email, name, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := r.db.Exec(
		"INSERT INTO users (firm_id, email, name, password_hash) VALUES (?, ?, ?, ?)",
		firmID, email, name, string(hash),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return result.LastInsertId()
}

// CheckPassword verifies a candidate password against the stored hash.
func CheckPassword(user *domain.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
