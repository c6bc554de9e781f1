// Package testing provides testing utilities and helpers for the stockwatch project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/stockwatch/stockwatch/internal/database"
	_ "modernc.org/sqlite"
)

// profileFor mirrors the profiles production uses for each database so tests
// run against the same PRAGMA configuration.
func profileFor(name string) database.DatabaseProfile {
	switch name {
	case "stockwatch":
		return database.ProfileLedger
	case "client_data":
		return database.ProfileCache
	default:
		return database.ProfileStandard
	}
}

// NewTestDB creates a file-backed SQLite database for testing with automatic
// schema migration. Returns the database instance and a cleanup function that
// closes the connection and removes the file.
//
// Supported schema names:
//   - "stockwatch" - applies stockwatch_schema.sql
//   - "client_data" - applies client_data_schema.sql
//   - Unknown names - creates an empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temporary files give each test its own isolated database
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profileFor(name),
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	err = db.Migrate()
	if err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		if err := os.Remove(tmpPath); err != nil {
			t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath, err)
		}
	}
}
