package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempDB(t *testing.T, name string, profile DatabaseProfile) (*DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_db_*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := New(Config{Path: tmpPath, Profile: profile, Name: name})
	require.NoError(t, err)

	return db, func() {
		_ = db.Close()
		_ = os.Remove(tmpPath)
	}
}

func TestBuildConnectionStringProfiles(t *testing.T) {
	ledger := buildConnectionString("/tmp/a.db", ProfileLedger)
	assert.Contains(t, ledger, "journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")

	cache := buildConnectionString("/tmp/b.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")

	standard := buildConnectionString("/tmp/c.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")
}

func TestLedgerProfileMigratesAndChecks(t *testing.T) {
	db, cleanup := newTempDB(t, "stockwatch", ProfileLedger)
	defer cleanup()

	require.NoError(t, db.Migrate())

	_, err := db.Exec("INSERT INTO firms (name) VALUES ('Acme')")
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, db.QuickCheck(ctx))
	assert.NoError(t, db.HealthCheck(ctx))
	assert.NoError(t, db.WALCheckpoint("TRUNCATE"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, cleanup := newTempDB(t, "stockwatch", ProfileLedger)
	defer cleanup()
	require.NoError(t, db.Migrate())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO firms (name) VALUES ('Doomed')"); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM firms").Scan(&count))
	assert.Zero(t, count)
}
