package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"strava-wrapped/internal/logging"
)

// CredentialKey is the single storage key the credential lives under
const CredentialKey = "strava_credential"

// TokenStore persists exactly one Credential.
//
// Load never fails: a missing, unreadable or malformed record is reported
// as not present. Clear on an empty store is a no-op.
type TokenStore interface {
	Save(ctx context.Context, cred Credential) error
	Load(ctx context.Context) (Credential, bool)
	Clear(ctx context.Context) error
}

// SQLiteTokenStore keeps the credential as JSON in a key-value table
type SQLiteTokenStore struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at path, creating it if necessary.
func OpenSQLite(path string) (*SQLiteTokenStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewSQLiteTokenStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteTokenStore wraps an open database and runs migrations.
func NewSQLiteTokenStore(db *sql.DB) (*SQLiteTokenStore, error) {
	// One record, one writer. A single connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteTokenStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteTokenStore) Close() error {
	return s.db.Close()
}

// Save stores or replaces the credential.
func (s *SQLiteTokenStore) Save(ctx context.Context, cred Credential) error {
	value, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, CredentialKey, string(value))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Load retrieves the stored credential.
func (s *SQLiteTokenStore) Load(ctx context.Context) (Credential, bool) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, CredentialKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, false
	}
	if err != nil {
		logging.Warn("Store", "reading credential: %v", err)
		return Credential{}, false
	}
	return decodeCredential([]byte(value))
}

// Clear removes the stored credential.
func (s *SQLiteTokenStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, CredentialKey); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}

func decodeCredential(data []byte) (Credential, bool) {
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		logging.Warn("Store", "ignoring malformed credential record: %v", err)
		return Credential{}, false
	}
	return cred, true
}
