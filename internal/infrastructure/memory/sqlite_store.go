// Package memory implements the durable stores behind the context engine:
// per-user preferences, session snapshots, and application usage counters,
// all in a single sqlite database with values sealed by AES-GCM before they
// reach disk.
package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/ports"
)

// ErrSessionNotFound is returned by Load for an unknown session id.
var ErrSessionNotFound = errors.New("memory: session not found")

// Store persists preferences, sessions, and usage counters in sqlite.
type Store struct {
	db   *sql.DB
	box  *secretBox
	path string
	mu   sync.Mutex
}

// Open creates (or opens) the database at path and prepares the schema.
func Open(path string, key []byte) (*Store, error) {
	box, err := newSecretBox(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &Store{db: db, box: box, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		PRIMARY KEY (user_id, key)
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS app_usage (
		user_id TEXT NOT NULL,
		application TEXT NOT NULL,
		launch_count INTEGER NOT NULL,
		first_launched TEXT NOT NULL,
		last_launched TEXT NOT NULL,
		PRIMARY KEY (user_id, application)
	);`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the sqlite database path.
func (s *Store) Path() string {
	return s.path
}

// Get implements ports.PreferenceStore.
func (s *Store) Get(key, userID string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sealed []byte
	err := s.db.QueryRow(
		`SELECT value FROM preferences WHERE user_id = ? AND key = ?`,
		userID, key,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get preference: %w", err)
	}
	plain, err := s.box.open(sealed)
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(plain), true, nil
}

// Set implements ports.PreferenceStore.
func (s *Store) Set(key string, value any, userID string) error {
	plain, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}
	sealed, err := s.box.seal(plain)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO preferences (user_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value`,
		userID, key, sealed,
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// Save implements ports.SessionStore.
func (s *Store) Save(session *domain.Session) error {
	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := s.box.seal(plain)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, user_id, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		session.ID, session.UserID, sealed, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load implements ports.SessionStore.
func (s *Store) Load(sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sealed []byte
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE id = ?`, sessionID).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	plain, err := s.box.open(sealed)
	if err != nil {
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// RecordAppLaunch increments a user's launch counter for an application.
func (s *Store) RecordAppLaunch(userID, application string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := at.Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO app_usage (user_id, application, launch_count, first_launched, last_launched)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT (user_id, application) DO UPDATE SET
			launch_count = launch_count + 1,
			last_launched = excluded.last_launched`,
		userID, application, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("record app launch: %w", err)
	}
	return nil
}

// AllUsage implements ports.UsageStore: usage rows sorted descending by
// launch count.
func (s *Store) AllUsage(userID string) ([]domain.ApplicationUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT application, launch_count, first_launched, last_launched
		 FROM app_usage WHERE user_id = ? ORDER BY launch_count DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var usage []domain.ApplicationUsage
	for rows.Next() {
		var u domain.ApplicationUsage
		var first, last string
		if err := rows.Scan(&u.ApplicationName, &u.LaunchCount, &first, &last); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, first); err == nil {
			u.FirstLaunched = t
		}
		if t, err := time.Parse(time.RFC3339, last); err == nil {
			u.LastLaunched = t
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

var (
	_ ports.PreferenceStore = (*Store)(nil)
	_ ports.SessionStore    = (*Store)(nil)
	_ ports.UsageStore      = (*Store)(nil)
)
