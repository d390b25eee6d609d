package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// DB wraps a SQLite database connection with migration support.
type DB struct {
	sql *sql.DB
	log *logging.Logger
}

// Open opens (or creates) a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for tests).
func Open(path string, log *logging.Logger) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	db := &DB{sql: sqlDB, log: log.Sub("store.sqlite")}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	db.log.Info().Str("path", path).Msg("database opened")
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// SQL returns the underlying *sql.DB for direct queries.
func (db *DB) SQL() *sql.DB {
	return db.sql
}

// migrate runs all pending migrations.
func (db *DB) migrate() error {
	if _, err := db.sql.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := db.isMigrationApplied(m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		db.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := db.sql.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (db *DB) isMigrationApplied(version int) (bool, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}

// SQLiteStore implements SessionStore backed by SQLite, making pending
// dialogs resumable across process restarts. Timestamps are stored as
// unix nanoseconds so expiry comparisons happen in SQL.
type SQLiteStore struct {
	db  *DB
	now func() time.Time
}

// NewSQLiteStore creates a session store using the given database.
func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get returns the session for a key. Expired rows are deleted and reported
// as ErrExpired.
func (s *SQLiteStore) Get(key domain.SessionKey) (*domain.ConversationSession, error) {
	var (
		sess                 domain.ConversationSession
		paramsJSON           sql.NullString
		createdAt, expiresAt int64
	)
	err := s.db.sql.QueryRow(
		`SELECT id, conversation_id, user_id, command, params, awaiting, created_at, expires_at
		 FROM command_sessions WHERE key_str = ?`, key.String(),
	).Scan(
		&sess.ID, &sess.Key.ConversationID, &sess.Key.UserID,
		&sess.Command, &paramsJSON, &sess.Awaiting, &createdAt, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	sess.CreatedAt = time.Unix(0, createdAt)
	sess.ExpiresAt = time.Unix(0, expiresAt)

	if sess.Expired(s.now()) {
		_ = s.Delete(key)
		return nil, ErrExpired
	}

	sess.Params = make(map[string]string)
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &sess.Params); err != nil {
			return nil, fmt.Errorf("decoding session params: %w", err)
		}
	}
	return &sess, nil
}

// Put stores or replaces the session for its key.
func (s *SQLiteStore) Put(sess *domain.ConversationSession) error {
	params, err := json.Marshal(sess.Params)
	if err != nil {
		return fmt.Errorf("encoding session params: %w", err)
	}

	_, err = s.db.sql.Exec(
		`INSERT INTO command_sessions (id, key_str, conversation_id, user_id, command, params, awaiting, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key_str) DO UPDATE SET
		   id = excluded.id,
		   command = excluded.command,
		   params = excluded.params,
		   awaiting = excluded.awaiting,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		sess.ID, sess.Key.String(), sess.Key.ConversationID, sess.Key.UserID,
		sess.Command, string(params), sess.Awaiting,
		sess.CreatedAt.UnixNano(), sess.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Delete removes the session for a key, if any.
func (s *SQLiteStore) Delete(key domain.SessionKey) error {
	_, err := s.db.sql.Exec(`DELETE FROM command_sessions WHERE key_str = ?`, key.String())
	return err
}

// Sweep removes all expired sessions and returns how many were removed.
func (s *SQLiteStore) Sweep() (int, error) {
	res, err := s.db.sql.Exec(
		`DELETE FROM command_sessions WHERE expires_at <= ?`, s.now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *SQLiteStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.Sweep(); err != nil {
					s.db.log.Warn().Err(err).Msg("session sweep failed")
				} else if n > 0 {
					s.db.log.Debug().Int("removed", n).Msg("swept expired sessions")
				}
			}
		}
	}()
}
