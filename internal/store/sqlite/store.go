// Package sqlite is the shared store behind the account, session, and block
// repositories. Every server instance points at the same database, and all
// mutations of shared records go through conditional writes (version-checked
// UPDATEs), so concurrent instances cannot under-count failures or race past
// a lockout boundary.
package sqlite

import (
	"database/sql"

	"github.com/gasfornuis/kitchenchat-auth/accounts"
	"github.com/gasfornuis/kitchenchat-auth/sessions"
	"github.com/gasfornuis/kitchenchat-auth/throttle"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "[sqlite.Open] sql.Open")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[sqlite.Open] set pragmas")
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[sqlite.Open] migrate")
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			handle TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			verifier TEXT NOT NULL,
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			last_failed_at INTEGER NOT NULL DEFAULT 0,
			disabled INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_login_at INTEGER NOT NULL DEFAULT 0,
			registered_from TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_digest TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			issued_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			revoked INTEGER NOT NULL DEFAULT 0,
			client_addr TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`,
		`CREATE TABLE IF NOT EXISTS blocks (
			key TEXT PRIMARY KEY,
			attempts TEXT NOT NULL DEFAULT '[]',
			blocked_until INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "migrate step")
		}
	}
	return nil
}

// Accounts returns the accounts repository backed by this store.
func (s *Store) Accounts() accounts.Repo { return &accountRepo{db: s.db} }

// Sessions returns the sessions repository backed by this store.
func (s *Store) Sessions() sessions.Repo { return &sessionRepo{db: s.db} }

// Blocks returns the throttle repository backed by this store.
func (s *Store) Blocks() throttle.Repo { return &blockRepo{db: s.db} }
