package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/MrEthical07/sessionauth/account"
)

const (
	defaultMaxRetries = 8
	uniqueViolation   = "23505"
)

// Options tunes the store.
type Options struct {
	MaxUpdateRetries int
	// SkipMigrate leaves schema management to the operator.
	SkipMigrate bool
}

// Store implements the credential store and audit sink over PostgreSQL.
type Store struct {
	db         *sql.DB
	maxRetries int
}

// New wraps db and, unless disabled, creates the tables it needs.
func New(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("pgstore: database is required")
	}
	if opts.MaxUpdateRetries <= 0 {
		opts.MaxUpdateRetries = defaultMaxRetries
	}
	s := &Store{db: db, maxRetries: opts.MaxUpdateRetries}
	if !opts.SkipMigrate {
		if err := s.ensureSchema(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const users = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	document JSONB NOT NULL,
	has_sessions BOOLEAN NOT NULL DEFAULT FALSE,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	const auditLogs = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	const auditIndex = `CREATE INDEX IF NOT EXISTS audit_logs_user_created_idx ON audit_logs (user_id, created_at DESC)`

	for _, q := range []string{users, auditLogs, auditIndex} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("pgstore: ensure schema: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Create inserts u. A unique violation on email maps to account.ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, u *account.User) error {
	if u == nil || u.ID == "" || u.Email == "" {
		return fmt.Errorf("pgstore: user requires id and email")
	}
	doc := u.Clone()
	doc.Version = 1

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("pgstore: encode user: %w", err)
	}

	const q = `
INSERT INTO users (id, email, document, has_sessions, version, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, q, doc.ID, doc.Email, payload, doc.HasSessions(), doc.Version, doc.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return account.ErrDuplicateEmail
		}
		return unavailable("insert user", err)
	}
	u.Version = doc.Version
	return nil
}

// FindByID loads a user row.
func (s *Store) FindByID(ctx context.Context, id string) (*account.User, error) {
	const q = `SELECT document, version FROM users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

// FindByEmail loads a user row by normalized email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	const q = `SELECT document, version FROM users WHERE email = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, account.NormalizeEmail(email)))
}

// Update applies mutate to a fresh copy and writes it back only if the
// version column is unchanged. mutate may run more than once.
func (s *Store) Update(ctx context.Context, id string, mutate func(*account.User) error) (*account.User, error) {
	const q = `
UPDATE users
SET email = $2, document = $3, has_sessions = $4, version = $5
WHERE id = $1 AND version = $6`

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		current, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			if errors.Is(err, account.ErrNoChange) {
				return current, nil
			}
			return nil, err
		}
		next.ID = current.ID
		next.Email = account.NormalizeEmail(next.Email)
		next.Version = current.Version + 1

		payload, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("pgstore: encode user: %w", err)
		}

		res, err := s.db.ExecContext(ctx, q, id, next.Email, payload, next.HasSessions(), next.Version, current.Version)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, account.ErrDuplicateEmail
			}
			return nil, unavailable("update user", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, unavailable("update user", err)
		}
		if n == 1 {
			return next, nil
		}
	}
	return nil, account.ErrConflict
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]*account.User, error) {
	const q = `SELECT document, version FROM users ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	users := []*account.User{}
	for rows.Next() {
		u, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// UserIDsWithSessions returns ids of users whose ledger is non-empty.
func (s *Store) UserIDsWithSessions(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM users WHERE has_sessions`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, unavailable("list session owners", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan session owner", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list session owners", err)
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row scanner) (*account.User, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable("query user", err)
	}
	var u account.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("pgstore: decode user: %w", err)
	}
	u.Version = version
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", account.ErrStoreUnavailable, op, err)
}
