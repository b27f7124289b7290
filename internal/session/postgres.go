// Package session - postgres.go provides the PostgreSQL-backed session store.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/reaction-reach/internal/types"
)

// PostgresStore persists sessions in a browser_sessions table. It is the
// backend of choice when multiple machines share a pool of contexts.
//
// Expected schema:
//
//	CREATE TABLE browser_sessions (
//	    context_id        TEXT PRIMARY KEY,
//	    trust_level       TEXT NOT NULL,
//	    last_validated_at TIMESTAMPTZ,
//	    created_at        TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Load restores the session for the given context id.
func (s *PostgresStore) Load(ctx context.Context, contextID string) (*types.Session, error) {
	if contextID == "" {
		return nil, &StoreError{Message: "context id is empty"}
	}

	var sess types.Session
	err := s.pool.QueryRow(ctx,
		`SELECT context_id, trust_level, COALESCE(last_validated_at, 'epoch'::timestamptz), created_at
		 FROM browser_sessions WHERE context_id = $1`,
		contextID,
	).Scan(&sess.ContextID, &sess.TrustLevel, &sess.LastValidatedAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{ContextID: contextID, Message: "failed to load session", Cause: err}
	}
	return &sess, nil
}

// Save upserts the session row.
func (s *PostgresStore) Save(ctx context.Context, sess *types.Session) error {
	if sess == nil || sess.ContextID == "" {
		return &StoreError{Message: "session has no context id"}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO browser_sessions (context_id, trust_level, last_validated_at, created_at)
		 VALUES ($1, $2, NULLIF($3, 'epoch'::timestamptz), $4)
		 ON CONFLICT (context_id) DO UPDATE
		 SET trust_level = EXCLUDED.trust_level,
		     last_validated_at = EXCLUDED.last_validated_at`,
		sess.ContextID, sess.TrustLevel, sess.LastValidatedAt, sess.CreatedAt,
	)
	if err != nil {
		return &StoreError{ContextID: sess.ContextID, Message: "failed to save session", Cause: err}
	}
	return nil
}
