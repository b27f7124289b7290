// Package session provides persistence and validation for authenticated
// browsing identities. A session is keyed by an opaque context id and survives
// across runs; the navigator borrows it for a run's duration and writes it
// back through the store after every authentication check.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/reaction-reach/internal/types"
)

// ErrNotFound is returned when no session exists for a context id.
var ErrNotFound = errors.New("session not found")

// Store persists and restores browsing sessions.
type Store interface {
	// Load restores the session for the given context id.
	// Returns ErrNotFound when none exists.
	Load(ctx context.Context, contextID string) (*types.Session, error)
	// Save persists the session, overwriting any previous state.
	Save(ctx context.Context, sess *types.Session) error
}

// StoreError represents a session persistence failure.
type StoreError struct {
	ContextID string
	Message   string
	Cause     error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session store error for %s: %s: %v", e.ContextID, e.Message, e.Cause)
	}
	return fmt.Sprintf("session store error for %s: %s", e.ContextID, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewContext mints a fresh unauthenticated session with a new context id.
func NewContext(now time.Time) *types.Session {
	return &types.Session{
		ContextID:  uuid.NewString(),
		TrustLevel: types.TrustUnauthenticated,
		CreatedAt:  now,
	}
}

// FileStore keeps one JSON file per context id under a root directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("session store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session store directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load restores the session for the given context id.
func (s *FileStore) Load(_ context.Context, contextID string) (*types.Session, error) {
	if contextID == "" {
		return nil, &StoreError{Message: "context id is empty"}
	}

	data, err := os.ReadFile(s.path(contextID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{ContextID: contextID, Message: "failed to read session file", Cause: err}
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, &StoreError{ContextID: contextID, Message: "failed to parse session file", Cause: err}
	}
	return &sess, nil
}

// Save persists the session atomically (write to temp file, then rename).
func (s *FileStore) Save(_ context.Context, sess *types.Session) error {
	if sess == nil || sess.ContextID == "" {
		return &StoreError{Message: "session has no context id"}
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return &StoreError{ContextID: sess.ContextID, Message: "failed to marshal session", Cause: err}
	}

	tmp := s.path(sess.ContextID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return &StoreError{ContextID: sess.ContextID, Message: "failed to write session file", Cause: err}
	}
	if err := os.Rename(tmp, s.path(sess.ContextID)); err != nil {
		return &StoreError{ContextID: sess.ContextID, Message: "failed to replace session file", Cause: err}
	}
	return nil
}

func (s *FileStore) path(contextID string) string {
	return filepath.Join(s.dir, contextID+".json")
}
