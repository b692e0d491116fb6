package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/example/rezzydesk/internal/internaltypes"
)

const fileValueName = "rezzydesk_session"

// FileStore is the CLI's local key-value storage: one file holding the session
// signed and encrypted with the same keys the web UI uses for its cookie.
type FileStore struct {
	path string
	sc   *securecookie.SecureCookie
	mu   sync.Mutex
}

func NewFileStore(path string, hashKey, blockKey []byte) *FileStore {
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int((14 * 24 * time.Hour).Seconds()))
	return &FileStore{path: path, sc: sc}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, internaltypes.ErrNoSession
		}
		return Session{}, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	var s Session
	if err := f.sc.Decode(fileValueName, strings.TrimSpace(string(b)), &s); err != nil {
		// unreadable (rotated keys, expired): treat as logged out
		return Session{}, internaltypes.ErrNoSession
	}
	if !s.Valid() {
		return Session{}, internaltypes.ErrNoSession
	}
	return s, nil
}

func (f *FileStore) Save(_ context.Context, s Session) error {
	if !s.Valid() {
		return errors.New("session: empty token")
	}
	encoded, err := f.sc.Encode(fileValueName, s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return os.WriteFile(f.path, []byte(encoded+"\n"), 0o600)
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}
