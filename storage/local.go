package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Fixed keys of the client-side local store.
const (
	KeyTheme    = "portfolio-theme"
	KeyContacts = "portfolio_contacts"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Local is a persistent key/value store. Each key lives in its own JSON file
// under baseDir so values survive across sessions.
type Local struct {
	baseDir string
	mu      sync.Mutex
}

// NewLocal creates a key/value store of JSON files under baseDir.
func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

// EnsureDirs creates the store directory.
func (s *Local) EnsureDirs() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

// Get decodes the value for key into v. It reports false when the key is unset.
func (s *Local) Get(key string, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key, v)
}

func (s *Local) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, v)
}

func (s *Local) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(key)
}

func (s *Local) removeLocked(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Update runs fn on the decoded value of key and stores the result, holding
// the store lock for the whole read-modify-write.
func Update[T any](s *Local, key string, fn func(cur T) (T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur T
	if _, err := s.getLocked(key, &cur); err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return s.setLocked(key, next)
}

func (s *Local) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.baseDir, key+".json"), nil
}

func (s *Local) getLocked(key string, v any) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Local) setLocked(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.baseDir, "."+key+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
