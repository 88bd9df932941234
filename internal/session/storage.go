package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"savings-admin/console/internal/security"
)

// ErrStorageUnavailable is returned by a Storage that cannot be reached (no local store in this
// context, unreadable file, wrong secret). Store treats it as "no session" on reads.
var ErrStorageUnavailable = errors.New("session: local storage unavailable")

// Storage is the long-lived key/value store that holds the token and admin profile.
type Storage interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any existing value.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// MemoryStorage is an in-process Storage. Used by tests and throwaway sessions.
type MemoryStorage struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// FileStorage keeps all keys in one JSON file (mode 0600), rewritten atomically on every change.
// The file is re-read on every Get so that changes made by another process are seen.
// With a Sealer the file content is encrypted.
type FileStorage struct {
	mu     sync.Mutex
	path   string
	sealer *security.Sealer
}

// NewFileStorage returns a FileStorage at path. sealer may be nil for a plaintext file.
func NewFileStorage(path string, sealer *security.Sealer) *FileStorage {
	return &FileStorage{path: path, sealer: sealer}
}

// Path returns the backing file path.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

// Ping reports whether the session file can be read and opened with the configured secret.
func (s *FileStorage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.load()
	return err
}

func (s *FileStorage) load() (map[string]string, error) {
	m := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		return m, nil
	}
	if s.sealer != nil {
		raw, err = s.sealer.Open(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: corrupt session file: %v", ErrStorageUnavailable, err)
	}
	return m, nil
}

func (s *FileStorage) save(m map[string]string) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if s.sealer != nil {
		raw, err = s.sealer.Seal(raw)
		if err != nil {
			return err
		}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
