package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"savings-admin/console/internal/security"
)

func TestFileStorage_SetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileStorage(path, nil)

	if _, ok, err := s.Get("accessToken"); err != nil || ok {
		t.Fatalf("Get on missing file = ok %v err %v, want miss without error", ok, err)
	}
	if err := s.Set("accessToken", "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("accessToken")
	if err != nil || !ok || v != "tok" {
		t.Errorf("Get = %q, %v, %v; want tok", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	if err := s.Delete("accessToken"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("accessToken"); err != nil {
		t.Fatalf("Delete missing key: %v", err)
	}
	if _, ok, _ := s.Get("accessToken"); ok {
		t.Error("Get should miss after Delete")
	}
}

func TestFileStorage_SharedAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writer := NewFileStorage(path, nil)
	reader := NewFileStorage(path, nil)

	_ = writer.Set("accessToken", "from-cli")

	v, ok, err := reader.Get("accessToken")
	if err != nil || !ok || v != "from-cli" {
		t.Errorf("reader Get = %q, %v, %v; want from-cli", v, ok, err)
	}
}

func TestFileStorage_Encrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	sealer, err := security.NewSealer("s3cret")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	s := NewFileStorage(path, sealer)

	if err := s.Set("accessToken", "very-secret-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if bytes.Contains(raw, []byte("very-secret-token")) {
		t.Error("session file should not contain the token in plaintext")
	}
	v, ok, err := s.Get("accessToken")
	if err != nil || !ok || v != "very-secret-token" {
		t.Errorf("Get = %q, %v, %v; want token", v, ok, err)
	}

	other, _ := security.NewSealer("other")
	_, _, err = NewFileStorage(path, other).Get("accessToken")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Get with wrong secret err = %v, want ErrStorageUnavailable", err)
	}
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := NewFileStorage(path, nil)

	if _, _, err := s.Get("accessToken"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Get err = %v, want ErrStorageUnavailable", err)
	}

	store := NewStore(s, nil)
	store.Hydrate()
	if _, ok := store.Token(); ok {
		t.Error("Store should report no session over a corrupt file")
	}
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	_ = s.Set("k", "v")
	if v, ok, _ := s.Get("k"); !ok || v != "v" {
		t.Errorf("Get = %q, %v; want v", v, ok)
	}
	_ = s.Delete("k")
	_ = s.Delete("k")
	if _, ok, _ := s.Get("k"); ok {
		t.Error("Get should miss after Delete")
	}
}

func TestFileStorage_Ping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStorage(path, nil)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping on missing file = %v, want nil", err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Ping on corrupt file = %v, want ErrStorageUnavailable", err)
	}
}
