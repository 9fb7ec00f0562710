package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/ologbrowse/internal/persist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Get("searchParams"); !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}

	if err := s.Set("searchParams", "level=ERROR", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("searchParams", "level=WARN", time.Hour); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := s.Get("searchParams")
	if err != nil || got != "level=WARN" {
		t.Errorf("Get = %q, %v; want level=WARN", got, err)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Set("short", "a", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("forever", "b", 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.Get("short"); !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("Get(expired) err = %v, want ErrNotFound", err)
	}
	if got, err := s.Get("forever"); err != nil || got != "b" {
		t.Errorf("Get(forever) = %q, %v", got, err)
	}

	n, err := s.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeExpired = %d, want 1", n)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "v", 0); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got, err := s2.Get("k"); err != nil || got != "v" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}
