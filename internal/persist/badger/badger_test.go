package badger

import (
	"errors"
	"testing"
	"time"

	"github.com/wesm/ologbrowse/internal/persist"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get("searchParams"); !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if err := s.Set("searchParams", "logbooks=ops", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("searchPageParams", "sort=down&from=0&size=30", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get("searchParams")
	if err != nil || got != "logbooks=ops" {
		t.Errorf("Get(searchParams) = %q, %v", got, err)
	}
	got, err = s.Get("searchPageParams")
	if err != nil || got != "sort=down&from=0&size=30" {
		t.Errorf("Get(searchPageParams) = %q, %v", got, err)
	}
}

func TestStore_InMemory(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	defer s.Close()

	if err := s.Set("k", "v", 0); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get("k"); err != nil || got != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "v", time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got, err := s2.Get("k"); err != nil || got != "v" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}
