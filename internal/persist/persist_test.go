package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

// adapterContract runs the behavior every Adapter must share.
func adapterContract(t *testing.T, a Adapter, clock *fakeClock) {
	t.Helper()

	if _, err := a.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}

	if err := a.Set("searchParams", "start=24 hours&end=now", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := a.Get("searchParams")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "start=24 hours&end=now" {
		t.Errorf("Get = %q", got)
	}

	// Overwrite: last write wins.
	if err := a.Set("searchParams", "level=ERROR", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := a.Get("searchParams"); got != "level=ERROR" {
		t.Errorf("Get after overwrite = %q", got)
	}

	// Independent keys.
	if err := a.Set("searchPageParams", "sort=up&from=0&size=10", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := a.Get("searchParams"); got != "level=ERROR" {
		t.Errorf("searchParams disturbed: %q", got)
	}

	// Expiry.
	clock.t = clock.t.Add(2 * time.Hour)
	if _, err := a.Get("searchParams"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(expired) err = %v, want ErrNotFound", err)
	}
	if got, err := a.Get("searchPageParams"); err != nil || got != "sort=up&from=0&size=10" {
		t.Errorf("non-expiring key = %q, %v", got, err)
	}

	if p, ok := a.(Purger); ok {
		n, err := p.PurgeExpired()
		if err != nil {
			t.Fatalf("PurgeExpired: %v", err)
		}
		if n != 1 {
			t.Errorf("PurgeExpired removed %d, want 1", n)
		}
	}
}

func TestMemory(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clock.now
	adapterContract(t, m, clock)
}

func TestFile(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := NewFile(filepath.Join(t.TempDir(), "nested", "state.json"))
	f.now = clock.now
	adapterContract(t, f, clock)
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := NewFile(path).Set("k", "v", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := NewFile(path).Get("k")
	if err != nil || got != "v" {
		t.Errorf("Get from new instance = %q, %v", got, err)
	}
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	f := NewFile(path)

	if _, err := f.Get("k"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get on corrupt file err = %v, want decode error", err)
	}

	// A write replaces the corrupt document.
	if err := f.Set("k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := f.Get("k"); err != nil || got != "v" {
		t.Errorf("Get after repair = %q, %v", got, err)
	}
}

func TestFile_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "state.json"))
	for i := 0; i < 3; i++ {
		if err := f.Set("k", "v", 0); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only state.json", len(entries))
	}
}
