package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/wesm/ologbrowse/internal/fileutil"
)

// File is an Adapter backed by a single owner-only JSON document on disk.
// Every Set rewrites the whole document atomically.
type File struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewFile returns a File store at path. The parent directory is created on
// first write.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the document location.
func (f *File) Path() string { return f.path }

// load reads the document. A missing file is an empty store; a corrupt file
// is reported so callers can fall back to defaults.
func (f *File) load() (map[string]record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	records := make(map[string]record)
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return records, nil
}

func (f *File) save(records map[string]record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return fileutil.WriteFileAtomic(f.path, data, 0600)
}

// Get implements Adapter.
func (f *File) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.load()
	if err != nil {
		return "", err
	}
	r, ok := records[key]
	if !ok || r.expired(f.now()) {
		return "", ErrNotFound
	}
	return r.Value, nil
}

// Set implements Adapter. A corrupt document is replaced.
func (f *File) Set(key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.load()
	if err != nil {
		records = make(map[string]record)
	}
	records[key] = record{Value: value, ExpiresAt: expiryFor(f.now(), ttl)}
	return f.save(records)
}

// PurgeExpired implements Purger.
func (f *File) PurgeExpired() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.load()
	if err != nil {
		return 0, err
	}
	now := f.now()
	n := 0
	for k, r := range records {
		if r.expired(now) {
			delete(records, k)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, f.save(records)
}

// Close is a no-op.
func (f *File) Close() error { return nil }
