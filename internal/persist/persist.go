// Package persist defines the key/value store used to restore search state
// across sessions, plus an in-memory implementation.
package persist

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when a key is missing or has expired.
var ErrNotFound = errors.New("key not found")

// Adapter is a durable string key/value store with per-key expiry.
// A ttl <= 0 means the value does not expire.
type Adapter interface {
	Get(key string) (string, error)
	Set(key, value string, ttl time.Duration) error
}

// Purger is implemented by backends that keep expired records until swept.
type Purger interface {
	// PurgeExpired deletes expired records and returns how many were removed.
	PurgeExpired() (int, error)
}

// record is a stored value with its optional expiry.
type record struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// expiryFor returns the absolute expiry for a ttl, or the zero time.
func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// Memory is an in-process Adapter. It is the fallback when no durable
// backend can be opened, and the store used in tests.
type Memory struct {
	mu      sync.Mutex
	records map[string]record
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]record), now: time.Now}
}

// Get implements Adapter.
func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok || r.expired(m.now()) {
		return "", ErrNotFound
	}
	return r.Value, nil
}

// Set implements Adapter.
func (m *Memory) Set(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = record{Value: value, ExpiresAt: expiryFor(m.now(), ttl)}
	return nil
}

// PurgeExpired implements Purger.
func (m *Memory) PurgeExpired() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, r := range m.records {
		if r.expired(now) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
