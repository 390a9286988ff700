package imagedims

import (
	"sync"

	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"golang.org/x/sync/singleflight"
)

type memoEntry struct {
	dims geometry.Dims
	err  error
}

// Memo caches the outcome of a Func per path, failures included.
// It is meant to live for a single resolution call. Concurrent lookups of the
// same path share one underlying call.
type Memo struct {
	fn    Func
	mu    sync.RWMutex
	cache map[string]memoEntry
	group singleflight.Group
}

// NewMemo wraps fn. A nil fn makes every lookup fail.
func NewMemo(fn Func) *Memo {
	return &Memo{fn: fn, cache: make(map[string]memoEntry)}
}

// Lookup returns the dimensions for path, or false when they are unavailable.
func (m *Memo) Lookup(path string) (geometry.Dims, bool) {
	d, err := m.LookupErr(path)
	return d, err == nil
}

// LookupErr is Lookup reporting the underlying failure.
func (m *Memo) LookupErr(path string) (geometry.Dims, error) {
	m.mu.RLock()
	e, ok := m.cache[path]
	m.mu.RUnlock()
	if ok {
		return e.dims, e.err
	}

	v, _, _ := m.group.Do(path, func() (any, error) {
		m.mu.RLock()
		cached, hit := m.cache[path]
		m.mu.RUnlock()
		if hit {
			return cached, nil
		}

		var entry memoEntry
		if m.fn == nil {
			entry.err = &DecodeError{Path: path, Operation: "lookup", Err: ErrNoLookup}
		} else {
			entry.dims, entry.err = m.fn(path)
			if entry.err == nil && !entry.dims.Valid() {
				entry.err = &DecodeError{Path: path, Operation: "lookup", Err: ErrNonPositive}
			}
		}
		m.mu.Lock()
		m.cache[path] = entry
		m.mu.Unlock()
		return entry, nil
	})
	entry := v.(memoEntry)
	return entry.dims, entry.err
}

// Len returns the number of cached paths.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
