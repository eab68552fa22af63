package kv

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	values map[string]*memoryEntry
	lists  map[string][][]byte
	closed bool
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the clock used for expiration. Defaults to the real clock.
func WithClock(clock clockwork.Clock) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		clock:  clockwork.NewRealClock(),
		values: make(map[string]*memoryEntry),
		lists:  make(map[string][][]byte),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// liveEntry returns the entry at key, dropping it if it has expired.
// Callers must hold m.mu.
func (m *Memory) liveEntry(key string) (*memoryEntry, bool) {
	entry, ok := m.values[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && !m.clock.Now().Before(entry.expiresAt) {
		delete(m.values, key)
		return nil, false
	}
	return entry, true
}

// Get returns a copy of the value at key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	if _, isList := m.lists[key]; isList {
		return nil, false, ErrWrongType
	}
	entry, ok := m.liveEntry(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a copy of value at key.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	entry := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.clock.Now().Add(ttl)
	}
	delete(m.lists, key)
	m.values[key] = entry
	return nil
}

// Incr increments the decimal integer at key.
func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if _, isList := m.lists[key]; isList {
		return 0, ErrWrongType
	}

	entry, ok := m.liveEntry(key)
	if !ok {
		entry = &memoryEntry{}
		m.values[key] = entry
	}

	var n int64
	if ok {
		parsed, err := parseCounter(entry.value)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	entry.value = strconv.AppendInt(nil, n, 10)
	return n, nil
}

// RPush appends a copy of value to the list at key.
func (m *Memory) RPush(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.liveEntry(key); ok {
		return ErrWrongType
	}
	m.lists[key] = append(m.lists[key], append([]byte(nil), value...))
	return nil
}

// LRange returns copies of the list elements in the requested window.
func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if _, ok := m.liveEntry(key); ok {
		return nil, ErrWrongType
	}

	list := m.lists[key]
	lo, hi, ok := rangeBounds(len(list), start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, hi-lo)
	for _, v := range list[lo:hi] {
		out = append(out, append([]byte(nil), v...))
	}
	return out, nil
}

// FlushDB removes all values and lists.
func (m *Memory) FlushDB(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.values = make(map[string]*memoryEntry)
	m.lists = make(map[string][][]byte)
	return nil
}

// Ping reports ErrClosed after Close, nil otherwise.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed. Idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Ensure Memory implements Store
var _ Store = (*Memory)(nil)
