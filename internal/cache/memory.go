package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/signaledge/internal/core"
)

type entry struct {
	series  core.PriceSeries
	expires time.Time
}

// Memory is an in-process cache with a size cap and optional TTL
type Memory struct {
	entries map[string]entry
	order   []string // Track insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemory creates a cache holding at most maxSize series; ttl <= 0 never expires
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &Memory{
		entries: make(map[string]entry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key Key) (core.PriceSeries, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key.String()
	e, ok := m.entries[k]
	if !ok {
		return core.PriceSeries{}, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.removeLocked(k)
		return core.PriceSeries{}, false, nil
	}
	return copySeries(e.series), true, nil
}

func (m *Memory) Put(ctx context.Context, key Key, series core.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key.String()
	if _, exists := m.entries[k]; exists {
		m.removeLocked(k)
	}

	// Evict oldest if at capacity
	for len(m.entries) >= m.maxSize && len(m.order) > 0 {
		m.removeLocked(m.order[0])
	}

	e := entry{series: copySeries(series)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[k] = e
	m.order = append(m.order, k)
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key.String())
	return nil
}

func (m *Memory) InvalidateSource(ctx context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := source + ":"
	for _, k := range append([]string(nil), m.order...) {
		if strings.HasPrefix(k, prefix) {
			m.removeLocked(k)
		}
	}
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	m.order = m.order[:0]
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) removeLocked(k string) {
	if _, ok := m.entries[k]; !ok {
		return
	}
	delete(m.entries, k)
	for i, o := range m.order {
		if o == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// copySeries keeps cached observations isolated from callers
func copySeries(s core.PriceSeries) core.PriceSeries {
	s.Observations = append([]core.PriceObservation(nil), s.Observations...)
	return s
}
