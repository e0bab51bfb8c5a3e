package engine

import (
	"sync"

	"github.com/easybet/easybet/internal/domain"
)

// Directory is the registry of all markets. Markets are assigned monotonic
// ids, kept forever, and guarded by a per-market mutex so mutations on one
// market never serialize against another.
type Directory struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]*marketEntry
	order   []int64 // creation order for deterministic enumeration
}

type marketEntry struct {
	mu sync.Mutex
	m  domain.Market
}

// NewDirectory creates an empty directory. Market ids start at 1.
func NewDirectory() *Directory {
	return &Directory{
		nextID:  1,
		entries: make(map[int64]*marketEntry),
	}
}

// Add registers a new market and returns its assigned id.
func (d *Directory) Add(m domain.Market) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	m.ID = d.nextID
	d.nextID++
	d.entries[m.ID] = &marketEntry{m: m}
	d.order = append(d.order, m.ID)
	return m.ID
}

// Get returns a copy of the market record.
func (d *Directory) Get(id int64) (domain.Market, error) {
	e, err := d.entry(id)
	if err != nil {
		return domain.Market{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyMarket(e.m), nil
}

// IDs returns all market ids in creation order.
func (d *Directory) IDs() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, len(d.order))
	copy(ids, d.order)
	return ids
}

// Count returns the number of markets ever created.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// update runs fn with exclusive access to the market record. This is the
// serialization point for every state-mutating operation on the market: fn
// executes as one indivisible unit with respect to all other mutations of
// the same market. If fn returns an error the record keeps any mutation fn
// already applied, so fn must not mutate before its last fallible step.
func (d *Directory) update(id int64, fn func(m *domain.Market) error) error {
	e, err := d.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.m)
}

func (d *Directory) entry(id int64) (*marketEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func copyMarket(m domain.Market) domain.Market {
	out := m
	out.Options = make([]string, len(m.Options))
	copy(out.Options, m.Options)
	return out
}
