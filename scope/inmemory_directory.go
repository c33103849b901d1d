package scope

import (
	"context"
	"sync"
	"time"
)

// InMemoryDirectory implements Directory using a plain guarded map. Useful
// for tests and for single-process deployments that do not need the
// directory to survive a restart.
type InMemoryDirectory struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{records: make(map[string]Record)}
}

func (d *InMemoryDirectory) Create(ctx context.Context, id, displayName string) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.records[id]; exists {
		return Record{}, ErrAlreadyExists
	}

	now := time.Now()
	rec := Record{ID: id, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}
	d.records[id] = rec
	return rec, nil
}

func (d *InMemoryDirectory) Get(ctx context.Context, id string) (Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, exists := d.records[id]
	if !exists {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (d *InMemoryDirectory) List(ctx context.Context) ([]Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Record, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec)
	}
	return out, nil
}

func (d *InMemoryDirectory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.records[id]; !exists {
		return ErrNotFound
	}
	delete(d.records, id)
	return nil
}
