// Package memory implements the ephemeral map-backed storage adapter. It is
// the reference implementation for the CrudStore contract: every other
// backend must be observationally equivalent to it for whole-entity CRUD.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noko0413/Railnode/pkg/types"
)

// Adapter hands out one map-backed store per entity. State lives only for
// the process lifetime.
type Adapter struct {
	mu       sync.Mutex
	stores   map[string]*Store
	disposed bool
}

// NewAdapter creates a memory adapter.
func NewAdapter() *Adapter {
	return &Adapter{stores: make(map[string]*Store)}
}

// Init is a no-op; the memory backend has no shared resources to prepare.
func (a *Adapter) Init(ctx context.Context) error { return nil }

// GetCrudStore returns the memoized store for the entity.
func (a *Adapter) GetCrudStore(schema types.EntitySchema) (types.CrudStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, types.ErrAdapterDisposed
	}
	if s, ok := a.stores[schema.Name]; ok {
		return s, nil
	}
	s := &Store{records: make(map[string]types.Record)}
	a.stores[schema.Name] = s
	return s, nil
}

// Dispose drops all stores. Idempotent.
func (a *Adapter) Dispose(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stores = make(map[string]*Store)
	a.disposed = true
	return nil
}

// Store is the map-backed CrudStore for one entity.
type Store struct {
	mu      sync.RWMutex
	records map[string]types.Record
}

// GetAll returns every record ordered by id ascending.
func (s *Store) GetAll(ctx context.Context) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID returns the record for id, or nil if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := rec.Clone()
	return &cp, nil
}

// Create stores a new record under a random 128-bit id.
func (s *Store) Create(ctx context.Context, payload map[string]any) (types.Record, error) {
	now := time.Now().UTC()
	rec := types.Record{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    types.StripReservedFields(payload),
	}

	s.mu.Lock()
	s.records[rec.ID] = rec.Clone()
	s.mu.Unlock()

	return rec, nil
}

// Update shallow-merges payload into the stored record. A field explicitly
// set to nil is removed.
func (s *Store) Update(ctx context.Context, id string, payload map[string]any) (*types.Record, error) {
	patch := types.StripReservedFields(payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	merged := rec.Clone()
	for k, v := range patch {
		if v == nil {
			delete(merged.Fields, k)
			continue
		}
		merged.Fields[k] = v
	}
	merged.UpdatedAt = time.Now().UTC()
	s.records[id] = merged.Clone()
	return &merged, nil
}

// Delete reports whether a record existed and was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}
