package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrAdapterDisposed is returned by GetCrudStore after Dispose.
var ErrAdapterDisposed = errors.New("adapter is disposed")

// CrudStore is the five-operation storage contract, uniform across all
// backends. Absence is never an error: GetByID and Update return a nil
// record and Delete returns false for ids that do not resolve, including
// ids that are malformed for the backend's native key type.
type CrudStore interface {
	// GetAll returns a full snapshot ordered by id ascending.
	GetAll(ctx context.Context) ([]Record, error)

	// GetByID returns the record for id, or nil if absent.
	GetByID(ctx context.Context, id string) (*Record, error)

	// Create assigns a fresh id, sets both timestamps to the same instant,
	// persists the sanitized payload, and returns the full record.
	Create(ctx context.Context, payload map[string]any) (Record, error)

	// Update shallow-merges the sanitized payload into the existing record:
	// payload fields overwrite, absent fields are preserved, and a field set
	// to nil is removed where the backend supports unset. Returns nil if no
	// record exists for id.
	Update(ctx context.Context, id string, payload map[string]any) (*Record, error)

	// Delete reports whether a record existed and was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// Adapter binds a backend to the CrudStore contract. One adapter exists per
// process; it hands out one memoized store per entity.
type Adapter interface {
	// Init prepares shared backend resources. Adapters with lazy resource
	// acquisition may treat this as a no-op.
	Init(ctx context.Context) error

	// GetCrudStore returns the store for the entity described by schema.
	GetCrudStore(schema EntitySchema) (CrudStore, error)

	// Dispose releases all bindings and connections. Calling it more than
	// once is a no-op.
	Dispose(ctx context.Context) error
}

// StoreError wraps a backend operation failure with the backend kind, the
// entity, and the attempted operation. Only the underlying message is kept;
// the raw driver error is never carried, so connection details cannot leak
// through error chains.
type StoreError struct {
	Backend AdapterKind
	Entity  string
	Op      string
	Message string
}

func (e *StoreError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s store: %s: %s", e.Backend, e.Op, e.Message)
	}
	return fmt.Sprintf("%s store: %s %s: %s", e.Backend, e.Op, e.Entity, e.Message)
}

// NewStoreError builds a StoreError from err, or returns nil if err is nil.
func NewStoreError(backend AdapterKind, entity, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Backend: backend, Entity: entity, Op: op, Message: err.Error()}
}
