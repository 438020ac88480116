// Package relational implements the SQLite storage adapter. Each entity
// maps to one table whose field data lives in a single JSON document
// column, keeping the table shape independent of the declared schema.
package relational

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/noko0413/Railnode/pkg/types"
)

// Adapter owns the pooled connection and the per-entity table bindings.
type Adapter struct {
	url        string
	schema     string
	log        *zap.SugaredLogger
	mu         sync.Mutex
	db         *sql.DB
	stores     map[string]*Store
	bootstraps map[string]*bootstrap
	disposed   bool
}

// bootstrap memoizes one in-flight or completed table creation. Concurrent
// first-uses of the same entity wait on done; a failed attempt is evicted
// from the adapter's map so the next call can retry.
type bootstrap struct {
	done chan struct{}
	err  error
}

// NewAdapter validates the relational settings and creates the adapter.
// The connection pool is not opened until first use.
func NewAdapter(cfg types.RelationalConfig, log *zap.SugaredLogger) (*Adapter, error) {
	url, err := cfg.ResolveURL()
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		schema = types.DefaultRelationalSchema
	}
	if err := types.ValidateIdentifier(schema); err != nil {
		return nil, err
	}
	return &Adapter{
		url:        url,
		schema:     schema,
		log:        log,
		stores:     make(map[string]*Store),
		bootstraps: make(map[string]*bootstrap),
	}, nil
}

// Init opens the pool eagerly and verifies the backend is reachable.
func (a *Adapter) Init(ctx context.Context) error {
	db, err := a.ensureDB()
	if err != nil {
		return types.NewStoreError(types.AdapterRelational, "", "init", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return types.NewStoreError(types.AdapterRelational, "", "init", err)
	}
	return nil
}

// ensureDB lazily opens the shared connection pool. SQLite allows a single
// writer, so the pool is capped at one connection.
func (a *Adapter) ensureDB() (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, types.ErrAdapterDisposed
	}
	if a.db != nil {
		return a.db, nil
	}
	db, err := sql.Open("sqlite", a.url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	a.db = db
	return db, nil
}

// GetCrudStore returns the memoized store for the entity. The table name is
// derived from the entity name, prefixed with the configured schema, and
// validated before it is ever interpolated into SQL.
func (a *Adapter) GetCrudStore(schema types.EntitySchema) (types.CrudStore, error) {
	name, err := types.StorageName(schema.Name)
	if err != nil {
		return nil, err
	}
	table := a.schema + "_" + name
	if err := types.ValidateIdentifier(table); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, types.ErrAdapterDisposed
	}
	if s, ok := a.stores[schema.Name]; ok {
		return s, nil
	}
	s := &Store{adapter: a, entity: schema.Name, table: table}
	a.stores[schema.Name] = s
	return s, nil
}

// ensureTable runs the table bootstrap at most once per entity. All
// concurrent callers await the same in-flight attempt; a failure evicts the
// memo so exactly one retry happens on the next call.
func (a *Adapter) ensureTable(ctx context.Context, db *sql.DB, table string) error {
	a.mu.Lock()
	if b, ok := a.bootstraps[table]; ok {
		a.mu.Unlock()
		select {
		case <-b.done:
			return b.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b := &bootstrap{done: make(chan struct{})}
	a.bootstraps[table] = b
	a.mu.Unlock()

	_, err := db.ExecContext(ctx, createTableDDL(table))

	a.mu.Lock()
	b.err = err
	if err != nil {
		delete(a.bootstraps, table)
	}
	a.mu.Unlock()
	close(b.done)

	if err != nil {
		a.log.Warnw("table bootstrap failed", "table", table, "error", err)
	}
	return err
}

// createTableDDL builds the per-entity DDL. The table name has already been
// validated against the identifier allow-list.
func createTableDDL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + " (" +
		"id TEXT PRIMARY KEY, " +
		"created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')), " +
		"updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')), " +
		"data TEXT NOT NULL DEFAULT '{}')"
}

// Dispose drains and closes the pool. Idempotent.
func (a *Adapter) Dispose(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil
	}
	a.disposed = true
	a.stores = make(map[string]*Store)
	a.bootstraps = make(map[string]*bootstrap)
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		if err != nil {
			return types.NewStoreError(types.AdapterRelational, "", "dispose", err)
		}
	}
	return nil
}
