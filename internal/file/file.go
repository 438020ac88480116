// Package file implements the durable single-file-per-entity storage
// adapter. Each entity owns one JSON document on disk; mutations rewrite
// the file atomically so a crash can never leave a partially written file
// behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noko0413/Railnode/pkg/types"
)

// Adapter hands out one file-backed store per entity, all rooted in a
// single data directory.
type Adapter struct {
	dir      string
	log      *zap.SugaredLogger
	mu       sync.Mutex
	stores   map[string]*Store
	disposed bool
}

// NewAdapter creates a file adapter rooted at dir.
func NewAdapter(dir string, log *zap.SugaredLogger) *Adapter {
	return &Adapter{dir: dir, log: log, stores: make(map[string]*Store)}
}

// Init creates the data directory if it does not exist.
func (a *Adapter) Init(ctx context.Context) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return types.NewStoreError(types.AdapterFile, "", "init", err)
	}
	return nil
}

// GetCrudStore returns the memoized store for the entity. The entity file
// is not read until the first operation.
func (a *Adapter) GetCrudStore(schema types.EntitySchema) (types.CrudStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, types.ErrAdapterDisposed
	}
	if s, ok := a.stores[schema.Name]; ok {
		return s, nil
	}
	s := &Store{
		entity: schema.Name,
		path:   filepath.Join(a.dir, strings.ToLower(schema.Name)+".json"),
		log:    a.log,
	}
	a.stores[schema.Name] = s
	return s, nil
}

// Dispose drops all bindings. On-disk state is already durable after every
// mutation, so there is nothing to flush. Idempotent.
func (a *Adapter) Dispose(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stores = make(map[string]*Store)
	a.disposed = true
	return nil
}

// fileDoc is the on-disk shape of one entity file.
type fileDoc struct {
	Items []types.Record `json:"items"`
}

// Store is the file-backed CrudStore for one entity. Reads are served from
// the in-memory index; only mutations touch disk.
type Store struct {
	entity string
	path   string
	log    *zap.SugaredLogger

	mu      sync.Mutex
	loaded  bool
	records map[string]types.Record
}

// load reads the entity file into the index on first access. A missing file
// starts an empty index. An unparseable file is renamed aside with a
// timestamp suffix and the index starts empty rather than failing startup.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	s.records = make(map[string]types.Record)
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.loaded = false
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		aside := fmt.Sprintf("%s.corrupt.%s", s.path, time.Now().UTC().Format("20060102T150405"))
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			s.loaded = false
			return fmt.Errorf("moving corrupt file aside: %w", renameErr)
		}
		s.log.Warnw("corrupt entity file moved aside", "entity", s.entity, "path", aside)
		return nil
	}

	for _, rec := range doc.Items {
		s.records[rec.ID] = rec
	}
	return nil
}

// persist rewrites the entity file from the index using the temp-file,
// fsync, rename sequence. A crash before the rename leaves the previous
// file intact.
func (s *Store) persist() error {
	doc := fileDoc{Items: make([]types.Record, 0, len(s.records))}
	for _, rec := range s.records {
		doc.Items = append(doc.Items, rec)
	}
	sort.Slice(doc.Items, func(i, j int) bool { return doc.Items[i].ID < doc.Items[j].ID })

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s items: %w", s.entity, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".railnode-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// GetAll returns every record ordered by id ascending, from the index only.
func (s *Store) GetAll(ctx context.Context) ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, types.NewStoreError(types.AdapterFile, s.entity, "getAll", err)
	}
	out := make([]types.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID returns the record for id, or nil if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, types.NewStoreError(types.AdapterFile, s.entity, "getById", err)
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := rec.Clone()
	return &cp, nil
}

// Create stores a new record and rewrites the entity file.
func (s *Store) Create(ctx context.Context, payload map[string]any) (types.Record, error) {
	now := time.Now().UTC()
	rec := types.Record{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    types.StripReservedFields(payload),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterFile, s.entity, "create", err)
	}
	s.records[rec.ID] = rec.Clone()
	if err := s.persist(); err != nil {
		delete(s.records, rec.ID)
		return types.Record{}, types.NewStoreError(types.AdapterFile, s.entity, "create", err)
	}
	return rec, nil
}

// Update shallow-merges payload into the stored record and rewrites the
// file. A field explicitly set to nil is removed.
func (s *Store) Update(ctx context.Context, id string, payload map[string]any) (*types.Record, error) {
	patch := types.StripReservedFields(payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, types.NewStoreError(types.AdapterFile, s.entity, "update", err)
	}
	prev, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	merged := prev.Clone()
	for k, v := range patch {
		if v == nil {
			delete(merged.Fields, k)
			continue
		}
		merged.Fields[k] = v
	}
	merged.UpdatedAt = time.Now().UTC()

	s.records[id] = merged.Clone()
	if err := s.persist(); err != nil {
		s.records[id] = prev
		return nil, types.NewStoreError(types.AdapterFile, s.entity, "update", err)
	}
	return &merged, nil
}

// Delete removes the record and rewrites the file. Reports whether a record
// existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return false, types.NewStoreError(types.AdapterFile, s.entity, "delete", err)
	}
	prev, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	if err := s.persist(); err != nil {
		s.records[id] = prev
		return false, types.NewStoreError(types.AdapterFile, s.entity, "delete", err)
	}
	return true, nil
}
