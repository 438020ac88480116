package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noko0413/Railnode/pkg/types"
)

// Store is the table-backed CrudStore for one entity.
type Store struct {
	adapter *Adapter
	entity  string
	table   string
}

// ready returns the shared pool after making sure the entity table exists.
func (s *Store) ready(ctx context.Context) (*sql.DB, error) {
	db, err := s.adapter.ensureDB()
	if err != nil {
		return nil, err
	}
	if err := s.adapter.ensureTable(ctx, db, s.table); err != nil {
		return nil, err
	}
	return db, nil
}

// GetAll returns every row ordered by id ascending (lexicographic).
func (s *Store) GetAll(ctx context.Context) ([]types.Record, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "getAll", err)
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, created_at, updated_at, data FROM "+s.table+" ORDER BY id ASC")
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "getAll", err)
	}
	defer rows.Close()

	out := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, types.NewStoreError(types.AdapterRelational, s.entity, "getAll", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "getAll", err)
	}
	return out, nil
}

// GetByID returns the row for id, or nil if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*types.Record, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "getById", err)
	}
	rec, err := s.selectOne(ctx, db, id)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "getById", err)
	}
	return rec, nil
}

// Create inserts a row with a client-generated UUID. The database defaults
// both timestamps to the same instant; the returned record mirrors the row
// as stored.
func (s *Store) Create(ctx context.Context, payload map[string]any) (types.Record, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterRelational, s.entity, "create", err)
	}

	fields := types.StripReservedFields(payload)
	data, err := json.Marshal(fields)
	if err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterRelational, s.entity, "create", err)
	}

	id := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		"INSERT INTO "+s.table+" (id, data) VALUES (?, ?)", id, string(data)); err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterRelational, s.entity, "create", err)
	}

	rec, err := s.selectOne(ctx, db, id)
	if err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterRelational, s.entity, "create", err)
	}
	if rec == nil {
		return types.Record{}, types.NewStoreError(types.AdapterRelational, s.entity, "create",
			fmt.Errorf("inserted row %s not found", id))
	}
	return *rec, nil
}

// Update merges the patch into the JSON document column with json_patch and
// refreshes updated_at. Null-valued patch fields are dropped first: there is
// no unset semantics at the relational layer, and json_patch would otherwise
// treat null as a removal. Returns nil if no row matched.
func (s *Store) Update(ctx context.Context, id string, payload map[string]any) (*types.Record, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "update", err)
	}

	patch := types.StripReservedFields(payload)
	for k, v := range patch {
		if v == nil {
			delete(patch, k)
		}
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "update", err)
	}

	res, err := db.ExecContext(ctx,
		"UPDATE "+s.table+" SET data = json_patch(data, ?), "+
			"updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now') WHERE id = ?",
		string(data), id)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "update", err)
	}
	if affected == 0 {
		return nil, nil
	}

	rec, err := s.selectOne(ctx, db, id)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterRelational, s.entity, "update", err)
	}
	return rec, nil
}

// Delete removes the row and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return false, types.NewStoreError(types.AdapterRelational, s.entity, "delete", err)
	}
	res, err := db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE id = ?", id)
	if err != nil {
		return false, types.NewStoreError(types.AdapterRelational, s.entity, "delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, types.NewStoreError(types.AdapterRelational, s.entity, "delete", err)
	}
	return affected > 0, nil
}

func (s *Store) selectOne(ctx context.Context, db *sql.DB, id string) (*types.Record, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, created_at, updated_at, data FROM "+s.table+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.Record, error) {
	var rec types.Record
	var createdAt, updatedAt, data string
	if err := row.Scan(&rec.ID, &createdAt, &updatedAt, &data); err != nil {
		return types.Record{}, err
	}
	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return types.Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return types.Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Fields); err != nil {
		return types.Record{}, fmt.Errorf("parsing data column: %w", err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return rec, nil
}
