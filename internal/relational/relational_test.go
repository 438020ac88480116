package relational

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noko0413/Railnode/internal/storetest"
	"github.com/noko0413/Railnode/pkg/types"
)

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	cfg := types.RelationalConfig{URL: filepath.Join(t.TempDir(), "test.db")}
	a, err := NewAdapter(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Dispose(context.Background()) })
	return a
}

func newStore(t *testing.T) types.CrudStore {
	t.Helper()
	a := newAdapter(t)
	s, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.NoError(t, err)
	return s
}

func TestRelationalStore_Contract(t *testing.T) {
	storetest.Run(t, newStore, storetest.Options{SupportsUnset: false})
}

func TestAdapter_TableNameUsesSchemaPrefix(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	cfg := types.RelationalConfig{URL: dbPath, Schema: "app"}
	a, err := NewAdapter(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer a.Dispose(context.Background())

	s, err := a.GetCrudStore(types.EntitySchema{Name: "Post"})
	require.NoError(t, err)
	_, err = s.Create(context.Background(), map[string]any{"title": "x"})
	require.NoError(t, err)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'app_posts'").Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "app_posts", name)
}

func TestAdapter_DefaultSchemaPrefix(t *testing.T) {
	a := newAdapter(t)
	s, err := a.GetCrudStore(types.EntitySchema{Name: "Post"})
	require.NoError(t, err)
	require.Equal(t, "railnode_posts", s.(*Store).table)
}

func TestAdapter_RejectsUnsafeEntityNames(t *testing.T) {
	a := newAdapter(t)

	// Normalization strips the injection characters, leaving a name that
	// starts with a digit, which the identifier allow-list rejects.
	_, err := a.GetCrudStore(types.EntitySchema{Name: "0; DROP TABLE x"})
	require.ErrorIs(t, err, types.ErrInvalidIdentifier)
}

func TestNewAdapter_RejectsUnsafeSchema(t *testing.T) {
	cfg := types.RelationalConfig{URL: "test.db", Schema: "bad schema"}
	_, err := NewAdapter(cfg, zap.NewNop().Sugar())
	require.ErrorIs(t, err, types.ErrInvalidIdentifier)
}

func TestNewAdapter_RequiresURL(t *testing.T) {
	_, err := NewAdapter(types.RelationalConfig{}, zap.NewNop().Sugar())
	require.Error(t, err)
	require.Contains(t, err.Error(), types.EnvDatabaseURL)
}

func TestAdapter_ConcurrentFirstUseBootstrapsOnce(t *testing.T) {
	a := newAdapter(t)
	s, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.GetAll(context.Background())
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
}

func TestAdapter_Dispose(t *testing.T) {
	a := newAdapter(t)
	require.NoError(t, a.Init(context.Background()))

	require.NoError(t, a.Dispose(context.Background()))
	require.NoError(t, a.Dispose(context.Background()))

	_, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.ErrorIs(t, err, types.ErrAdapterDisposed)
}

func TestStore_ErrorsCarryBackendAndOperation(t *testing.T) {
	cfg := types.RelationalConfig{URL: filepath.Join(t.TempDir(), "missing", "deep", "test.db")}
	a, err := NewAdapter(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer a.Dispose(context.Background())

	s, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.NoError(t, err)

	_, err = s.GetAll(context.Background())
	require.Error(t, err)

	var se *types.StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, types.AdapterRelational, se.Backend)
	require.Equal(t, "Note", se.Entity)
	require.Equal(t, "getAll", se.Op)
}
