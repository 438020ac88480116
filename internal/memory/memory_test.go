package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noko0413/Railnode/internal/storetest"
	"github.com/noko0413/Railnode/pkg/types"
)

func newStore(t *testing.T) types.CrudStore {
	t.Helper()
	a := NewAdapter()
	s, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.NoError(t, err)
	return s
}

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, newStore, storetest.Options{SupportsUnset: true})
}

func TestAdapter_StoreIsMemoized(t *testing.T) {
	a := NewAdapter()
	schema := types.EntitySchema{Name: "Note"}

	s1, err := a.GetCrudStore(schema)
	require.NoError(t, err)
	s2, err := a.GetCrudStore(schema)
	require.NoError(t, err)
	require.Same(t, s1, s2)
}

func TestAdapter_StoresAreIsolatedPerEntity(t *testing.T) {
	a := NewAdapter()
	notes, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.NoError(t, err)
	tasks, err := a.GetCrudStore(types.EntitySchema{Name: "Task"})
	require.NoError(t, err)

	_, err = notes.Create(context.Background(), map[string]any{"title": "only in notes"})
	require.NoError(t, err)

	records, err := tasks.GetAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestAdapter_Dispose(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Init(context.Background()))

	require.NoError(t, a.Dispose(context.Background()))
	require.NoError(t, a.Dispose(context.Background()))

	_, err := a.GetCrudStore(types.EntitySchema{Name: "Note"})
	require.ErrorIs(t, err, types.ErrAdapterDisposed)
}

func TestStore_ResultsDoNotAliasStoreState(t *testing.T) {
	s := newStore(t)
	created, err := s.Create(context.Background(), map[string]any{"title": "original"})
	require.NoError(t, err)

	created.Fields["title"] = "mutated"

	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "original", got.Fields["title"])
}
