// Package storetest runs the shared CrudStore contract suite against a
// backend. Every adapter's test package invokes Run so all four backends
// stay observationally equivalent for whole-entity CRUD.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noko0413/Railnode/pkg/types"
)

// Options tunes the suite for backend-specific semantics.
type Options struct {
	// SupportsUnset is set for backends where a nil patch value removes the
	// field. Backends without unset semantics drop nil patch values instead.
	SupportsUnset bool
}

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T) types.CrudStore

// Run executes the contract suite against stores built by factory.
func Run(t *testing.T, factory Factory, opts Options) {
	t.Run("EmptyGetAll", func(t *testing.T) {
		s := factory(t)
		records, err := s.GetAll(context.Background())
		require.NoError(t, err)
		require.Empty(t, records)
	})

	t.Run("CreateAssignsIdentityAndTimestamps", func(t *testing.T) {
		s := factory(t)
		rec, err := s.Create(context.Background(), map[string]any{
			"title": "first", "count": float64(3), "done": false,
		})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		require.False(t, rec.CreatedAt.IsZero())
		require.Equal(t, rec.CreatedAt, rec.UpdatedAt)
		require.Equal(t, "first", rec.Fields["title"])
	})

	t.Run("CreateStripsReservedKeys", func(t *testing.T) {
		s := factory(t)
		rec, err := s.Create(context.Background(), map[string]any{
			"id":        "client-chosen",
			"createdAt": "1999-01-01T00:00:00Z",
			"updatedAt": "1999-01-01T00:00:00Z",
			"title":     "sanitized",
		})
		require.NoError(t, err)
		require.NotEqual(t, "client-chosen", rec.ID)
		require.NotContains(t, rec.Fields, "id")
		require.NotContains(t, rec.Fields, "createdAt")
		require.NotContains(t, rec.Fields, "updatedAt")
		require.Equal(t, "sanitized", rec.Fields["title"])
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := factory(t)
		created, err := s.Create(context.Background(), map[string]any{
			"title": "note", "count": float64(7),
		})
		require.NoError(t, err)

		got, err := s.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, created.Fields, got.Fields)
		require.True(t, created.CreatedAt.Equal(got.CreatedAt))
		require.True(t, created.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("GetAllOrderedByID", func(t *testing.T) {
		s := factory(t)
		for i := 0; i < 5; i++ {
			_, err := s.Create(context.Background(), map[string]any{"count": float64(i)})
			require.NoError(t, err)
		}
		records, err := s.GetAll(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 5)
		for i := 1; i < len(records); i++ {
			require.Less(t, records[i-1].ID, records[i].ID)
		}
	})

	t.Run("GetByIDAbsent", func(t *testing.T) {
		s := factory(t)
		got, err := s.GetByID(context.Background(), "no-such-id")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("UpdateMergesShallow", func(t *testing.T) {
		s := factory(t)
		created, err := s.Create(context.Background(), map[string]any{
			"title": "before", "count": float64(1),
		})
		require.NoError(t, err)

		// Backends store timestamps at millisecond precision; step past it
		// so the merge provably advances updatedAt.
		time.Sleep(20 * time.Millisecond)

		updated, err := s.Update(context.Background(), created.ID, map[string]any{
			"count": float64(2),
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		require.Equal(t, "before", updated.Fields["title"])
		require.Equal(t, float64(2), updated.Fields["count"])
		require.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("UpdateStripsReservedKeys", func(t *testing.T) {
		s := factory(t)
		created, err := s.Create(context.Background(), map[string]any{"title": "keep"})
		require.NoError(t, err)

		updated, err := s.Update(context.Background(), created.ID, map[string]any{
			"id": "forged", "title": "changed",
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		require.Equal(t, created.ID, updated.ID)
		require.Equal(t, "changed", updated.Fields["title"])
		require.NotContains(t, updated.Fields, "id")
	})

	t.Run("UpdateAbsent", func(t *testing.T) {
		s := factory(t)
		updated, err := s.Update(context.Background(), "no-such-id", map[string]any{"title": "x"})
		require.NoError(t, err)
		require.Nil(t, updated)
	})

	t.Run("UpdateNilField", func(t *testing.T) {
		s := factory(t)
		created, err := s.Create(context.Background(), map[string]any{
			"title": "keep", "count": float64(9),
		})
		require.NoError(t, err)

		updated, err := s.Update(context.Background(), created.ID, map[string]any{
			"count": nil,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		require.Equal(t, "keep", updated.Fields["title"])
		if opts.SupportsUnset {
			require.NotContains(t, updated.Fields, "count")
		} else {
			require.Equal(t, float64(9), updated.Fields["count"])
		}
	})

	t.Run("DeleteReportsExistence", func(t *testing.T) {
		s := factory(t)
		created, err := s.Create(context.Background(), map[string]any{"title": "gone"})
		require.NoError(t, err)

		removed, err := s.Delete(context.Background(), created.ID)
		require.NoError(t, err)
		require.True(t, removed)

		got, err := s.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		require.Nil(t, got)

		removed, err = s.Delete(context.Background(), created.ID)
		require.NoError(t, err)
		require.False(t, removed)
	})

	t.Run("DeleteAbsent", func(t *testing.T) {
		s := factory(t)
		removed, err := s.Delete(context.Background(), "no-such-id")
		require.NoError(t, err)
		require.False(t, removed)
	})

	t.Run("ConcurrentCreatesAssignDistinctIDs", func(t *testing.T) {
		s := factory(t)
		const n = 16

		var wg sync.WaitGroup
		ids := make([]string, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec, err := s.Create(context.Background(), map[string]any{"count": float64(i)})
				ids[i], errs[i] = rec.ID, err
			}(i)
		}
		wg.Wait()

		seen := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			require.NotEmpty(t, ids[i])
			require.False(t, seen[ids[i]], "duplicate id %s", ids[i])
			seen[ids[i]] = true
		}

		records, err := s.GetAll(context.Background())
		require.NoError(t, err)
		require.Len(t, records, n)
	})
}
