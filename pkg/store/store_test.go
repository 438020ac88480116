package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noko0413/Railnode/internal/file"
	"github.com/noko0413/Railnode/internal/memory"
	"github.com/noko0413/Railnode/internal/relational"
	"github.com/noko0413/Railnode/pkg/types"
)

func TestNew_DispatchesOnStorageKind(t *testing.T) {
	dir := t.TempDir()

	a, err := New(types.Config{Storage: types.AdapterMemory}, nil)
	require.NoError(t, err)
	require.IsType(t, &memory.Adapter{}, a)

	a, err = New(types.Config{Storage: types.AdapterFile, File: types.FileConfig{Dir: dir}}, nil)
	require.NoError(t, err)
	require.IsType(t, &file.Adapter{}, a)

	a, err = New(types.Config{
		Storage:    types.AdapterRelational,
		Relational: types.RelationalConfig{URL: filepath.Join(dir, "app.db")},
	}, nil)
	require.NoError(t, err)
	require.IsType(t, &relational.Adapter{}, a)
	require.NoError(t, a.Dispose(context.Background()))
}

func TestNew_ValidatesEagerly(t *testing.T) {
	_, err := New(types.Config{}, nil)
	require.ErrorIs(t, err, types.ErrStorageEmpty)

	_, err = New(types.Config{Storage: "redis"}, nil)
	require.ErrorIs(t, err, types.ErrStorageUnknown)

	_, err = New(types.Config{Storage: types.AdapterFile}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "file.dir")

	_, err = New(types.Config{Storage: types.AdapterRelational}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), types.EnvDatabaseURL)
}
