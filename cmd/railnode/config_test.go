package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noko0413/Railnode/pkg/types"
)

const sampleConfig = `addr: ":9090"
storage: relational
relational:
  url: app.db
  schema: blog
entities:
  - name: Post
    fields:
      - name: title
        type: string
      - name: views
        type: number
        optional: true
  - name: Tag
    fields:
      - name: label
        type: string
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "railnode.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, types.AdapterRelational, cfg.Storage.Storage)
	require.Equal(t, "app.db", cfg.Storage.Relational.URL)
	require.Equal(t, "blog", cfg.Storage.Relational.Schema)

	require.Len(t, cfg.Entities, 2)
	require.Equal(t, "Post", cfg.Entities[0].Name)
	require.Equal(t, types.FieldNumber, cfg.Entities[0].Fields[1].Type)
	require.True(t, cfg.Entities[0].Fields[1].Optional)
	require.Equal(t, "Tag", cfg.Entities[1].Name)

	_, err = types.NewRegistry(cfg.Entities...)
	require.NoError(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "entities: []\n"))
	require.NoError(t, err)
	require.Equal(t, defaultAddr, cfg.Addr)
	require.Equal(t, types.AdapterMemory, cfg.Storage.Storage)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
