package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errRoot = errors.New("disk full")

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty storage", Config{}, ErrStorageEmpty.Error()},
		{"unknown storage", Config{Storage: "redis"}, "unknown storage kind"},
		{"memory needs nothing", Config{Storage: AdapterMemory}, ""},
		{"file needs dir", Config{Storage: AdapterFile}, "file.dir"},
		{"file ok", Config{Storage: AdapterFile, File: FileConfig{Dir: "/tmp/data"}}, ""},
		{"relational needs url", Config{Storage: AdapterRelational}, EnvDatabaseURL},
		{"relational ok", Config{Storage: AdapterRelational, Relational: RelationalConfig{URL: "app.db"}}, ""},
		{"relational bad schema", Config{
			Storage:    AdapterRelational,
			Relational: RelationalConfig{URL: "app.db", Schema: "no-dashes"},
		}, "relational.schema"},
		{"document needs url", Config{Storage: AdapterDocument}, EnvMongoURL},
		{"document needs database", Config{
			Storage:  AdapterDocument,
			Document: DocumentConfig{URL: "mongodb://localhost"},
		}, EnvMongoDB},
		{"document ok", Config{
			Storage:  AdapterDocument,
			Document: DocumentConfig{URL: "mongodb://localhost", Database: "app"},
		}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRelationalConfig_ResolveURL_EnvFallback(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "env.db")

	url, err := RelationalConfig{}.ResolveURL()
	require.NoError(t, err)
	require.Equal(t, "env.db", url)

	// Explicit config wins over the environment.
	url, err = RelationalConfig{URL: "explicit.db"}.ResolveURL()
	require.NoError(t, err)
	require.Equal(t, "explicit.db", url)
}

func TestDocumentConfig_EnvFallbacks(t *testing.T) {
	t.Setenv(EnvMongoURL, "mongodb://from-env")
	t.Setenv(EnvMongoDB, "envdb")

	cfg := DocumentConfig{}
	url, err := cfg.ResolveURL()
	require.NoError(t, err)
	require.Equal(t, "mongodb://from-env", url)

	db, err := cfg.ResolveDatabase()
	require.NoError(t, err)
	require.Equal(t, "envdb", db)

	explicit := DocumentConfig{URL: "mongodb://explicit", Database: "appdb"}
	url, err = explicit.ResolveURL()
	require.NoError(t, err)
	require.Equal(t, "mongodb://explicit", url)
	db, err = explicit.ResolveDatabase()
	require.NoError(t, err)
	require.Equal(t, "appdb", db)
}

func TestStoreError_Message(t *testing.T) {
	err := NewStoreError(AdapterFile, "Note", "create", errRoot)
	require.EqualError(t, err, "file store: create Note: disk full")

	err = NewStoreError(AdapterRelational, "", "init", errRoot)
	require.EqualError(t, err, "relational store: init: disk full")

	require.NoError(t, NewStoreError(AdapterFile, "Note", "create", nil))
}
