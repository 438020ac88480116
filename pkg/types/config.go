package types

import (
	"errors"
	"fmt"
	"os"
)

// AdapterKind selects one of the four storage backends. The set is closed;
// backend selection is a tagged dispatch in the factory, not a plugin load.
type AdapterKind string

// Supported storage kinds.
const (
	AdapterMemory     AdapterKind = "memory"
	AdapterFile       AdapterKind = "file"
	AdapterRelational AdapterKind = "relational"
	AdapterDocument   AdapterKind = "document"
)

// Environment fallbacks for connection settings. Explicit config wins; the
// environment is consulted only when the config value is empty.
const (
	EnvDatabaseURL = "RAILNODE_DATABASE_URL"
	EnvMongoURL    = "RAILNODE_MONGO_URL"
	EnvMongoDB     = "RAILNODE_MONGO_DB"
)

// Config validation errors.
var (
	ErrStorageEmpty   = errors.New("storage kind must not be empty")
	ErrStorageUnknown = errors.New("unknown storage kind")
)

var knownAdapters = map[AdapterKind]bool{
	AdapterMemory:     true,
	AdapterFile:       true,
	AdapterRelational: true,
	AdapterDocument:   true,
}

// Config holds backend selection plus the settings struct for each backend.
// Only the struct matching Storage is consulted.
type Config struct {
	Storage    AdapterKind      `mapstructure:"storage" yaml:"storage"`
	File       FileConfig       `mapstructure:"file" yaml:"file"`
	Relational RelationalConfig `mapstructure:"relational" yaml:"relational"`
	Document   DocumentConfig   `mapstructure:"document" yaml:"document"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	// Dir is the directory holding one JSON file per entity.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// RelationalConfig configures the relational backend.
type RelationalConfig struct {
	// URL is the SQLite DSN (path or file: URL). Falls back to
	// RAILNODE_DATABASE_URL when empty.
	URL string `mapstructure:"url" yaml:"url"`
	// Schema is the validated prefix under which entity tables are created.
	Schema string `mapstructure:"schema" yaml:"schema"`
}

// DocumentConfig configures the document backend.
type DocumentConfig struct {
	// URL is the MongoDB connection string. Falls back to RAILNODE_MONGO_URL.
	URL string `mapstructure:"url" yaml:"url"`
	// Database is the database name. Falls back to RAILNODE_MONGO_DB.
	Database string `mapstructure:"database" yaml:"database"`
	// Prefix is an optional collection-name prefix.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// DefaultRelationalSchema is used when relational.schema is not configured.
const DefaultRelationalSchema = "railnode"

// Validate checks the config for the selected backend eagerly, before any
// store is created. Errors name the missing setting and, for two-source
// settings, both sources that were checked.
func (c Config) Validate() error {
	if c.Storage == "" {
		return ErrStorageEmpty
	}
	if !knownAdapters[c.Storage] {
		return fmt.Errorf("%w: %q", ErrStorageUnknown, c.Storage)
	}
	switch c.Storage {
	case AdapterFile:
		if c.File.Dir == "" {
			return errors.New("file storage requires a data directory: set file.dir")
		}
	case AdapterRelational:
		if _, err := c.Relational.ResolveURL(); err != nil {
			return err
		}
		schema := c.Relational.Schema
		if schema == "" {
			schema = DefaultRelationalSchema
		}
		if err := ValidateIdentifier(schema); err != nil {
			return fmt.Errorf("relational.schema: %w", err)
		}
	case AdapterDocument:
		if _, err := c.Document.ResolveURL(); err != nil {
			return err
		}
		if _, err := c.Document.ResolveDatabase(); err != nil {
			return err
		}
	}
	return nil
}

// ResolveURL returns the connection string, preferring explicit config over
// the RAILNODE_DATABASE_URL environment variable.
func (c RelationalConfig) ResolveURL() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if env := os.Getenv(EnvDatabaseURL); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("relational storage requires a connection string: set relational.url in the config or %s in the environment", EnvDatabaseURL)
}

// ResolveURL returns the connection string, preferring explicit config over
// the RAILNODE_MONGO_URL environment variable.
func (c DocumentConfig) ResolveURL() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if env := os.Getenv(EnvMongoURL); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("document storage requires a connection string: set document.url in the config or %s in the environment", EnvMongoURL)
}

// ResolveDatabase returns the database name, preferring explicit config
// over the RAILNODE_MONGO_DB environment variable.
func (c DocumentConfig) ResolveDatabase() (string, error) {
	if c.Database != "" {
		return c.Database, nil
	}
	if env := os.Getenv(EnvMongoDB); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("document storage requires a database name: set document.database in the config or %s in the environment", EnvMongoDB)
}
