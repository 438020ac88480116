// Package store provides the adapter factory: it turns a validated storage
// configuration into exactly one of the four backend adapters.
package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noko0413/Railnode/internal/document"
	"github.com/noko0413/Railnode/internal/file"
	"github.com/noko0413/Railnode/internal/memory"
	"github.com/noko0413/Railnode/internal/relational"
	"github.com/noko0413/Railnode/pkg/types"
)

// New constructs the adapter selected by cfg.Storage. Configuration is
// validated eagerly: a missing or invalid setting fails here, before any
// store operation runs. A nil logger is replaced with a no-op logger.
func New(cfg types.Config, log *zap.SugaredLogger) (types.Adapter, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Storage {
	case types.AdapterMemory:
		return memory.NewAdapter(), nil
	case types.AdapterFile:
		return file.NewAdapter(cfg.File.Dir, log), nil
	case types.AdapterRelational:
		return relational.NewAdapter(cfg.Relational, log)
	case types.AdapterDocument:
		return document.NewAdapter(cfg.Document, log)
	default:
		// Unreachable: Validate rejects unknown kinds.
		return nil, fmt.Errorf("%w: %q", types.ErrStorageUnknown, cfg.Storage)
	}
}
