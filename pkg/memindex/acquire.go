package memindex

import (
	"os"

	"github.com/evharten/mnema/internal/observability"
	"github.com/rs/zerolog"
)

// AcquireOptions controls catalog acquisition for one operation.
type AcquireOptions struct {
	Enabled     bool
	DBPath      string
	SourceRoots []string
	Logger      zerolog.Logger
}

// Acquire attempts to open the index catalog and reports the outcome as a
// Handle. Acquisition never fails hard: a disabled, missing, or unreadable
// catalog yields an absent handle with a reason.
func Acquire(opts AcquireOptions) Handle {
	observability.EnsureRegistered()

	if !opts.Enabled {
		observability.RecordCatalogAcquire(false)
		return AbsentHandle("memory search is disabled")
	}
	if opts.DBPath == "" {
		observability.RecordCatalogAcquire(false)
		return AbsentHandle("no index catalog path configured")
	}

	if _, err := os.Stat(opts.DBPath); err != nil {
		observability.RecordCatalogAcquire(false)
		opts.Logger.Debug().Str("path", opts.DBPath).Msg("Index catalog not found")
		return AbsentHandle("index catalog not found")
	}

	client, err := OpenCatalog(CatalogConfig{
		DBPath:      opts.DBPath,
		SourceRoots: opts.SourceRoots,
		Logger:      opts.Logger,
	})
	if err != nil {
		observability.RecordCatalogAcquire(false)
		opts.Logger.Warn().Err(err).Str("path", opts.DBPath).Msg("Failed to open index catalog")
		return AbsentHandle("index catalog unavailable")
	}

	observability.RecordCatalogAcquire(true)
	return PresentHandle(client)
}
