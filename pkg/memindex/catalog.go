package memindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/evharten/mnema/internal/tracing"
	"github.com/evharten/mnema/pkg/workspace"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func init() {
	// Auto-register sqlite-vec extension so catalogs with vec0 tables open cleanly
	sqlite_vec.Auto()
}

// Metadata keys the indexer writes into its catalog.
const (
	metaProviderKey = "embedding_provider"
	metaModelKey    = "embedding_model"
	metaDirtyKey    = "dirty"
	metaSourcesKey  = "source_roots"
	metaLastSyncKey = "last_sync_unix_ms"
)

// CatalogConfig holds catalog client configuration.
type CatalogConfig struct {
	DBPath      string
	SourceRoots []string
	Logger      zerolog.Logger
}

// CatalogClient reads an indexer catalog database. All access is read-only.
type CatalogClient struct {
	db          *sql.DB
	sourceRoots []string
	logger      zerolog.Logger
}

// OpenCatalog opens the catalog database in read-only mode.
func OpenCatalog(cfg CatalogConfig) (*CatalogClient, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("catalog database path is required")
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.DBPath+"?mode=ro&_fts5=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	return &CatalogClient{
		db:          db,
		sourceRoots: cfg.SourceRoots,
		logger:      cfg.Logger,
	}, nil
}

// Status derives the catalog state from its tables. Nothing is cached;
// each call reflects what the indexer has committed so far.
func (c *CatalogClient) Status(ctx context.Context) (*Status, error) {
	if c.db == nil {
		return nil, ErrCatalogClosed
	}

	ctx, span := tracing.StartSpan(ctx, "mnema.memindex", "index.status")
	defer span.End()

	st := &Status{}

	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&st.FileCount); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count indexed files: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&st.ChunkCount); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count indexed chunks: %w", err)
	}

	meta, err := c.readMetadata(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	st.Provider = meta[metaProviderKey]
	st.Model = meta[metaModelKey]
	st.Dirty = meta[metaDirtyKey] == "true" || meta[metaDirtyKey] == "1"

	if raw := meta[metaSourcesKey]; raw != "" {
		var sources []string
		if err := json.Unmarshal([]byte(raw), &sources); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed source_roots metadata, ignoring")
		} else {
			st.Sources = sources
		}
	}
	if raw := meta[metaLastSyncKey]; raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			st.LastSyncAtMs = &ms
		}
	}

	st.FTSAvailable = c.tableExists(ctx, "chunks_fts")
	st.VectorAvailable = c.tableExists(ctx, "embeddings")

	// Fallback means keyword-only retrieval: no embeddings stored yet.
	if st.VectorAvailable {
		var embedded int
		if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&embedded); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to count embeddings")
			st.UsingFallback = true
		} else {
			st.UsingFallback = embedded == 0
		}
	} else {
		st.UsingFallback = true
	}

	span.SetAttributes(
		attribute.Int("index.files", st.FileCount),
		attribute.Int("index.chunks", st.ChunkCount),
	)

	return st, nil
}

// ReadFile serves the content of an indexed file. The path must be listed
// in the catalog; content is read from the first source root that holds it.
func (c *CatalogClient) ReadFile(ctx context.Context, req ReadRequest) (string, error) {
	if c.db == nil {
		return "", ErrCatalogClosed
	}
	if req.Path == "" {
		return "", errors.New("path is required")
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"mnema.memindex",
		"index.read",
		attribute.String("path", req.Path),
	)
	defer span.End()

	var one int
	err := c.db.QueryRowContext(ctx, "SELECT 1 FROM files WHERE path = ? LIMIT 1", req.Path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotIndexed
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to query catalog: %w", err)
	}

	content, err := c.readFromRoots(req.Path)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var window *workspace.Window
	if req.From > 0 || req.Lines != nil {
		from := req.From
		if from <= 0 {
			from = 1
		}
		window = &workspace.Window{FromLine: from, LineCount: req.Lines}
	}

	return workspace.ApplyWindow(content, window), nil
}

// readFromRoots resolves the indexed path under each source root in order
// and returns the first file found.
func (c *CatalogClient) readFromRoots(relPath string) (string, error) {
	if len(c.sourceRoots) == 0 {
		return "", fmt.Errorf("no source roots configured: %w", os.ErrNotExist)
	}

	for _, root := range c.sourceRoots {
		full, err := workspace.Resolve(root, relPath)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(full)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to read indexed file: %w", err)
		}
	}

	return "", fmt.Errorf("indexed file missing from source roots: %w", os.ErrNotExist)
}

func (c *CatalogClient) readMetadata(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan catalog metadata: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

func (c *CatalogClient) tableExists(ctx context.Context, name string) bool {
	var found string
	err := c.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", name,
	).Scan(&found)
	return err == nil
}

// Close releases the catalog database handle.
func (c *CatalogClient) Close() error {
	if c.db == nil {
		return nil
	}
	db := c.db
	c.db = nil
	return db.Close()
}
