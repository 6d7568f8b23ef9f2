package memindex

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNotIndexed reports a path absent from the catalog. It wraps
// os.ErrNotExist so callers can match with errors.Is.
var ErrNotIndexed = fmt.Errorf("file not indexed: %w", os.ErrNotExist)

// ErrCatalogClosed reports an operation on a closed catalog client.
var ErrCatalogClosed = errors.New("index catalog is closed")

// Status describes the indexer catalog at the moment of the call.
type Status struct {
	FileCount       int      `json:"fileCount"`
	ChunkCount      int      `json:"chunkCount"`
	Dirty           bool     `json:"dirty"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	VectorAvailable bool     `json:"vectorAvailable"`
	FTSAvailable    bool     `json:"ftsAvailable"`
	UsingFallback   bool     `json:"usingFallback"`
	LastSyncAtMs    *int64   `json:"lastSyncAtMs,omitempty"`
}

// ReadRequest selects an indexed file and an optional line window.
// From is 1-indexed; zero means from the first line. Lines nil means
// through the end of the file.
type ReadRequest struct {
	Path  string
	From  int
	Lines *int
}

// Manager is the read surface of an index catalog.
type Manager interface {
	Status(ctx context.Context) (*Status, error)
	ReadFile(ctx context.Context, req ReadRequest) (string, error)
	Close() error
}

// Handle is the outcome of attempting to acquire a Manager. A present
// handle carries a usable manager; an absent one carries the reason no
// manager is available.
type Handle struct {
	manager Manager
	reason  string
}

// PresentHandle wraps a usable manager.
func PresentHandle(m Manager) Handle {
	return Handle{manager: m}
}

// AbsentHandle records why no manager is available.
func AbsentHandle(reason string) Handle {
	return Handle{reason: reason}
}

// Manager returns the underlying manager and whether one is present.
func (h Handle) Manager() (Manager, bool) {
	return h.manager, h.manager != nil
}

// AbsentReason returns the reason the handle is absent, or "" when present.
func (h Handle) AbsentReason() string {
	return h.reason
}
