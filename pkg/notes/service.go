package notes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/evharten/mnema/internal/config"
	"github.com/evharten/mnema/internal/observability"
	"github.com/evharten/mnema/internal/tracing"
	"github.com/evharten/mnema/pkg/memindex"
	"github.com/evharten/mnema/pkg/workspace"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrInvalidRequest marks a request rejected before any storage tier was
// consulted: a missing path, a malformed pattern, or an unknown agent.
var ErrInvalidRequest = errors.New("invalid request")

// Read sources reported in ReadResult.Source.
const (
	SourceIndex     = "index"
	SourceWorkspace = "workspace"
)

var agentIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// StatusReport describes one agent's memory surface. When the index catalog
// answered, its status fields are inlined alongside the workspace counters;
// TotalFiles always comes from the workspace scanner either way.
type StatusReport struct {
	Enabled       bool `json:"enabled"`
	SearchEnabled bool `json:"searchEnabled"`
	TotalFiles    int  `json:"totalFiles"`

	*memindex.Status
}

// FilesReport lists the note files visible in one agent's workspace.
// Files is never nil.
type FilesReport struct {
	AgentID      string                `json:"agentId"`
	WorkspaceDir string                `json:"workspaceDir"`
	Files        []workspace.FileEntry `json:"files"`
}

// ReadResult carries the content of one note read along with which tier
// served it.
type ReadResult struct {
	AgentID string `json:"agentId"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Service answers note status, listing, read, and write requests for
// configured agents. Reads consult the index catalog first when one is
// available and fall back to the workspace on any catalog failure; writes
// and listings go straight to the workspace.
type Service struct {
	cfg    *config.Config
	logger zerolog.Logger

	// acquire is swapped in tests to inject a fake catalog.
	acquire func(agentID string) memindex.Handle
}

// NewService creates a note service over the given configuration.
func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	observability.EnsureRegistered()

	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &Service{
		cfg:    cfg,
		logger: logger.With().Str("component", "notes").Logger(),
	}
	s.acquire = s.acquireCatalog
	return s, nil
}

func (s *Service) acquireCatalog(agentID string) memindex.Handle {
	return memindex.Acquire(memindex.AcquireOptions{
		Enabled:     s.cfg.Memory.SearchEnabled,
		DBPath:      s.cfg.IndexDBPath(agentID),
		SourceRoots: s.cfg.SourceRoots(agentID),
		Logger:      s.logger,
	})
}

// resolveAgent maps an empty agent ID to the configured default and rejects
// IDs that are malformed or not configured.
func (s *Service) resolveAgent(agentID string) (string, error) {
	if agentID == "" {
		return s.cfg.DefaultAgentID(), nil
	}
	if !agentIDPattern.MatchString(agentID) {
		return "", fmt.Errorf("%w: invalid agent id %q", ErrInvalidRequest, agentID)
	}
	if _, ok := s.cfg.AgentByID(agentID); !ok {
		return "", fmt.Errorf("%w: unknown agent %q", ErrInvalidRequest, agentID)
	}
	return agentID, nil
}

// Status reports the memory surface for one agent. The workspace scanner
// always supplies TotalFiles. When the index catalog is absent or its status
// query fails, the report is still returned with SearchEnabled false rather
// than an error.
func (s *Service) Status(ctx context.Context, agentID string) (*StatusReport, error) {
	ctx, span := tracing.StartSpan(ctx, "mnema.notes", "memory.status",
		attribute.String("agent.id", agentID),
	)
	defer span.End()

	start := time.Now()
	success := false
	defer func() {
		observability.RecordWorkspaceOp("status", time.Since(start), success)
	}()

	id, err := s.resolveAgent(agentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent resolution failed")
		return nil, err
	}

	entries := workspace.ListFiles(s.cfg.AgentWorkspaceDir(id))
	observability.SetWorkspaceNotes(id, len(entries))
	span.SetAttributes(attribute.Int("workspace.files", len(entries)))

	report := &StatusReport{
		Enabled:       true,
		SearchEnabled: false,
		TotalFiles:    len(entries),
	}

	handle := s.acquire(id)
	mgr, ok := handle.Manager()
	if !ok {
		observability.RecordStatusFallback()
		s.logger.Debug().
			Str("agent_id", id).
			Str("reason", handle.AbsentReason()).
			Msg("Reporting unmanaged memory status")
		success = true
		return report, nil
	}
	defer mgr.Close()

	idx, err := mgr.Status(ctx)
	if err != nil {
		observability.RecordStatusFallback()
		s.logger.Warn().Err(err).
			Str("agent_id", id).
			Msg("Index status query failed, reporting unmanaged status")
		success = true
		return report, nil
	}

	report.SearchEnabled = true
	report.Status = idx
	span.SetAttributes(attribute.Int("index.files", idx.FileCount))
	success = true
	return report, nil
}

// ListFiles enumerates the agent's note files, optionally filtered by a glob
// pattern matched against workspace-relative paths. The index catalog plays
// no part in listing.
func (s *Service) ListFiles(ctx context.Context, agentID, pattern string) (*FilesReport, error) {
	ctx, span := tracing.StartSpan(ctx, "mnema.notes", "memory.files",
		attribute.String("agent.id", agentID),
	)
	defer span.End()

	start := time.Now()
	success := false
	defer func() {
		observability.RecordWorkspaceOp("list", time.Since(start), success)
	}()

	id, err := s.resolveAgent(agentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent resolution failed")
		return nil, err
	}

	dir := s.cfg.AgentWorkspaceDir(id)
	entries := workspace.ListFiles(dir)
	observability.SetWorkspaceNotes(id, len(entries))

	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			err = fmt.Errorf("%w: invalid pattern %q: %v", ErrInvalidRequest, pattern, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "pattern compilation failed")
			return nil, err
		}
		filtered := make([]workspace.FileEntry, 0, len(entries))
		for _, entry := range entries {
			if g.Match(entry.Path) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	span.SetAttributes(attribute.Int("files.returned", len(entries)))
	success = true
	return &FilesReport{
		AgentID:      id,
		WorkspaceDir: dir,
		Files:        entries,
	}, nil
}

// ReadFile returns a note's content, optionally windowed to a line range.
// The index catalog is tried first when present; any catalog failure falls
// back to the workspace. A request without a path fails before either tier
// is consulted.
func (s *Service) ReadFile(ctx context.Context, agentID, relPath string, window *workspace.Window) (*ReadResult, error) {
	ctx, span := tracing.StartSpan(ctx, "mnema.notes", "memory.read",
		attribute.String("agent.id", agentID),
		attribute.String("file.path", relPath),
	)
	defer span.End()

	start := time.Now()
	success := false
	defer func() {
		observability.RecordWorkspaceOp("read", time.Since(start), success)
	}()

	id, err := s.resolveAgent(agentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent resolution failed")
		return nil, err
	}

	if relPath == "" {
		err := fmt.Errorf("%w: path is required", ErrInvalidRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing path")
		return nil, err
	}

	if mgr, ok := s.acquire(id).Manager(); ok {
		content, err := readFromIndex(ctx, mgr, relPath, window)
		if err == nil {
			observability.RecordReadSource(SourceIndex)
			span.SetAttributes(attribute.String("read.source", SourceIndex))
			success = true
			return &ReadResult{AgentID: id, Path: relPath, Content: content, Source: SourceIndex}, nil
		}
		s.logger.Debug().Err(err).
			Str("agent_id", id).
			Str("path", relPath).
			Msg("Index read failed, falling back to workspace")
	}

	content, err := workspace.ReadFile(s.cfg.AgentWorkspaceDir(id), relPath, window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "workspace read failed")
		return nil, err
	}

	observability.RecordReadSource(SourceWorkspace)
	span.SetAttributes(attribute.String("read.source", SourceWorkspace))
	success = true
	return &ReadResult{AgentID: id, Path: relPath, Content: content, Source: SourceWorkspace}, nil
}

func readFromIndex(ctx context.Context, mgr memindex.Manager, relPath string, window *workspace.Window) (string, error) {
	defer mgr.Close()

	req := memindex.ReadRequest{Path: relPath}
	if window != nil {
		req.From = window.FromLine
		req.Lines = window.LineCount
	}
	return mgr.ReadFile(ctx, req)
}

// WriteFile stores a note in the agent's workspace. Writes never touch the
// index catalog and have no fallback: a failure is always returned.
func (s *Service) WriteFile(ctx context.Context, agentID, relPath, content string) (*workspace.WriteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "mnema.notes", "memory.write",
		attribute.String("agent.id", agentID),
		attribute.String("file.path", relPath),
	)
	defer span.End()

	start := time.Now()
	success := false
	defer func() {
		observability.RecordWorkspaceOp("write", time.Since(start), success)
	}()

	id, err := s.resolveAgent(agentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent resolution failed")
		return nil, err
	}

	if relPath == "" {
		err := fmt.Errorf("%w: path is required", ErrInvalidRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing path")
		return nil, err
	}

	res, err := workspace.WriteFile(s.cfg.AgentWorkspaceDir(id), relPath, content)
	if err != nil {
		observability.RecordWriteAudit(ctx, id, relPath, "failure", 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return nil, err
	}

	observability.RecordWriteAudit(ctx, id, relPath, "success", res.BytesWritten)
	span.SetAttributes(
		attribute.Int("write.bytes", res.BytesWritten),
		attribute.Bool("write.created", res.Created),
	)
	success = true
	return res, nil
}
