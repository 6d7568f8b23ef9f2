// Package notes orchestrates agent note access across two tiers: an
// optional read-only index catalog and the markdown workspace on disk.
//
// Invariants:
// - Status and ListFiles always report the workspace scanner's file count;
//   the index catalog never influences which files are listed.
// - ReadFile prefers the index catalog when one is present and falls back
//   to the workspace on any catalog failure. Reads never fail because the
//   catalog is missing, closed, or unaware of the file.
// - WriteFile goes straight to the workspace and has no fallback; a write
//   failure is always surfaced to the caller.
//
// Usage:
//
//	svc, err := notes.NewService(cfg, logger)
//	if err != nil {
//		return err
//	}
//	report, err := svc.Status(ctx, "main")
//	res, err := svc.ReadFile(ctx, "main", "memory/facts.md", nil)
//	_, _ = report, res
package notes
