// Package memindex reads the catalog an external memory indexer maintains.
//
// The indexer owns the catalog database; this package never writes to it.
// Every open uses read-only mode, and status is derived live from the
// catalog tables on each call.
//
// Invariants:
// - The catalog database is opened read-only; no schema or row mutations.
// - Acquire reports a Handle; an absent handle carries a reason, never an error.
// - ReadFile serves only paths the catalog lists, resolved under configured source roots.
//
// Usage:
//
//	h := memindex.Acquire(memindex.AcquireOptions{Enabled: true, DBPath: "/data/index/main.db"})
//	if mgr, ok := h.Manager(); ok {
//		defer mgr.Close()
//		st, _ := mgr.Status(ctx)
//		_ = st
//	}
package memindex
