// Package validator implements the validation engine: it walks a loaded
// dataset, evaluates schema-registry rules per file, and assembles a
// deterministic Report of typed issues.
//
// ARCHITECTURE:
//
// Single-pass, collect-all evaluation. The engine never returns an error
// for a data defect and never panics on one; every defect becomes a typed
// issue so one pass yields the maximum diagnostic value. The single
// exception is a missing required root file, which is fatal: it produces
// exactly one structural issue and skips per-file traversal entirely.
//
// Determinism: traversal visits participants and files in sorted order,
// issues are grouped by code, and files within a group sort by path, so an
// unmodified dataset validates to a byte-identical Report every time.
//
// Cancellation: the caller's context is polled between participants. A
// cancelled run returns a Report with Summary.Partial set, never a silently
// truncated one.
package validator
