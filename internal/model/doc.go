// Package model provides the core document types shared by every other
// internal package: sidecars, items, templates, issues, and the canonical
// JSON serialization used for deterministic report output.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Text fields are a sealed sum type (plain string or language map),
//     resolved only at the i18n boundary. Validation treats both variants
//     uniformly as "present".
//   - All JSON tags use snake_case except sidecar field names, which follow
//     the on-disk convention (CamelCase keys inside sidecar documents).
//   - Report serialization goes through MarshalCanonical so identical inputs
//     produce byte-identical output.
package model
