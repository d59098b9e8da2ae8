// Package schema provides the versioned schema registry: pure lookup data
// describing required root files, the filename grammar, per-category sidecar
// field rules, and the item datatype vocabulary.
//
// The registry loads once from an embedded YAML rule document and is
// immutable afterwards. It is passed explicitly to the engines that need it,
// never held as process-wide state, so rule evaluation stays deterministic
// and independently testable.
package schema
