// Package recipe implements the scoring engine: it loads a declarative
// scoring specification (a CUE document), applies reverse-coding
// transforms, aggregates raw item values into derived scores, and emits a
// scored table plus a codebook.
//
// The four-stage pipeline per score is Validate -> Transform -> Aggregate
// -> Annotate. A score referencing a missing item is skipped with a typed
// issue; the rest of the recipe still runs. Out-of-range results keep their
// value and gain a warning flag, never clamped or dropped.
//
// Determinism: scores evaluate in declaration order, items aggregate in
// declared order, and rows keep their input order, so identical inputs
// yield bit-identical output.
package recipe
