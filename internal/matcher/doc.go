// Package matcher compares an imported instrument's item set against a
// library of known templates and assigns a confidence tier to the best
// match.
//
// Matching is a pure function of the observed items and the library: no
// global state, no randomness, and no dependence on map iteration order, so
// the same inputs always produce the same MatchResult. Ties at equal
// confidence resolve to the first template in library declaration order and
// are flagged on the result, never raised as errors.
package matcher
