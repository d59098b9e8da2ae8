// Package i18n resolves multi-language sidecar text down to a single
// target language.
//
// Compile is pure and total: it never fails on a missing language, it only
// degrades. Selection order per language-map field is target language,
// then the sidecar's declared default language, then the first available
// language (sorted, for determinism), recording an info-level note on any
// fallback. Plain scalar fields pass through unchanged.
package i18n
