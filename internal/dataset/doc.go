// Package dataset builds an in-memory view of an on-disk research-data
// collection: the root description, the participants table, every data file
// with its parsed filename entities, and resolved sidecars.
//
// Loading is observational, not judgmental: a malformed filename or a
// missing root file is recorded on the loaded objects for the validation
// engine to turn into typed issues. Load fails only when the root directory
// itself cannot be walked.
//
// The core never mutates source files. Tabular reads happen once per file
// and are cached for the run's duration.
package dataset
