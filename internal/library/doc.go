// Package library loads and persists the instrument template library.
//
// Templates are authored as CUE documents; LoadDir compiles a directory of
// them into an ordered model.Library. Order matters: it is the declared
// tie-break for equal-confidence matches, so the loader visits files in
// sorted name order and fields in declaration order.
//
// Store persists templates and recorded match decisions in a local SQLite
// database, so repeated imports can reuse earlier decisions. The matcher
// itself never touches the store; it receives an immutable Library.
package library
