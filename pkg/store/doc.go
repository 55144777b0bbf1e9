/*
Package store persists Markov chain models in SQLite.

Models trained in memory with pkg/markov are merged into a shared
schema: one vocabulary table and one prefix table interned across all
models, plus per-model chain rows keyed by (model, prefix, next token).
Saving the same name twice merges frequencies; LoadModel rebuilds an
in-memory model from whatever its chains reference.

A Store is safe for concurrent use to the extent the underlying
database/sql driver is. Call Setup once per database before New.
*/
package store
