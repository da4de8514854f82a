// Package gas holds the one starting fuel value internal/eval and
// internal/codegen/wasm both default to, so a reference run and a
// compiled run of the same program exhaust gas on the same statement
// unless a caller overrides the budget on both ends identically.
package gas

// Default is used by an Evaluator or a wasm.Generator built without an
// explicit gas budget. Only the charging points are fixed per backend;
// this is a generous default meant to make the CLI's --gas flag the
// normal way to pick a tighter one for testing exhaustion.
const Default int64 = 1_000_000
