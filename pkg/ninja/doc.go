// Package ninja holds the worker registry: workers, the capability catalog
// and the contracts workers are summoned from.
//
// Invariants:
// - A worker's capabilities are bound to compiled definitions when it is registered;
//   an unknown capability fails registration, never dispatch.
// - Worker names are unique ignoring case; summoning a taken name appends -2, -3, ...
// - All reads take the read lock; Register, Summon and catalog changes take the write lock.
//
// Usage:
//
//	registry, err := ninja.NewDefaultRegistry()
//	binding, err := registry.Resolve("parser", "parse_invoice")
//	worker, err := registry.Summon("writer")
package ninja
