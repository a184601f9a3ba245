// Package jutsu compiles capability definitions into prompt templates with
// JSON-schema validated arguments.
//
// Invariants:
// - A capability's parameters are exactly the placeholders of its template.
// - Render never produces a prompt with an unfilled placeholder.
package jutsu
