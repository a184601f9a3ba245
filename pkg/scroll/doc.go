// Package scroll builds content-addressed, lineage-tracked result envelopes.
//
// Invariants:
// - A scroll's version is one more than the maximum parent version, or 0 without parents.
// - The hash covers key, data and every meta field except the hash, including time.
// - Scrolls are values; derivation creates a new scroll and never changes its parents.
// - Because a scroll is hashed after all of its parents exist, prev links form a DAG.
//
// Usage:
//
//	engine := scroll.NewEngine()
//	s, err := engine.Wrap("/ninja/parser/parse_invoice", result, "dojo/jutsu_result", "parse_invoice", nil)
//	child, err := engine.Derive(s, summary, "summarize")
package scroll
