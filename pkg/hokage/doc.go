// Package hokage composes the worker registry and the dispatcher into the
// coordinator that callers talk to.
//
// Invariants:
// - CompletedCount counts every successful inference call, including each
//   batch element and each pipeline step.
// - Status lists worker names in sorted order.
//
// Usage:
//
//	c, err := hokage.New(hokage.Config{Registry: registry, Backends: pool})
//	s, err := c.Dispatch(ctx, "writer", "summarize", map[string]interface{}{"text": notes})
package hokage
