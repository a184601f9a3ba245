// Package dispatch runs capabilities against workers: single calls, raw
// prompts, order-preserving batches and linear pipelines.
//
// Invariants:
// - Every backend call runs inside its backend's lane, bounded by capacity.
// - Batch result i always corresponds to argument set i.
// - Pipeline steps run strictly in order and any failure aborts the chain.
// - A finished pipeline's scroll lists every intermediate hash in prev.
//
// Usage:
//
//	d := dispatch.New(registry, pool, dispatch.WithTimeout(30*time.Second))
//	s, err := d.Invoke(ctx, "writer", "summarize", map[string]interface{}{"text": notes})
//	final, err := d.InvokeChain(ctx, []dispatch.Step{...})
package dispatch
