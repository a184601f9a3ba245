// Package lane runs tasks in named FIFO lanes with a per-lane concurrency limit.
//
// Each inference backend gets its own lane, so the number of in-flight calls
// against a backend never exceeds its configured capacity.
//
// Invariants:
// - Tasks in the same lane start in FIFO order.
// - A lane never runs more than its concurrency limit of tasks at once.
// - A task whose context ends while it is queued never runs.
//
// Usage:
//
//	q := lane.New()
//	defer q.Close()
//	q.SetConcurrency("local", 2)
//	result, err := q.Enqueue(ctx, "local", func(ctx context.Context) (interface{}, error) {
//		return "ok", nil
//	})
package lane
