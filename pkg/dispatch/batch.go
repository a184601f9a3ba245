package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/obiverse/dojo/internal/tracing"
	"github.com/obiverse/dojo/pkg/errdefs"
	"github.com/obiverse/dojo/pkg/scroll"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BatchPolicy decides what a failed batch element does to its siblings
type BatchPolicy string

const (
	// PolicyIsolate records an error scroll at the failed index and keeps going
	PolicyIsolate BatchPolicy = "isolate"

	// PolicyAbort cancels the remaining elements and fails the batch
	PolicyAbort BatchPolicy = "abort"
)

// ParseBatchPolicy parses a policy name. An empty name is PolicyIsolate.
func ParseBatchPolicy(s string) (BatchPolicy, error) {
	switch BatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyIsolate:
		return PolicyIsolate, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown batch policy: %s", s)
	}
}

// ErrorKey returns the scroll key of an isolated batch failure
func ErrorKey(index int) string {
	return fmt.Sprintf("/hokage/clone_error/%d", index)
}

// InvokeBatch runs capability once per argument set. Result i always
// corresponds to sets[i]. The binding is resolved once up front, so an
// unknown worker or capability fails the whole batch before any inference.
func (d *Dispatcher) InvokeBatch(ctx context.Context, worker, capability string, sets []map[string]interface{}) ([]scroll.Scroll, error) {
	if len(sets) == 0 {
		return nil, errdefs.InvalidArgument("dispatch.batch", "tasks must not be empty")
	}
	if len(sets) > d.maxBatch {
		return nil, errdefs.InvalidArgument("dispatch.batch", "batch of %d exceeds limit of %d", len(sets), d.maxBatch)
	}

	b, err := d.resolver.Resolve(worker, capability)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"dojo.dispatch",
		"dispatch.batch",
		attribute.String("worker", b.Worker.Name),
		attribute.String("capability", capability),
		attribute.Int("size", len(sets)),
	)
	defer span.End()
	d.notifyBatch(len(sets))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]scroll.Scroll, len(sets))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		abortErr *BatchError
	)

	for i, set := range sets {
		wg.Add(1)
		go func(i int, set map[string]interface{}) {
			defer wg.Done()

			result, err := d.invokeBinding(ctx, b, set)
			if err == nil {
				var s scroll.Scroll
				if s, err = d.wrapResult(b.Worker.Name, capability, result); err == nil {
					results[i] = s
					return
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if d.batchPolicy == PolicyAbort {
				if abortErr == nil {
					abortErr = &BatchError{Index: i, Err: err}
					cancel()
				}
				return
			}

			es, werr := d.errorScroll(capability, i, set, err)
			if werr != nil {
				if abortErr == nil {
					abortErr = &BatchError{Index: i, Err: werr}
				}
				return
			}
			results[i] = es
		}(i, set)
	}
	wg.Wait()

	if abortErr != nil {
		span.RecordError(abortErr)
		span.SetStatus(codes.Error, abortErr.Error())
		d.logger.Warn().
			Str("worker", b.Worker.Name).
			Str("capability", capability).
			Int("index", abortErr.Index).
			Err(abortErr.Err).
			Msg("Batch aborted")
		return nil, abortErr
	}
	return results, nil
}

func (d *Dispatcher) errorScroll(capability string, index int, set map[string]interface{}, cause error) (scroll.Scroll, error) {
	payload := ErrorResult{
		Error: cause.Error(),
		Kind:  errdefs.KindOf(cause),
		Index: index,
		Task:  set,
	}
	return d.engine.Wrap(ErrorKey(index), payload, SchemaError, capability, nil)
}
