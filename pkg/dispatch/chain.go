package dispatch

import (
	"context"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/obiverse/dojo/internal/tracing"
	"github.com/obiverse/dojo/pkg/errdefs"
	"github.com/obiverse/dojo/pkg/scroll"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func newChainID() string {
	id, _ := gonanoid.New()
	return id
}

// ChainKey returns the scroll key of a finished pipeline
func ChainKey(id string) string {
	return "/hokage/combination/" + id
}

// InvokeChain runs steps in order, feeding each step's response into the
// next step's PreviousOutput arguments. Any failure aborts the chain with a
// StepError naming the step.
func (d *Dispatcher) InvokeChain(ctx context.Context, steps []Step) (scroll.Scroll, error) {
	if len(steps) == 0 {
		return scroll.Scroll{}, errdefs.InvalidArgument("dispatch.chain", "steps must not be empty")
	}
	if len(steps) > d.maxChain {
		return scroll.Scroll{}, errdefs.InvalidArgument("dispatch.chain", "chain of %d steps exceeds limit of %d", len(steps), d.maxChain)
	}
	for i, step := range steps {
		if strings.TrimSpace(step.Worker) == "" || strings.TrimSpace(step.Capability) == "" {
			return scroll.Scroll{}, &StepError{
				Index:      i,
				Worker:     step.Worker,
				Capability: step.Capability,
				Err:        errdefs.InvalidArgument("dispatch.chain", "ninja and jutsu are required"),
			}
		}
	}

	chainID := d.newID()
	ctx = tracing.WithChainID(ctx, chainID)
	ctx, span := tracing.StartSpan(
		ctx,
		"dojo.dispatch",
		"dispatch.chain",
		attribute.String("chain_id", chainID),
		attribute.Int("steps", len(steps)),
	)
	defer span.End()
	d.notifyChain(len(steps))

	intermediates := make([]scroll.Scroll, 0, len(steps))
	var previous *InvocationResult

	for i, step := range steps {
		s, result, err := d.runStep(ctx, i, step, previous)
		if err != nil {
			logger := tracing.LoggerFromContext(ctx, d.logger)
			logger.Warn().
				Int("step", i).
				Str("worker", step.Worker).
				Str("capability", step.Capability).
				Err(err).
				Msg("Chain aborted")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return scroll.Scroll{}, &StepError{Index: i, Worker: step.Worker, Capability: step.Capability, Err: err}
		}
		intermediates = append(intermediates, s)
		previous = &result
	}

	payload := ChainResult{
		InvocationResult: *previous,
		Steps:            len(steps),
		Results:          intermediates,
	}
	final, err := d.engine.Wrap(
		ChainKey(chainID),
		payload,
		SchemaCombinationResult,
		OpCombination,
		intermediates,
		scroll.WithInfluence(1/float64(len(steps))),
	)
	if err != nil {
		return scroll.Scroll{}, err
	}
	return final, nil
}

func (d *Dispatcher) runStep(ctx context.Context, index int, step Step, previous *InvocationResult) (scroll.Scroll, InvocationResult, error) {
	b, err := d.resolver.Resolve(step.Worker, step.Capability)
	if err != nil {
		return scroll.Scroll{}, InvocationResult{}, err
	}

	kwargs, err := resolveArgs(index, step, previous)
	if err != nil {
		return scroll.Scroll{}, InvocationResult{}, err
	}

	result, err := d.invokeBinding(ctx, b, kwargs)
	if err != nil {
		return scroll.Scroll{}, InvocationResult{}, err
	}

	s, err := d.wrapResult(b.Worker.Name, step.Capability, result)
	if err != nil {
		return scroll.Scroll{}, InvocationResult{}, err
	}
	return s, result, nil
}
