package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/obiverse/dojo/internal/tracing"
	"github.com/obiverse/dojo/pkg/backend"
	"github.com/obiverse/dojo/pkg/errdefs"
	"github.com/obiverse/dojo/pkg/lane"
	"github.com/obiverse/dojo/pkg/ninja"
	"github.com/obiverse/dojo/pkg/scroll"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Defaults
const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxBatch = 64
	DefaultMaxChain = 16
)

// Resolver looks up worker bindings
type Resolver interface {
	Resolve(worker, capability string) (ninja.Binding, error)
	ResolveWorker(worker string) (ninja.Binding, error)
}

// Backends looks up a backend by name. An empty name selects the default
// backend; the resolved name is returned alongside it.
type Backends interface {
	Get(name string) (backend.Backend, string, error)
}

// Event describes one finished inference call
type Event struct {
	Worker     string
	Capability string
	Backend    string
	Elapsed    time.Duration
	Err        error
}

// Observer is notified after every inference call
type Observer interface {
	InvocationCompleted(event Event)
}

// SizeObserver is optionally implemented by observers that track batch and
// pipeline lengths
type SizeObserver interface {
	BatchStarted(size int)
	ChainStarted(steps int)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event Event)

// InvocationCompleted calls f(event)
func (f ObserverFunc) InvocationCompleted(event Event) {
	f(event)
}

// Dispatcher runs capabilities against workers. Every backend call goes
// through the backend's lane.
type Dispatcher struct {
	resolver    Resolver
	backends    Backends
	lanes       *lane.Queue
	engine      *scroll.Engine
	timeout     time.Duration
	maxBatch    int
	maxChain    int
	batchPolicy BatchPolicy
	observers   []Observer
	newID       func() string
	logger      zerolog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTimeout sets the per-call inference timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithObserver adds an invocation observer
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// WithEngine sets the scroll engine
func WithEngine(engine *scroll.Engine) Option {
	return func(d *Dispatcher) {
		d.engine = engine
	}
}

// WithLanes sets the lane queue shared by all backend calls
func WithLanes(lanes *lane.Queue) Option {
	return func(d *Dispatcher) {
		d.lanes = lanes
	}
}

// WithLimits sets the maximum batch and chain lengths
func WithLimits(maxBatch, maxChain int) Option {
	return func(d *Dispatcher) {
		if maxBatch > 0 {
			d.maxBatch = maxBatch
		}
		if maxChain > 0 {
			d.maxChain = maxChain
		}
	}
}

// WithBatchPolicy sets how batch failures are handled
func WithBatchPolicy(policy BatchPolicy) Option {
	return func(d *Dispatcher) {
		d.batchPolicy = policy
	}
}

// WithIDGenerator sets the chain id generator
func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		d.newID = newID
	}
}

// New creates a Dispatcher
func New(resolver Resolver, backends Backends, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:    resolver,
		backends:    backends,
		timeout:     DefaultTimeout,
		maxBatch:    DefaultMaxBatch,
		maxChain:    DefaultMaxChain,
		batchPolicy: PolicyIsolate,
		newID:       newChainID,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.engine == nil {
		d.engine = scroll.NewEngine()
	}
	if d.lanes == nil {
		d.lanes = lane.New(lane.WithLogger(d.logger))
	}
	return d
}

// Engine returns the scroll engine used for results
func (d *Dispatcher) Engine() *scroll.Engine {
	return d.engine
}

// Key returns the scroll key for a worker invocation
func Key(worker, op string) string {
	return fmt.Sprintf("/ninja/%s/%s", worker, op)
}

// Invoke renders capability for worker with kwargs, runs it and wraps the
// result.
func (d *Dispatcher) Invoke(ctx context.Context, worker, capability string, kwargs map[string]interface{}) (scroll.Scroll, error) {
	b, err := d.resolver.Resolve(worker, capability)
	if err != nil {
		return scroll.Scroll{}, err
	}

	result, err := d.invokeBinding(ctx, b, kwargs)
	if err != nil {
		return scroll.Scroll{}, err
	}
	return d.wrapResult(b.Worker.Name, capability, result)
}

// InvokeRaw sends prompt to worker without a capability template.
func (d *Dispatcher) InvokeRaw(ctx context.Context, worker, prompt string) (scroll.Scroll, error) {
	if strings.TrimSpace(prompt) == "" {
		return scroll.Scroll{}, errdefs.InvalidArgument("dispatch.raw", "prompt is required")
	}

	b, err := d.resolver.ResolveWorker(worker)
	if err != nil {
		return scroll.Scroll{}, err
	}

	result, err := d.generate(ctx, b, OpRaw, prompt)
	if err != nil {
		return scroll.Scroll{}, err
	}
	return d.wrapResult(b.Worker.Name, OpRaw, result)
}

// invokeBinding renders the capability and runs it.
func (d *Dispatcher) invokeBinding(ctx context.Context, b ninja.Binding, kwargs map[string]interface{}) (InvocationResult, error) {
	capability := b.Capability.ID()

	prompt, err := b.Capability.Render(kwargs)
	if err != nil {
		return InvocationResult{}, &errdefs.Error{
			Kind: errdefs.ErrInvalidArgument,
			Op:   "dispatch.invoke",
			Msg:  "failed to render " + capability,
			Err:  err,
		}
	}
	return d.generate(ctx, b, capability, prompt)
}

// generate runs one backend call on the backend's lane.
func (d *Dispatcher) generate(ctx context.Context, b ninja.Binding, op, prompt string) (InvocationResult, error) {
	be, laneName, err := d.backends.Get(b.Worker.Backend)
	if err != nil {
		return InvocationResult{}, errdefs.Execution("dispatch.invoke", err)
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"dojo.dispatch",
		"dispatch.invoke",
		attribute.String("worker", b.Worker.Name),
		attribute.String("capability", op),
		attribute.String("backend", laneName),
	)
	defer span.End()

	start := time.Now()
	value, err := d.lanes.Enqueue(ctx, laneName, func(ctx context.Context) (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		return be.Generate(callCtx, backend.Request{
			Model:  b.Worker.Model,
			System: b.Worker.System,
			Prompt: prompt,
		})
	})
	elapsed := time.Since(start)

	if err == nil {
		if resp, ok := value.(*backend.Response); !ok || resp == nil {
			err = fmt.Errorf("backend %s returned no response", laneName)
		}
	}
	if err != nil {
		err = errdefs.Execution("dispatch.invoke", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.notify(Event{Worker: b.Worker.Name, Capability: op, Backend: laneName, Elapsed: elapsed, Err: err})
		return InvocationResult{}, err
	}

	resp := value.(*backend.Response)
	b.RecordInvocation()
	d.notify(Event{Worker: b.Worker.Name, Capability: op, Backend: laneName, Elapsed: elapsed})

	logger := tracing.LoggerFromContext(ctx, d.logger)
	logger.Debug().
		Str("worker", b.Worker.Name).
		Str("capability", op).
		Str("backend", laneName).
		Dur("elapsed", elapsed).
		Msg("Invocation completed")

	return InvocationResult{
		Response:   resp.Text,
		Capability: op,
		Worker:     b.Worker.Name,
		Model:      b.Worker.Model,
		Elapsed:    elapsed.Seconds(),
	}, nil
}

func (d *Dispatcher) wrapResult(worker, op string, result InvocationResult) (scroll.Scroll, error) {
	s, err := d.engine.Wrap(Key(worker, op), result, SchemaJutsuResult, op, nil)
	if err != nil {
		return scroll.Scroll{}, fmt.Errorf("failed to wrap result: %w", err)
	}
	return s, nil
}

func (d *Dispatcher) notifyBatch(size int) {
	for _, o := range d.observers {
		if so, ok := o.(SizeObserver); ok {
			so.BatchStarted(size)
		}
	}
}

func (d *Dispatcher) notifyChain(steps int) {
	for _, o := range d.observers {
		if so, ok := o.(SizeObserver); ok {
			so.ChainStarted(steps)
		}
	}
}

func (d *Dispatcher) notify(event Event) {
	for _, o := range d.observers {
		o.InvocationCompleted(event)
	}
}
