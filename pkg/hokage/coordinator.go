package hokage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/obiverse/dojo/pkg/dispatch"
	"github.com/obiverse/dojo/pkg/jutsu"
	"github.com/obiverse/dojo/pkg/lane"
	"github.com/obiverse/dojo/pkg/ninja"
	"github.com/obiverse/dojo/pkg/scroll"
	"github.com/rs/zerolog"
)

// DefaultName is the coordinator name reported by Status
const DefaultName = "Hokage"

// StatusOperational is the only status a running coordinator reports
const StatusOperational = "operational"

// Status is the coordinator summary
type Status struct {
	Status          string   `json:"status"`
	CoordinatorName string   `json:"coordinatorName"`
	Workers         []string `json:"workers"`
	CompletedCount  int64    `json:"completedCount"`
}

// SummonResult describes a newly summoned worker
type SummonResult struct {
	Summoned     string   `json:"summoned"`
	Capabilities []string `json:"jutsu"`
}

// SummonObserver is optionally implemented by observers that count summons
type SummonObserver interface {
	WorkerSummoned(contract string)
}

// Config holds coordinator configuration
type Config struct {
	Name        string
	Registry    *ninja.Registry
	Backends    dispatch.Backends
	Lanes       *lane.Queue
	Engine      *scroll.Engine
	Timeout     time.Duration
	MaxBatch    int
	MaxChain    int
	BatchPolicy dispatch.BatchPolicy
	Observers   []dispatch.Observer
	Logger      zerolog.Logger
}

// Coordinator is the single entry point for callers. It resolves workers
// through the registry and runs them through the dispatcher.
type Coordinator struct {
	name       string
	registry   *ninja.Registry
	dispatcher *dispatch.Dispatcher
	completed  atomic.Int64
	summoners  []SummonObserver
	startedAt  time.Time
	logger     zerolog.Logger
}

// New creates a coordinator
func New(cfg Config) (*Coordinator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Backends == nil {
		return nil, fmt.Errorf("backends are required")
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.BatchPolicy == "" {
		cfg.BatchPolicy = dispatch.PolicyIsolate
	}

	c := &Coordinator{
		name:      cfg.Name,
		registry:  cfg.Registry,
		startedAt: time.Now(),
		logger:    cfg.Logger,
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(cfg.Logger),
		dispatch.WithTimeout(cfg.Timeout),
		dispatch.WithLimits(cfg.MaxBatch, cfg.MaxChain),
		dispatch.WithBatchPolicy(cfg.BatchPolicy),
		dispatch.WithObserver(dispatch.ObserverFunc(c.recordCompletion)),
	}
	for _, o := range cfg.Observers {
		opts = append(opts, dispatch.WithObserver(o))
		if so, ok := o.(SummonObserver); ok {
			c.summoners = append(c.summoners, so)
		}
	}
	if cfg.Lanes != nil {
		opts = append(opts, dispatch.WithLanes(cfg.Lanes))
	}
	if cfg.Engine != nil {
		opts = append(opts, dispatch.WithEngine(cfg.Engine))
	}
	c.dispatcher = dispatch.New(cfg.Registry, cfg.Backends, opts...)

	return c, nil
}

func (c *Coordinator) recordCompletion(event dispatch.Event) {
	if event.Err == nil {
		c.completed.Add(1)
	}
}

// Name returns the coordinator name
func (c *Coordinator) Name() string {
	return c.name
}

// Uptime returns how long the coordinator has been running
func (c *Coordinator) Uptime() time.Duration {
	return time.Since(c.startedAt)
}

// CompletedCount returns the number of successful inference calls
func (c *Coordinator) CompletedCount() int64 {
	return c.completed.Load()
}

// Registry returns the worker registry
func (c *Coordinator) Registry() *ninja.Registry {
	return c.registry
}

// Status returns the coordinator summary
func (c *Coordinator) Status() Status {
	return Status{
		Status:          StatusOperational,
		CoordinatorName: c.name,
		Workers:         c.registry.WorkerNames(),
		CompletedCount:  c.completed.Load(),
	}
}

// Workers returns every worker keyed by lowercase name
func (c *Coordinator) Workers() map[string]ninja.Worker {
	return c.registry.Workers()
}

// Capabilities returns the catalog keyed by capability name
func (c *Coordinator) Capabilities() map[string]jutsu.Info {
	caps := c.registry.Capabilities()
	info := make(map[string]jutsu.Info, len(caps))
	for name, capability := range caps {
		info[name] = capability.Info()
	}
	return info
}

// Contracts returns the sorted contract names
func (c *Coordinator) Contracts() []string {
	return c.registry.Contracts()
}

// Summon instantiates a worker from a contract
func (c *Coordinator) Summon(contract string) (SummonResult, error) {
	w, err := c.registry.Summon(contract)
	if err != nil {
		return SummonResult{}, err
	}
	for _, so := range c.summoners {
		so.WorkerSummoned(w.Contract)
	}
	return SummonResult{Summoned: w.Name, Capabilities: w.Capabilities}, nil
}

// Dispatch runs one capability
func (c *Coordinator) Dispatch(ctx context.Context, worker, capability string, kwargs map[string]interface{}) (scroll.Scroll, error) {
	return c.dispatcher.Invoke(ctx, worker, capability, kwargs)
}

// Raw sends a prompt to a worker without a capability template
func (c *Coordinator) Raw(ctx context.Context, worker, prompt string) (scroll.Scroll, error) {
	return c.dispatcher.InvokeRaw(ctx, worker, prompt)
}

// ShadowCloneArmy runs a capability once per task in parallel. Results keep
// the order of tasks.
func (c *Coordinator) ShadowCloneArmy(ctx context.Context, worker, capability string, tasks []map[string]interface{}) ([]scroll.Scroll, error) {
	c.logger.Debug().
		Str("worker", worker).
		Str("capability", capability).
		Int("tasks", len(tasks)).
		Msg("Dispatching shadow clones")
	return c.dispatcher.InvokeBatch(ctx, worker, capability, tasks)
}

// Combination runs a pipeline of steps
func (c *Coordinator) Combination(ctx context.Context, steps []dispatch.Step) (scroll.Scroll, error) {
	c.logger.Debug().Int("steps", len(steps)).Msg("Running combination")
	return c.dispatcher.InvokeChain(ctx, steps)
}
