package ninja

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/obiverse/dojo/pkg/errdefs"
	"github.com/obiverse/dojo/pkg/jutsu"
	"github.com/rs/zerolog"
)

// entry is a registered worker with its capability table
type entry struct {
	worker      Worker
	bindings    map[string]*jutsu.Capability
	invocations atomic.Int64
}

// Binding is a resolved (worker, capability) pair. Capability is nil for raw
// invocations.
type Binding struct {
	Worker     Worker
	Capability *jutsu.Capability
	e          *entry
}

// RecordInvocation increments the worker's invocation counter.
func (b Binding) RecordInvocation() {
	if b.e != nil {
		b.e.invocations.Add(1)
	}
}

// Registry manages workers, capabilities and contracts. Worker names are
// unique under case folding and lookups ignore case.
type Registry struct {
	workers      map[string]*entry
	capabilities map[string]*jutsu.Capability
	contracts    map[string]Contract
	mu           sync.RWMutex
	logger       zerolog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		workers:      make(map[string]*entry),
		capabilities: make(map[string]*jutsu.Capability),
		contracts:    make(map[string]Contract),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry creates a registry with the built-in library and one
// worker summoned from every built-in contract.
func NewDefaultRegistry(opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.Populate(jutsu.DefaultLibrary(), DefaultContracts()); err != nil {
		return nil, err
	}
	return r, nil
}

// Populate adds capabilities and contracts and summons one worker per
// contract, in contract order.
func (r *Registry) Populate(caps []*jutsu.Capability, contracts []Contract) error {
	for _, c := range caps {
		r.AddCapability(c)
	}
	for _, c := range contracts {
		if err := r.AddContract(c); err != nil {
			return err
		}
	}
	for _, c := range contracts {
		if _, err := r.Summon(c.ID); err != nil {
			return err
		}
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddCapability adds or replaces a capability. Workers registered earlier
// keep the definition they were bound to.
func (r *Registry) AddCapability(c *jutsu.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.capabilities[c.ID()] = c
}

// AddContract adds or replaces a contract. Every capability it lists must
// already be in the catalog.
func (r *Registry) AddContract(c Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCapabilitiesLocked(c.ID, c.Capabilities); err != nil {
		return err
	}
	r.contracts[c.ID] = c
	return nil
}

// ReplaceCatalog swaps the capability and contract catalogs in one step.
// Nothing changes if any contract references an unknown capability.
func (r *Registry) ReplaceCatalog(caps []*jutsu.Capability, contracts []Contract) error {
	capMap := make(map[string]*jutsu.Capability, len(caps))
	for _, c := range caps {
		capMap[c.ID()] = c
	}

	contractMap := make(map[string]Contract, len(contracts))
	for _, c := range contracts {
		if err := c.Validate(); err != nil {
			return err
		}
		for _, name := range c.Capabilities {
			if _, ok := capMap[name]; !ok {
				return errdefs.NotFound("registry.catalog", "contract %s references unknown jutsu: %s", c.ID, name)
			}
		}
		contractMap[c.ID] = c
	}

	r.mu.Lock()
	r.capabilities = capMap
	r.contracts = contractMap
	r.mu.Unlock()

	r.logger.Info().
		Int("capabilities", len(capMap)).
		Int("contracts", len(contractMap)).
		Msg("Catalog replaced")
	return nil
}

func (r *Registry) checkCapabilitiesLocked(owner string, names []string) error {
	for _, name := range names {
		if _, ok := r.capabilities[name]; !ok {
			return errdefs.NotFound("registry.register", "%s references unknown jutsu: %s", owner, name)
		}
	}
	return nil
}

// Register adds a worker and binds each of its capabilities to the catalog.
// It fails if a capability is unknown or the name is taken.
func (r *Registry) Register(w Worker) (Worker, error) {
	if err := w.Validate(); err != nil {
		return Worker{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(w.Name)
	if _, exists := r.workers[key]; exists {
		return Worker{}, fmt.Errorf("%w: %s", ErrWorkerExists, w.Name)
	}
	return r.registerLocked(key, w)
}

func (r *Registry) registerLocked(key string, w Worker) (Worker, error) {
	if err := r.checkCapabilitiesLocked(w.Name, w.Capabilities); err != nil {
		return Worker{}, err
	}

	e := &entry{
		worker:   w,
		bindings: make(map[string]*jutsu.Capability, len(w.Capabilities)),
	}
	e.worker.Invocations = 0
	for _, name := range w.Capabilities {
		e.bindings[name] = r.capabilities[name]
	}
	r.workers[key] = e

	r.logger.Debug().
		Str("worker", w.Name).
		Strs("capabilities", w.Capabilities).
		Msg("Worker registered")
	return e.worker, nil
}

// Summon instantiates a worker from a contract. When the contract's worker
// name is taken the new worker gets the first free numeric suffix, so
// summoning "parser" twice yields "Parser" and "Parser-2".
func (r *Registry) Summon(contractID string) (Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contracts[contractID]
	if !ok {
		c, ok = r.contracts[normalize(contractID)]
	}
	if !ok {
		return Worker{}, errdefs.NotFound("registry.summon", "unknown contract: %s", contractID)
	}

	name := c.Name
	for n := 2; ; n++ {
		if _, taken := r.workers[normalize(name)]; !taken {
			break
		}
		name = fmt.Sprintf("%s-%d", c.Name, n)
	}

	w, err := r.registerLocked(normalize(name), c.worker(name))
	if err != nil {
		return Worker{}, err
	}

	r.logger.Info().
		Str("contract", c.ID).
		Str("worker", w.Name).
		Msg("Worker summoned")
	return w, nil
}

// ResolveWorker looks up a worker for raw invocation.
func (r *Registry) ResolveWorker(name string) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.workers[normalize(name)]
	if !ok {
		return Binding{}, errdefs.NotFound("registry.resolve", "unknown ninja: %s", name)
	}
	return Binding{Worker: e.snapshot(), e: e}, nil
}

// Resolve looks up the capability table entry for (worker, capability).
func (r *Registry) Resolve(workerName, capability string) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.workers[normalize(workerName)]
	if !ok {
		return Binding{}, errdefs.NotFound("registry.resolve", "unknown ninja: %s", workerName)
	}

	c, bound := e.bindings[capability]
	if !bound {
		if _, known := r.capabilities[capability]; known {
			return Binding{}, errdefs.CapabilityMismatch("registry.resolve", "ninja %s does not know jutsu %s", e.worker.Name, capability)
		}
		return Binding{}, errdefs.NotFound("registry.resolve", "unknown jutsu: %s", capability)
	}

	return Binding{Worker: e.snapshot(), Capability: c, e: e}, nil
}

func (e *entry) snapshot() Worker {
	w := e.worker
	w.Capabilities = make([]string, len(e.worker.Capabilities))
	copy(w.Capabilities, e.worker.Capabilities)
	w.Invocations = e.invocations.Load()
	return w
}

// Worker returns a worker by name.
func (r *Registry) Worker(name string) (Worker, error) {
	b, err := r.ResolveWorker(name)
	if err != nil {
		return Worker{}, err
	}
	return b.Worker, nil
}

// Workers returns all workers keyed by lowercase name.
func (r *Registry) Workers() map[string]Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make(map[string]Worker, len(r.workers))
	for key, e := range r.workers {
		workers[key] = e.snapshot()
	}
	return workers
}

// WorkerNames returns the sorted lowercase worker names.
func (r *Registry) WorkerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers))
	for key := range r.workers {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the capability catalog.
func (r *Registry) Capabilities() map[string]*jutsu.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*jutsu.Capability, len(r.capabilities))
	for id, c := range r.capabilities {
		caps[id] = c
	}
	return caps
}

// Capability returns one capability by id.
func (r *Registry) Capability(id string) (*jutsu.Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.capabilities[id]
	if !ok {
		return nil, errdefs.NotFound("registry.capability", "unknown jutsu: %s", id)
	}
	return c, nil
}

// Contracts returns the sorted contract ids.
func (r *Registry) Contracts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.contracts))
	for id := range r.contracts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contract returns one contract by id.
func (r *Registry) Contract(id string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[id]
	return c, ok
}

// Count returns the number of registered workers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
