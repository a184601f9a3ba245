package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Pool holds the configured backends by name
type Pool struct {
	backends map[string]Backend
	fallback string
	mu       sync.RWMutex
}

// NewPool creates a pool. Workers without a backend use fallback.
func NewPool(fallback string) *Pool {
	return &Pool{
		backends: make(map[string]Backend),
		fallback: fallback,
	}
}

// Add registers a backend under name
func (p *Pool) Add(name string, b Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.backends[name] = b
}

// Get returns the backend for name and the name it resolved to. An empty
// name selects the fallback backend.
func (p *Pool) Get(name string) (Backend, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if name == "" {
		name = p.fallback
	}
	b, ok := p.backends[name]
	if !ok {
		return nil, name, fmt.Errorf("backend not configured: %s", name)
	}
	return b, name, nil
}

// Names returns the sorted backend names
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.backends))
	for name := range p.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
