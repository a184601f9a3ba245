package scroll

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
)

// Get returns the value at a gjson path inside the scroll data. Plain
// dotted paths index objects by key and arrays by position.
func Get(s Scroll, path string) (interface{}, bool) {
	raw, err := json.Marshal(s.Data)
	if err != nil {
		return nil, false
	}
	if path == "" {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, false
		}
		return v, true
	}

	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Graph indexes scrolls by hash so their provenance can be walked. Scrolls
// are only kept as long as the caller keeps the graph.
type Graph struct {
	nodes map[string]Scroll
	mu    sync.RWMutex
}

// NewGraph creates an empty lineage graph
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]Scroll)}
}

// Add indexes scrolls by their hash.
func (g *Graph) Add(scrolls ...Scroll) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range scrolls {
		g.nodes[s.Meta.Hash] = s
	}
}

// Get retrieves a scroll by hash.
func (g *Graph) Get(hash string) (Scroll, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.nodes[hash]
	return s, ok
}

// Len returns the number of indexed scrolls.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// TraceEntry is one ancestor in a lineage trace
type TraceEntry struct {
	Depth  int    `json:"depth"`
	Hash   string `json:"hash"`
	Key    string `json:"key"`
	Op     string `json:"op,omitempty"`
	Known  bool   `json:"known"`
	Scroll Scroll `json:"-"`
}

// Trace walks ancestors breadth-first from hash, up to depth levels. Parents
// that are not in the graph are reported with Known=false.
func (g *Graph) Trace(hash string, depth int) []TraceEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var entries []TraceEntry
	seen := map[string]bool{hash: true}
	frontier := []string{hash}

	for level := 0; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, h := range frontier {
			s, ok := g.nodes[h]
			entry := TraceEntry{Depth: level, Hash: h, Known: ok}
			if ok {
				entry.Key = s.Key
				entry.Op = s.Meta.Op
				entry.Scroll = s
				for _, p := range s.Meta.Prev {
					if !seen[p] {
						seen[p] = true
						next = append(next, p)
					}
				}
			}
			entries = append(entries, entry)
		}
		frontier = next
	}

	return entries
}

// Acyclic checks that no indexed scroll reaches its own hash through prev.
func (g *Graph) Acyclic() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))

	var visit func(h string) error
	visit = func(h string) error {
		switch state[h] {
		case visiting:
			return fmt.Errorf("lineage cycle through %s", h)
		case done:
			return nil
		}
		state[h] = visiting
		if s, ok := g.nodes[h]; ok {
			for _, p := range s.Meta.Prev {
				if p == h {
					return fmt.Errorf("scroll %s lists itself as parent", h)
				}
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		state[h] = done
		return nil
	}

	hashes := make([]string, 0, len(g.nodes))
	for h := range g.nodes {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	for _, h := range hashes {
		if err := visit(h); err != nil {
			return err
		}
	}
	return nil
}
