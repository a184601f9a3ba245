package scroll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Meta holds the lineage metadata of a scroll
type Meta struct {
	Schema    string   `json:"schema"`
	Version   int      `json:"version"`
	Hash      string   `json:"hash"`
	Time      int64    `json:"time"` // unix milliseconds
	Prev      []string `json:"prev,omitempty"`
	Op        string   `json:"op,omitempty"`
	Influence *float64 `json:"influence,omitempty"`
}

// Scroll is an immutable, content-addressed result envelope
type Scroll struct {
	Key  string      `json:"key"`
	Data interface{} `json:"data"`
	Meta Meta        `json:"meta"`
}

// Parents returns a copy of the parent hashes.
func (s Scroll) Parents() []string {
	if len(s.Meta.Prev) == 0 {
		return nil
	}
	prev := make([]string, len(s.Meta.Prev))
	copy(prev, s.Meta.Prev)
	return prev
}

// CreatedAt returns the creation time.
func (s Scroll) CreatedAt() time.Time {
	return time.UnixMilli(s.Meta.Time)
}

// IsDerived reports whether the scroll has at least one parent.
func (s Scroll) IsDerived() bool {
	return len(s.Meta.Prev) > 0
}

// Clock returns the current time
type Clock func() time.Time

// Engine creates scrolls and links them to their parents
type Engine struct {
	now Clock
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock overrides the time source.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.now = clock
	}
}

// NewEngine creates a new lineage engine
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type wrapOptions struct {
	influence *float64
}

// WrapOption configures a single Wrap call
type WrapOption func(*wrapOptions)

// WithInfluence records how much the parents contributed to the new scroll.
func WithInfluence(weight float64) WrapOption {
	return func(o *wrapOptions) {
		w := weight
		o.influence = &w
	}
}

// Wrap builds a new scroll over data. The version is one more than the
// highest parent version (0 without parents) and the hash covers every
// field except the hash itself, including the creation time.
func (e *Engine) Wrap(key string, data interface{}, schema, op string, parents []Scroll, opts ...WrapOption) (Scroll, error) {
	var o wrapOptions
	for _, opt := range opts {
		opt(&o)
	}

	canonical, err := canonicalJSON(data)
	if err != nil {
		return Scroll{}, fmt.Errorf("failed to encode scroll data: %w", err)
	}

	meta := Meta{
		Schema:    schema,
		Version:   nextVersion(parents),
		Time:      e.now().UnixMilli(),
		Op:        op,
		Influence: o.influence,
	}
	if len(parents) > 0 {
		meta.Prev = make([]string, len(parents))
		for i, p := range parents {
			meta.Prev[i] = p.Meta.Hash
		}
	}
	meta.Hash = digest(key, canonical, meta)

	return Scroll{Key: key, Data: data, Meta: meta}, nil
}

// Derive creates a child of parent on the same lineage line.
func (e *Engine) Derive(parent Scroll, data interface{}, op string, opts ...WrapOption) (Scroll, error) {
	return e.Wrap(parent.Key, data, parent.Meta.Schema, op, []Scroll{parent}, opts...)
}

// Transform derives a child whose data is fn applied to the parent's data.
func (e *Engine) Transform(parent Scroll, op string, fn func(interface{}) (interface{}, error)) (Scroll, error) {
	data, err := fn(parent.Data)
	if err != nil {
		return Scroll{}, fmt.Errorf("transform %s failed: %w", op, err)
	}
	return e.Derive(parent, data, op)
}

// Extract derives a child holding the value at a dotted path of the parent's data.
func (e *Engine) Extract(parent Scroll, path string) (Scroll, error) {
	value, ok := Get(parent, path)
	if !ok {
		return Scroll{}, fmt.Errorf("path %q not found in scroll %s", path, parent.Key)
	}
	return e.Derive(parent, value, "get:"+path)
}

// Verify recomputes the hash of s and reports a mismatch.
func Verify(s Scroll) error {
	canonical, err := canonicalJSON(s.Data)
	if err != nil {
		return fmt.Errorf("failed to encode scroll data: %w", err)
	}
	if want := digest(s.Key, canonical, s.Meta); want != s.Meta.Hash {
		return fmt.Errorf("hash mismatch for %s: have %s, computed %s", s.Key, s.Meta.Hash, want)
	}
	return nil
}

func nextVersion(parents []Scroll) int {
	if len(parents) == 0 {
		return 0
	}
	max := parents[0].Meta.Version
	for _, p := range parents[1:] {
		if p.Meta.Version > max {
			max = p.Meta.Version
		}
	}
	return max + 1
}

// canonicalJSON encodes v so that structs and the maps decoded from them
// produce the same bytes.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
