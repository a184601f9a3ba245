package ninja

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWorkerExists is returned when registering a worker whose name is taken
	ErrWorkerExists = errors.New("worker already registered")

	// ErrInvalidWorker is returned when a worker definition is incomplete
	ErrInvalidWorker = errors.New("invalid worker")

	// ErrInvalidContract is returned when a contract definition is incomplete
	ErrInvalidContract = errors.New("invalid contract")
)

// Worker is a named agent bound to an inference backend and a capability set
type Worker struct {
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Affinity     string   `json:"affinity"`
	Capabilities []string `json:"capabilities"`
	Backend      string   `json:"backend,omitempty"`
	Contract     string   `json:"contract,omitempty"`
	System       string   `json:"-"`
	Invocations  int64    `json:"invocations"`
}

// Validate checks the worker's required fields
func (w Worker) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWorker)
	}
	if strings.TrimSpace(w.Model) == "" {
		return fmt.Errorf("%w: %s: model is required", ErrInvalidWorker, w.Name)
	}
	seen := make(map[string]bool, len(w.Capabilities))
	for _, c := range w.Capabilities {
		if seen[c] {
			return fmt.Errorf("%w: %s: duplicate capability %s", ErrInvalidWorker, w.Name, c)
		}
		seen[c] = true
	}
	return nil
}

// HasCapability reports whether the worker lists capability.
func (w Worker) HasCapability(capability string) bool {
	for _, c := range w.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Contract is a template from which workers are summoned
type Contract struct {
	ID           string   `json:"id" yaml:"id" mapstructure:"id"`
	Name         string   `json:"name" yaml:"name" mapstructure:"name"`
	Model        string   `json:"model" yaml:"model" mapstructure:"model"`
	System       string   `json:"system" yaml:"system" mapstructure:"system"`
	Capabilities []string `json:"capabilities" yaml:"capabilities" mapstructure:"capabilities"`
	Affinity     string   `json:"affinity" yaml:"affinity" mapstructure:"affinity"`
	Backend      string   `json:"backend,omitempty" yaml:"backend" mapstructure:"backend"`
}

// Validate checks the contract's required fields
func (c Contract) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidContract)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidContract, c.ID)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: %s: model is required", ErrInvalidContract, c.ID)
	}
	if len(c.Capabilities) == 0 {
		return fmt.Errorf("%w: %s: at least one capability is required", ErrInvalidContract, c.ID)
	}
	return nil
}

// worker builds a worker definition named name from the contract.
func (c Contract) worker(name string) Worker {
	caps := make([]string, len(c.Capabilities))
	copy(caps, c.Capabilities)

	affinity := c.Affinity
	if affinity == "" {
		affinity = "neutral"
	}

	return Worker{
		Name:         name,
		Model:        c.Model,
		Affinity:     affinity,
		Capabilities: caps,
		Backend:      c.Backend,
		Contract:     c.ID,
		System:       c.System,
	}
}

// DefaultModel backs every built-in contract
const DefaultModel = "qwen2.5:1.5b"

// DefaultContracts returns the built-in summoning contracts.
func DefaultContracts() []Contract {
	return []Contract{
		{
			ID:           "parser",
			Name:         "Parser",
			Model:        DefaultModel,
			System:       "You are a precise parser. Output ONLY valid JSON. No explanations.",
			Capabilities: []string{"parse_invoice", "parse_contact"},
			Affinity:     "earth",
		},
		{
			ID:           "writer",
			Name:         "Writer",
			Model:        DefaultModel,
			System:       "You are a concise writer. Be brief. No fluff.",
			Capabilities: []string{"summarize", "email_draft", "rephrase"},
			Affinity:     "wind",
		},
		{
			ID:           "analyst",
			Name:         "Analyst",
			Model:        DefaultModel,
			System:       "You are a dialectical thinker. Analyze deeply but concisely.",
			Capabilities: []string{"dialectic", "critique"},
			Affinity:     "fire",
		},
		{
			ID:           "translator",
			Name:         "Translator",
			Model:        DefaultModel,
			System:       "You are a polyglot translator. Preserve meaning and tone.",
			Capabilities: []string{"translate", "rephrase"},
			Affinity:     "water",
		},
		{
			ID:           "calculator",
			Name:         "Calculator",
			Model:        DefaultModel,
			System:       "You are a precise calculator. Return only numbers.",
			Capabilities: []string{"calculate", "estimate"},
			Affinity:     "lightning",
		},
	}
}
