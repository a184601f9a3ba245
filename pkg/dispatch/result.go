package dispatch

import (
	"fmt"

	"github.com/obiverse/dojo/pkg/scroll"
)

// Payload schemas
const (
	SchemaJutsuResult       = "dojo/jutsu_result"
	SchemaCombinationResult = "dojo/combination_result"
	SchemaError             = "dojo/error"
)

// OpRaw is the operation name of prompts sent without a capability
const OpRaw = "raw"

// OpCombination is the operation name of a finished pipeline
const OpCombination = "combination"

// InvocationResult is the payload of a successful inference call
type InvocationResult struct {
	Response   string  `json:"response"`
	Capability string  `json:"capability"`
	Worker     string  `json:"worker"`
	Model      string  `json:"model"`
	Elapsed    float64 `json:"elapsed"`
}

// ChainResult is the payload of a finished pipeline. It carries the last
// step's result fields alongside every intermediate scroll.
type ChainResult struct {
	InvocationResult
	Steps   int             `json:"steps"`
	Results []scroll.Scroll `json:"results"`
}

// ErrorResult is the payload of an isolated batch failure
type ErrorResult struct {
	Error string                 `json:"error"`
	Kind  string                 `json:"kind"`
	Index int                    `json:"index"`
	Task  map[string]interface{} `json:"task"`
}

// StepError reports the pipeline step that failed
type StepError struct {
	Index      int
	Worker     string
	Capability string
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s/%s): %v", e.Index, e.Worker, e.Capability, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// BatchError reports the batch element that aborted the batch
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch element %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
