package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/obiverse/dojo/pkg/errdefs"
)

// PreviousToken is the wire form of a PreviousOutput argument
const PreviousToken = "{previous}"

// Arg is a pipeline step argument: either a Literal or PreviousOutput
type Arg interface {
	isArg()
}

// Literal is a fixed argument value
type Literal struct {
	Value interface{}
}

// PreviousOutput is replaced by the previous step's response
type PreviousOutput struct{}

func (Literal) isArg()        {}
func (PreviousOutput) isArg() {}

// MarshalJSON encodes the literal value
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Value)
}

// MarshalJSON encodes the previous-output token
func (PreviousOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(PreviousToken)
}

// Step is one stage of a pipeline
type Step struct {
	Worker     string         `json:"ninja"`
	Capability string         `json:"jutsu"`
	Args       map[string]Arg `json:"kwargs"`
}

// UnmarshalJSON decodes a step from its wire form
func (s *Step) UnmarshalJSON(data []byte) error {
	var wire struct {
		Worker     string                     `json:"ninja"`
		Capability string                     `json:"jutsu"`
		Args       map[string]json.RawMessage `json:"kwargs"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	args, err := DecodeArgs(wire.Args)
	if err != nil {
		return err
	}
	s.Worker = wire.Worker
	s.Capability = wire.Capability
	s.Args = args
	return nil
}

// DecodeArgs turns raw keyword arguments into typed pipeline arguments.
// Only the exact string "{previous}" becomes PreviousOutput. A string that
// contains the token anywhere else is rejected.
func DecodeArgs(raw map[string]json.RawMessage) (map[string]Arg, error) {
	args := make(map[string]Arg, len(raw))
	for name, msg := range raw {
		arg, err := DecodeArg(msg)
		if err != nil {
			return nil, errdefs.InvalidArgument("dispatch.decode", "argument %s: %v", name, err)
		}
		args[name] = arg
	}
	return args, nil
}

// DecodeArg decodes a single argument value
func DecodeArg(msg json.RawMessage) (Arg, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode argument: %w", err)
	}
	return ArgFromValue(v)
}

// ArgFromValue classifies an already-decoded value
func ArgFromValue(v interface{}) (Arg, error) {
	if s, ok := v.(string); ok {
		if s == PreviousToken {
			return PreviousOutput{}, nil
		}
		if strings.Contains(s, PreviousToken) {
			return nil, fmt.Errorf("%q embeds %s; use the bare token", s, PreviousToken)
		}
	}
	return Literal{Value: v}, nil
}

// resolveArgs substitutes PreviousOutput arguments for step index.
func resolveArgs(index int, step Step, previous *InvocationResult) (map[string]interface{}, error) {
	kwargs := make(map[string]interface{}, len(step.Args))
	for name, arg := range step.Args {
		switch a := arg.(type) {
		case Literal:
			kwargs[name] = a.Value
		case PreviousOutput:
			if index == 0 || previous == nil {
				return nil, errdefs.Substitution("dispatch.chain", "step 0 argument %s references previous output", name)
			}
			if strings.TrimSpace(previous.Response) == "" {
				return nil, errdefs.Substitution("dispatch.chain", "step %d argument %s: previous step returned an empty response", index, name)
			}
			kwargs[name] = previous.Response
		default:
			return nil, errdefs.InvalidArgument("dispatch.chain", "argument %s has unsupported type %T", name, arg)
		}
	}
	return kwargs, nil
}
