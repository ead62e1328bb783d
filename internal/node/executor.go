package node

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cristianadrielbraun/qrnode/internal/logging"
)

// ErrMissingOutputs is returned when a node yields fewer values than it declares.
var ErrMissingOutputs = errors.New("node: fewer results than declared outputs")

// ErrInvalidInput marks inputs rejected before the node runs.
var ErrInvalidInput = errors.New("node: invalid input")

// Output is one value bound to a declared output slot.
type Output struct {
	Type  string
	Name  string
	Value any
}

// Result is the outcome of one node execution.
type Result struct {
	ExecutionID string
	Node        string
	Outputs     []Output
	// Discarded holds values returned beyond the declared outputs. The host
	// has no slot for them, so they never reach downstream nodes.
	Discarded []any
	Duration  time.Duration
}

// Executor runs registered nodes with host-style argument handling.
type Executor struct {
	registry *Registry
}

// NewExecutor returns an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Registry exposes the registry the executor resolves against.
func (e *Executor) Registry() *Registry { return e.registry }

// Run resolves name, prepares its inputs and invokes the node. Node errors
// are returned wrapped with the node name and are not retried.
func (e *Executor) Run(ctx context.Context, name string, in Inputs) (*Result, error) {
	n, err := e.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	def := n.Definition()
	args, err := prepareInputs(def, in)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w: %w", name, ErrInvalidInput, err)
	}

	res := &Result{ExecutionID: uuid.NewString(), Node: name}
	fields := logging.Fields{"node": name, "execution_id": res.ExecutionID, "function": def.Function}
	logging.Debug(fields, "executing node")

	start := time.Now()
	values, err := n.Execute(ctx, args)
	res.Duration = time.Since(start)
	if err != nil {
		logging.ErrorWithTraceID(logging.Fields{"node": name, "execution_id": res.ExecutionID, "error": err.Error()}, "node execution failed")
		return nil, fmt.Errorf("node %s: %w", name, err)
	}

	outputs, discarded, err := bindOutputs(def, values)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", name, err)
	}
	res.Outputs = outputs
	res.Discarded = discarded
	if len(discarded) > 0 {
		logging.Warn(logging.Fields{
			"node":         name,
			"execution_id": res.ExecutionID,
			"declared":     len(def.ReturnTypes),
			"returned":     len(values),
		}, "node returned more values than declared outputs; surplus discarded")
	}
	logging.Debug(logging.Fields{"node": name, "execution_id": res.ExecutionID, "duration": res.Duration.String()}, "node executed")
	return res, nil
}

// prepareInputs copies the supplied values, fills defaults and type-checks
// every field. Unknown keys are rejected.
func prepareInputs(def Definition, in Inputs) (Inputs, error) {
	known := map[string]Field{}
	for _, f := range def.Input.Fields() {
		known[f.Name] = f
	}
	for k := range in {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("unknown input %q", k)
		}
	}

	args := make(Inputs, len(known))
	for _, f := range def.Input.Required {
		v, ok := in[f.Name]
		if !ok {
			if f.Default == nil {
				return nil, fmt.Errorf("required input %q missing", f.Name)
			}
			v = f.Default
		}
		v = coerce(f, v)
		if err := checkValue(f, v); err != nil {
			return nil, err
		}
		args[f.Name] = v
	}
	optional := append(append([]Field(nil), def.Input.Optional...), def.Input.Hidden...)
	for _, f := range optional {
		v, ok := in[f.Name]
		if !ok {
			if f.Default == nil {
				continue
			}
			v = f.Default
		}
		v = coerce(f, v)
		if err := checkValue(f, v); err != nil {
			return nil, err
		}
		args[f.Name] = v
	}
	return args, nil
}

// coerce converts integral float64 values, as produced by JSON decoding,
// for INT fields.
func coerce(f Field, v any) any {
	if f.Type != TypeInt {
		return v
	}
	if x, ok := v.(float64); ok && x == math.Trunc(x) && !math.IsInf(x, 0) {
		return int(x)
	}
	return v
}

func bindOutputs(def Definition, values []any) ([]Output, []any, error) {
	if len(values) < len(def.ReturnTypes) {
		return nil, nil, fmt.Errorf("%w: declared %d, got %d", ErrMissingOutputs, len(def.ReturnTypes), len(values))
	}
	outputs := make([]Output, len(def.ReturnTypes))
	for i, typ := range def.ReturnTypes {
		name := typ
		if i < len(def.ReturnNames) {
			name = def.ReturnNames[i]
		}
		outputs[i] = Output{Type: typ, Name: name, Value: values[i]}
	}
	var discarded []any
	if extra := values[len(def.ReturnTypes):]; len(extra) > 0 {
		discarded = append(discarded, extra...)
	}
	return outputs, discarded, nil
}
