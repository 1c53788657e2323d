// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dispatch maps function names carried by execution messages to the
// functions a tool implements.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"

	"github.com/Mission-KI/pruefplattform/internal/artifact"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "dispatch",
	})
)

// RunFunc computes a function. It returns the stored output nodes in the
// order of the function's declared outputs.
type RunFunc func(ctx context.Context, call *Call) ([]message.ArtifactNode, error)

// Function is a named tool function with its declared input and output
// slots. Messages must carry at least one node per declared slot; nodes
// past the declared slots are passed through untouched.
type Function struct {
	Name    string
	Inputs  []string
	Outputs []string
	Run     RunFunc
}

// Table holds the functions of a tool. It is read-only once built.
type Table struct {
	functions map[string]Function
}

// NewTable builds a table from fns. Function names must be unique.
func NewTable(fns ...Function) (*Table, error) {
	t := &Table{functions: make(map[string]Function, len(fns))}
	for _, fn := range fns {
		if fn.Name == "" {
			return nil, errors.New("function without name")
		}
		if fn.Run == nil {
			return nil, errors.Errorf("function %q has no implementation", fn.Name)
		}
		if _, ok := t.functions[fn.Name]; ok {
			return nil, errors.Errorf("function %q registered twice", fn.Name)
		}
		t.functions[fn.Name] = fn
	}
	return t, nil
}

// Lookup returns the function registered under the exact name.
func (t *Table) Lookup(name string) (Function, error) {
	fn, ok := t.functions[name]
	if !ok {
		return Function{}, errors.WithStack(&toolerror.FunctionNotFoundError{Func: name})
	}
	return fn, nil
}

// Names lists the registered functions in order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.functions))
	for name := range t.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call is the view of one invocation handed to a RunFunc.
type Call struct {
	// Logger carries the function and execution name.
	Logger *logrus.Entry

	fn       Function
	msg      message.ExecutionMessage
	resolver *artifact.Resolver
}

// Input returns the node bound to the declared input slot. It panics on an
// undeclared slot.
func (c *Call) Input(slot string) message.ArtifactNode {
	return c.msg.Input[slotIndex(c.fn.Name, c.fn.Inputs, slot)]
}

// Output returns the node bound to the declared output slot. It panics on an
// undeclared slot.
func (c *Call) Output(slot string) message.ArtifactNode {
	return c.msg.Output[slotIndex(c.fn.Name, c.fn.Outputs, slot)]
}

// Resolver returns the artifact resolver of the tool.
func (c *Call) Resolver() *artifact.Resolver {
	return c.resolver
}

// Message returns the request message.
func (c *Call) Message() message.ExecutionMessage {
	return c.msg
}

// Computed logs a computed result at debug level together with the input
// locations it was computed on.
func (c *Call) Computed(result interface{}) {
	if !c.Logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	uris := make([]string, 0, len(c.msg.Input))
	for _, n := range c.msg.Input {
		uris = append(uris, n.Location.URI)
	}
	c.Logger.Debugf("Computed result %v on input %s", result, strings.Join(uris, ", "))
}

func slotIndex(fn string, slots []string, slot string) int {
	for i, s := range slots {
		if s == slot {
			return i
		}
	}
	panic(fmt.Sprintf("function %q declares no slot %q", fn, slot))
}

// Dispatcher routes execution messages to the functions of a table.
type Dispatcher struct {
	table    *Table
	resolver *artifact.Resolver
}

// NewDispatcher returns a dispatcher over table whose functions do their
// artifact I/O through resolver.
func NewDispatcher(table *Table, resolver *artifact.Resolver) *Dispatcher {
	return &Dispatcher{table: table, resolver: resolver}
}

// Table returns the functions served by d.
func (d *Dispatcher) Table() *Table {
	return d.table
}

// Dispatch runs the function named by msg.Func. The function name and the
// slot arity are checked before any artifact is touched. The response keeps
// the request's function, inputs and meta; declared outputs are replaced by
// the stored nodes and extra outputs are echoed.
func (d *Dispatcher) Dispatch(ctx context.Context, msg message.ExecutionMessage) (resp message.ExecutionMessage, err error) {
	start := time.Now()
	defer func() {
		recordDispatch(ctx, msg.Func, err, time.Since(start))
	}()

	fn, err := d.table.Lookup(msg.Func)
	if err != nil {
		return message.ExecutionMessage{}, err
	}
	if err := checkArity(fn, "input", len(msg.Input)); err != nil {
		return message.ExecutionMessage{}, err
	}
	if err := checkArity(fn, "output", len(msg.Output)); err != nil {
		return message.ExecutionMessage{}, err
	}

	ctx, span := trace.StartSpan(ctx, "barebone/dispatch/"+fn.Name)
	defer span.End()

	call := &Call{
		Logger: logger.WithFields(logrus.Fields{
			"function":  fn.Name,
			"execution": msg.Meta.ExecutionName,
		}),
		fn:       fn,
		msg:      msg,
		resolver: d.resolver,
	}

	stored, err := fn.Run(ctx, call)
	if err != nil {
		span.SetStatus(trace.Status{Code: int32(toolerror.Code(err)), Message: err.Error()})
		return message.ExecutionMessage{}, err
	}
	if len(stored) != len(fn.Outputs) {
		return message.ExecutionMessage{}, errors.Errorf("function %q returned %d outputs, declared %d", fn.Name, len(stored), len(fn.Outputs))
	}

	output := make([]message.ArtifactNode, len(msg.Output))
	copy(output, msg.Output)
	copy(output, stored)

	return message.ExecutionMessage{
		Func:   msg.Func,
		Input:  msg.Input,
		Output: output,
		Meta:   msg.Meta,
	}, nil
}

func checkArity(fn Function, direction string, got int) error {
	want := len(fn.Inputs)
	if direction == "output" {
		want = len(fn.Outputs)
	}
	if got < want {
		return errors.WithStack(&toolerror.ArityMismatchError{Func: fn.Name, Direction: direction, Want: want, Got: got})
	}
	return nil
}

func recordDispatch(ctx context.Context, fn string, err error, elapsed time.Duration) {
	code := toolerror.Code(err)
	ctx, tagErr := tag.New(ctx, tag.Upsert(telemetry.KeyFunction, fn))
	if tagErr != nil {
		logger.WithError(tagErr).Debug("Cannot tag dispatch measurement.")
		return
	}
	telemetry.RecordUnitMeasurement(ctx, telemetry.DispatchCount, tag.Upsert(telemetry.KeyStatus, code.String()))
	telemetry.RecordLatency(ctx, telemetry.DispatchLatency, float64(elapsed)/float64(time.Millisecond))

	entry := logger.WithFields(logrus.Fields{
		"function": fn,
		"status":   code.String(),
		"elapsed":  elapsed,
	})
	if err != nil {
		entry.WithError(err).Warn("Function call failed.")
		return
	}
	entry.Debug("Function call completed.")
}
