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

package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Mission-KI/pruefplattform/internal/artifact"
	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/filesystem"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

const payloadIDOfFourtyTwo = "sha256:73475cb40a568e8da8a045ced110137e159f890ac4da883b6b17dc651b3a8049"

// countingFS wraps a backend and counts every operation.
type countingFS struct {
	filesystem.FileSystem
	ops int64
}

func (c *countingFS) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	atomic.AddInt64(&c.ops, 1)
	return c.FileSystem.Open(ctx, u)
}

func (c *countingFS) Create(ctx context.Context, u *url.URL) (io.WriteCloser, error) {
	atomic.AddInt64(&c.ops, 1)
	return c.FileSystem.Create(ctx, u)
}

func (c *countingFS) MkdirAll(ctx context.Context, u *url.URL) error {
	atomic.AddInt64(&c.ops, 1)
	return c.FileSystem.MkdirAll(ctx, u)
}

func constant(name string, value interface{}) Function {
	return Function{
		Name:    name,
		Inputs:  []string{"input"},
		Outputs: []string{"result"},
		Run: func(ctx context.Context, call *Call) ([]message.ArtifactNode, error) {
			call.Computed(value)
			stored, err := call.Resolver().Store(ctx, value, call.Output("result"))
			if err != nil {
				return nil, err
			}
			return []message.ArtifactNode{stored}, nil
		},
	}
}

func newTestDispatcher(t *testing.T, fns ...Function) (*Dispatcher, *countingFS) {
	table, err := NewTable(fns...)
	require.NoError(t, err)

	counting := &countingFS{FileSystem: filesystem.NewMem()}
	fss := filesystem.NewRegistry()
	fss.Register("mem", counting)
	return NewDispatcher(table, artifact.NewResolver(codec.NewDefaultRegistry(nil), fss)), counting
}

func TestNewTable(t *testing.T) {
	table, err := NewTable(constant("fourtytwo_wrapper", 42), constant("fourtyone_wrapper", 41))
	require.NoError(t, err)
	assert.Equal(t, []string{"fourtyone_wrapper", "fourtytwo_wrapper"}, table.Names())

	_, err = NewTable(constant("a", 1), constant("a", 2))
	assert.Error(t, err)

	_, err = NewTable(Function{Name: "noop"})
	assert.Error(t, err)

	_, err = NewTable(Function{Run: constant("x", 1).Run})
	assert.Error(t, err)
}

func TestFunctionNotFound(t *testing.T) {
	require := require.New(t)
	d, counting := newTestDispatcher(t, constant("fourtytwo_wrapper", 42))

	_, err := d.Dispatch(context.Background(), message.ExecutionMessage{
		Func:   "nonexistent",
		Input:  []message.ArtifactNode{message.NewNode("in", "mem:///in.json")},
		Output: []message.ArtifactNode{message.NewNode("out", "mem:///out.json")},
	})
	require.Error(err)

	var notFound *toolerror.FunctionNotFoundError
	require.True(errors.As(err, &notFound))
	require.Equal("nonexistent", notFound.Func)
	require.Zero(atomic.LoadInt64(&counting.ops))
}

func TestArityMismatch(t *testing.T) {
	testCases := []struct {
		name      string
		input     int
		output    int
		direction string
	}{
		{"no input", 0, 1, "input"},
		{"no output", 1, 0, "output"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require := require.New(t)
			d, counting := newTestDispatcher(t, constant("fourtytwo_wrapper", 42))

			msg := message.ExecutionMessage{Func: "fourtytwo_wrapper"}
			for i := 0; i < tc.input; i++ {
				msg.Input = append(msg.Input, message.NewNode("in", "mem:///in.json"))
			}
			for i := 0; i < tc.output; i++ {
				msg.Output = append(msg.Output, message.NewNode("out", "mem:///out.json"))
			}

			_, err := d.Dispatch(context.Background(), msg)
			var arity *toolerror.ArityMismatchError
			require.True(errors.As(err, &arity))
			require.Equal(tc.direction, arity.Direction)
			require.Equal(1, arity.Want)
			require.Equal(0, arity.Got)
			require.Zero(atomic.LoadInt64(&counting.ops))
		})
	}
}

func TestFourtyTwo(t *testing.T) {
	require := require.New(t)
	d, _ := newTestDispatcher(t, constant("fourtytwo_wrapper", 42))

	out := filepath.Join(t.TempDir(), "results", "result.json")
	req := message.ExecutionMessage{
		Func:   "fourtytwo_wrapper",
		Input:  []message.ArtifactNode{message.NewNode("test_input", "")},
		Output: []message.ArtifactNode{message.NewNode("test_result", out)},
		Meta:   message.Meta{ExecutionName: "e2e"},
	}

	resp, err := d.Dispatch(context.Background(), req)
	require.NoError(err)
	require.Equal(req.Func, resp.Func)
	require.Equal(req.Input, resp.Input)
	require.Equal(req.Meta, resp.Meta)
	require.Len(resp.Output, 1)
	require.Equal("test_result", resp.Output[0].Name)
	require.Equal(out, resp.Output[0].Location.URI)
	require.Equal(payloadIDOfFourtyTwo, resp.Output[0].PayloadID)

	payload, err := os.ReadFile(out)
	require.NoError(err)
	require.Equal("42", string(payload))
}

func TestExtraNodesEchoed(t *testing.T) {
	require := require.New(t)
	d, _ := newTestDispatcher(t, constant("fourtyone_wrapper", 41))

	extra := message.ArtifactNode{Name: "log", Location: message.Location{URI: "mem:///log.txt"}, PayloadID: "kept"}
	req := message.ExecutionMessage{
		Func: "fourtyone_wrapper",
		Input: []message.ArtifactNode{
			message.NewNode("in", "mem:///in.json"),
			message.NewNode("unused", "mem:///unused.json"),
		},
		Output: []message.ArtifactNode{message.NewNode("out", "mem:///out.json"), extra},
	}

	resp, err := d.Dispatch(context.Background(), req)
	require.NoError(err)
	require.Equal(req.Input, resp.Input)
	require.Len(resp.Output, 2)
	require.NotEmpty(resp.Output[0].PayloadID)
	require.Equal(extra, resp.Output[1])
}

func TestRunErrorPropagates(t *testing.T) {
	d, _ := newTestDispatcher(t, Function{
		Name:    "reads",
		Inputs:  []string{"data"},
		Outputs: []string{"result"},
		Run: func(ctx context.Context, call *Call) ([]message.ArtifactNode, error) {
			_, err := call.Resolver().LoadDict(ctx, call.Input("data"))
			return nil, err
		},
	})

	_, err := d.Dispatch(context.Background(), message.ExecutionMessage{
		Func:   "reads",
		Input:  []message.ArtifactNode{message.NewNode("data", "mem:///missing.json")},
		Output: []message.ArtifactNode{message.NewNode("result", "mem:///result.json")},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWrongOutputCount(t *testing.T) {
	d, _ := newTestDispatcher(t, Function{
		Name:    "silent",
		Inputs:  nil,
		Outputs: []string{"result"},
		Run: func(context.Context, *Call) ([]message.ArtifactNode, error) {
			return nil, nil
		},
	})

	_, err := d.Dispatch(context.Background(), message.ExecutionMessage{
		Func:   "silent",
		Output: []message.ArtifactNode{message.NewNode("result", "mem:///result.json")},
	})
	require.Error(t, err)
}

func TestUndeclaredSlotPanics(t *testing.T) {
	call := &Call{fn: constant("fourtytwo_wrapper", 42)}
	require.Panics(t, func() { call.Input("missing") })
	require.Panics(t, func() { call.Output("missing") })
}

func TestConcurrentDispatch(t *testing.T) {
	d, _ := newTestDispatcher(t, constant("fourtytwo_wrapper", 42))
	dir := t.TempDir()

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		out := filepath.Join(dir, fmt.Sprintf("run%d", i), "result.json")
		g.Go(func() error {
			resp, err := d.Dispatch(context.Background(), message.ExecutionMessage{
				Func:   "fourtytwo_wrapper",
				Input:  []message.ArtifactNode{message.NewNode("in", "")},
				Output: []message.ArtifactNode{message.NewNode("out", out)},
			})
			if err != nil {
				return err
			}
			if resp.Output[0].PayloadID != payloadIDOfFourtyTwo {
				return errors.Errorf("unexpected payload id %q for %s", resp.Output[0].PayloadID, out)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < 16; i++ {
		payload, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("run%d", i), "result.json"))
		require.NoError(t, err)
		require.Equal(t, "42", string(payload))
	}
}
