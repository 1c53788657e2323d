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

// Package mocktool is a tool whose functions store constants. It exercises
// the whole dispatch path without any computation.
package mocktool

import (
	"context"

	"github.com/Mission-KI/pruefplattform/internal/appmain"
	"github.com/Mission-KI/pruefplattform/internal/dispatch"
	"github.com/Mission-KI/pruefplattform/internal/harness"
	"github.com/Mission-KI/pruefplattform/internal/message"
)

// BindService binds the mock functions to the tool server.
func BindService(p *appmain.Params, b *appmain.Bindings) error {
	return harness.BindService(&harness.Settings{Functions: Functions()})(p, b)
}

// Functions returns fourtyone_wrapper and fourtytwo_wrapper. Both take one
// input, which is never read, and store their constant as a dict artifact.
func Functions() []dispatch.Function {
	return []dispatch.Function{
		constant("fourtyone_wrapper", 41),
		constant("fourtytwo_wrapper", 42),
	}
}

func constant(name string, value int) dispatch.Function {
	return dispatch.Function{
		Name:    name,
		Inputs:  []string{"input"},
		Outputs: []string{"result"},
		Run: func(ctx context.Context, call *dispatch.Call) ([]message.ArtifactNode, error) {
			call.Computed(value)
			stored, err := call.Resolver().Store(ctx, value, call.Output("result"))
			if err != nil {
				return nil, err
			}
			return []message.ArtifactNode{stored}, nil
		},
	}
}
