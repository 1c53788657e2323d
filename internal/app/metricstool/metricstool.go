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

// Package metricstool is a tool computing classification and regression
// metrics of predicted against true labels.
package metricstool

import (
	"context"
	"net/url"
	"path"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Mission-KI/pruefplattform/internal/appmain"
	"github.com/Mission-KI/pruefplattform/internal/dispatch"
	"github.com/Mission-KI/pruefplattform/internal/harness"
	"github.com/Mission-KI/pruefplattform/internal/message"
)

// BindService binds the metric functions to the tool server.
func BindService(p *appmain.Params, b *appmain.Bindings) error {
	return harness.BindService(&harness.Settings{Functions: Functions()})(p, b)
}

// Functions returns one <metric>_wrapper function per metric. Each loads
// the y_true and y_pred arrays and stores {metric: value} as its result.
// Labels are read from .npy or .json arrays, or from a one-column .csv file.
func Functions() []dispatch.Function {
	names := make([]string, 0, len(Metrics))
	for name := range Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fns := make([]dispatch.Function, 0, len(names))
	for _, name := range names {
		fns = append(fns, wrap(name, Metrics[name]))
	}
	return fns
}

func wrap(name string, metric Metric) dispatch.Function {
	return dispatch.Function{
		Name:    name + "_wrapper",
		Inputs:  []string{"y_true", "y_pred"},
		Outputs: []string{"result"},
		Run: func(ctx context.Context, call *dispatch.Call) ([]message.ArtifactNode, error) {
			yTrue, err := loadVector(ctx, call, "y_true")
			if err != nil {
				return nil, err
			}
			yPred, err := loadVector(ctx, call, "y_pred")
			if err != nil {
				return nil, err
			}

			value, err := metric(yTrue, yPred)
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
			}
			result := map[string]interface{}{name: value}
			call.Computed(result)

			stored, err := call.Resolver().Store(ctx, result, call.Output("result"))
			if err != nil {
				return nil, err
			}
			return []message.ArtifactNode{stored}, nil
		},
	}
}

func loadVector(ctx context.Context, call *dispatch.Call, slot string) ([]float64, error) {
	node := call.Input(slot)
	if u, err := url.Parse(node.Location.URI); err == nil && path.Ext(u.Path) == ".csv" {
		df, err := call.Resolver().LoadFrame(ctx, node)
		if err != nil {
			return nil, err
		}
		v, err := frameVector(df)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s: %v", slot, err)
		}
		return v, nil
	}

	arr, err := call.Resolver().LoadNDArray(ctx, node)
	if err != nil {
		return nil, err
	}
	v, err := arr.Vector()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", slot, err)
	}
	return v, nil
}

// frameVector returns the single numeric column of a CSV label file.
func frameVector(df dataframe.DataFrame) ([]float64, error) {
	if df.Ncol() != 1 {
		return nil, errors.Errorf("want one label column, got %d", df.Ncol())
	}
	col := df.Col(df.Names()[0])
	if col.Type() == series.String {
		return nil, errors.Errorf("column %q is not numeric", col.Name)
	}
	if col.HasNaN() {
		return nil, errors.Errorf("column %q has missing values", col.Name)
	}
	return col.Float(), nil
}
