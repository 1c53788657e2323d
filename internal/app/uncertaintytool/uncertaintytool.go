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

// Package uncertaintytool is a tool scoring the predicted uncertainty of
// gaussian regression models. Inputs and outputs are Arrow files; every
// record batch yields one metric row.
package uncertaintytool

import (
	"context"
	_ "embed"
	"fmt"
	"math"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Mission-KI/pruefplattform/internal/appmain"
	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/dispatch"
	"github.com/Mission-KI/pruefplattform/internal/harness"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
	"github.com/Mission-KI/pruefplattform/internal/toolspec"
)

const metricColumn = "metric_value"

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "uncertaintytool",
	})

	//go:embed spec.json
	defaultSpec []byte
)

// BindService binds the uncertainty metrics to the tool server. Schemas
// come from the tool spec in tool.workdir, or from the built-in spec when
// the workdir has none.
func BindService(p *appmain.Params, b *appmain.Bindings) error {
	spec, err := loadSpec(p.Config().GetString("tool.workdir"))
	if err != nil {
		return err
	}
	fns, err := Functions(spec)
	if err != nil {
		return err
	}
	return harness.BindService(&harness.Settings{Functions: fns})(p, b)
}

func loadSpec(workdir string) (*toolspec.Spec, error) {
	if workdir != "" {
		spec, err := toolspec.Read(workdir)
		if err == nil {
			return spec, nil
		}
		logger.WithError(err).Debug("Using built-in tool spec.")
	}
	return DefaultSpec()
}

// DefaultSpec returns the built-in tool spec.
func DefaultSpec() (*toolspec.Spec, error) {
	return toolspec.Parse(defaultSpec, ".json")
}

// Functions builds the metric functions with the artifact schemas declared
// by spec.
func Functions(spec *toolspec.Spec) ([]dispatch.Function, error) {
	sharpness, err := newSharpness(spec)
	if err != nil {
		return nil, err
	}
	fns := []dispatch.Function{sharpness}
	for _, m := range gaussianMetrics {
		fn, err := newGaussian(spec, m)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

type gaussianMetric func(mean, std, label []float64, opts Options) (float64, error)

// namedMetric binds a gaussian metric to its function name and the config
// keys it accepts.
type namedMetric struct {
	name    string
	metric  gaussianMetric
	options []string
}

var (
	calibrationOptions = []string{"num_bins", "vectorized", "prop_type"}
	intervalOptions    = []string{"scaled", "start_p", "end_p", "resolution"}
	quantileOptions    = []string{"scaled", "start_q", "end_q", "resolution"}

	gaussianMetrics = []namedMetric{
		{"negative_log_likelihood", NegativeLogLikelihood, []string{"scaled"}},
		{"continuous_ranked_probability_score", ContinuousRankedProbabilityScore, []string{"scaled"}},
		{"mean_absolute_calibration_error", MeanAbsoluteCalibrationError, calibrationOptions},
		{"expected_calibration_error", MeanAbsoluteCalibrationError, calibrationOptions},
		{"root_mean_squared_calibration_error", RootMeanSquaredCalibrationError, calibrationOptions},
		{"miscalibration_area", MiscalibrationArea, calibrationOptions},
		{"interval_score", IntervalScore, intervalOptions},
		{"check_score", CheckScore, quantileOptions},
	}
)

func newSharpness(spec *toolspec.Spec) (dispatch.Function, error) {
	const name = "expected_standard_deviation"
	schemas, err := slotSchemas(spec, name, []string{"standard_deviations"})
	if err != nil {
		return dispatch.Function{}, err
	}
	in, out := schemas[0], schemas[1]

	return dispatch.Function{
		Name:    name,
		Inputs:  []string{"standard_deviations"},
		Outputs: []string{"metric_values"},
		Run: func(ctx context.Context, call *dispatch.Call) ([]message.ArtifactNode, error) {
			batches, err := call.Resolver().LoadArrow(ctx, call.Input("standard_deviations"), in)
			if err != nil {
				return nil, err
			}
			defer codec.Release(batches)

			values, err := perBatch(ctx, len(batches), func(i int) (float64, error) {
				std, err := column(batches[i], "prediction_std")
				if err != nil {
					return 0, err
				}
				return Sharpness(std)
			})
			if err != nil {
				return nil, err
			}
			return storeMetrics(ctx, call, out, values)
		},
	}, nil
}

func newGaussian(spec *toolspec.Spec, m namedMetric) (dispatch.Function, error) {
	name := m.name
	schemas, err := slotSchemas(spec, name, []string{"predictions", "labels"})
	if err != nil {
		return dispatch.Function{}, err
	}
	predictionSchema, labelSchema, out := schemas[0], schemas[1], schemas[2]
	fn, _ := spec.Function(name)
	configSlot, err := findSlot(fn.Inputs, name, "config")
	if err != nil {
		return dispatch.Function{}, err
	}

	return dispatch.Function{
		Name:    name,
		Inputs:  []string{"predictions", "labels", "config"},
		Outputs: []string{"metric_values"},
		Run: func(ctx context.Context, call *dispatch.Call) ([]message.ArtifactNode, error) {
			opts, err := loadConfig(ctx, call, configSlot, m.options)
			if err != nil {
				return nil, err
			}

			predictions, err := call.Resolver().LoadArrow(ctx, call.Input("predictions"), predictionSchema)
			if err != nil {
				return nil, err
			}
			defer codec.Release(predictions)
			labels, err := call.Resolver().LoadArrow(ctx, call.Input("labels"), labelSchema)
			if err != nil {
				return nil, err
			}
			defer codec.Release(labels)

			if len(predictions) != len(labels) {
				return nil, status.Errorf(codes.InvalidArgument, "%d prediction batches but %d label batches", len(predictions), len(labels))
			}

			values, err := perBatch(ctx, len(predictions), func(i int) (float64, error) {
				mean, err := column(predictions[i], "prediction_mean")
				if err != nil {
					return 0, err
				}
				std, err := column(predictions[i], "prediction_std")
				if err != nil {
					return 0, err
				}
				label, err := column(labels[i], "label")
				if err != nil {
					return 0, err
				}
				return m.metric(mean, std, label, opts)
			})
			if err != nil {
				return nil, err
			}
			return storeMetrics(ctx, call, out, values)
		},
	}, nil
}

// slotSchemas returns the Arrow schemas of the named inputs of fn followed
// by the schema of its first output, which must be a single float64
// metric_value column.
func slotSchemas(spec *toolspec.Spec, fn string, inputs []string) ([]*arrow.Schema, error) {
	decl, err := spec.Function(fn)
	if err != nil {
		return nil, err
	}
	schemas := make([]*arrow.Schema, 0, len(inputs)+1)
	for _, name := range inputs {
		slot, err := findSlot(decl.Inputs, fn, name)
		if err != nil {
			return nil, err
		}
		schema, err := slot.ArrowSchema()
		if err != nil {
			return nil, errors.Wrapf(err, "function %q", fn)
		}
		schemas = append(schemas, schema)
	}

	if len(decl.Outputs) == 0 {
		return nil, errors.Errorf("function %q declares no output", fn)
	}
	out, err := decl.Outputs[0].ArrowSchema()
	if err != nil {
		return nil, errors.Wrapf(err, "function %q", fn)
	}
	if len(out.Fields()) != 1 || out.Field(0).Name != metricColumn || !arrow.TypeEqual(out.Field(0).Type, arrow.PrimitiveTypes.Float64) {
		return nil, errors.Errorf("function %q must output a single float64 %s column, got %s", fn, metricColumn, out)
	}
	return append(schemas, out), nil
}

func findSlot(slots []toolspec.Slot, fn, name string) (toolspec.Slot, error) {
	for _, s := range slots {
		if s.Name == name {
			return s, nil
		}
	}
	return toolspec.Slot{}, errors.Errorf("function %q declares no slot %q", fn, name)
}

// loadConfig reads the metric options, starting from DefaultOptions. Keys
// outside allowed are rejected.
func loadConfig(ctx context.Context, call *dispatch.Call, slot toolspec.Slot, allowed []string) (Options, error) {
	fn := call.Message().Func
	opts := DefaultOptions()
	cfg, err := call.Resolver().LoadDict(ctx, call.Input("config"))
	if err != nil {
		return opts, err
	}
	if err := slot.ValidateConfig(fn, cfg); err != nil {
		return opts, err
	}

	values, ok := cfg.(map[string]interface{})
	if !ok {
		return opts, &toolerror.InvalidConfigError{Func: fn, Diagnostic: "config must be an object"}
	}
	for key, value := range values {
		set, known := optionSetters[key]
		if !known || !contains(allowed, key) {
			return opts, &toolerror.InvalidConfigError{Func: fn, Diagnostic: "unknown option " + key}
		}
		if !set(&opts, value) {
			return opts, &toolerror.InvalidConfigError{Func: fn, Diagnostic: fmt.Sprintf("invalid value %v for option %s", value, key)}
		}
	}
	return opts, nil
}

var optionSetters = map[string]func(*Options, interface{}) bool{
	"scaled": func(o *Options, v interface{}) bool {
		b, ok := v.(bool)
		o.Scaled = b
		return ok
	},
	// vectorized has no effect.
	"vectorized": func(_ *Options, v interface{}) bool {
		_, ok := v.(bool)
		return ok
	},
	"num_bins": func(o *Options, v interface{}) bool {
		n, ok := integer(v)
		o.NumBins = n
		return ok && n >= 2
	},
	"prop_type": func(o *Options, v interface{}) bool {
		s, ok := v.(string)
		o.PropType = s
		return ok && (s == PropInterval || s == PropQuantile)
	},
	"resolution": func(o *Options, v interface{}) bool {
		n, ok := integer(v)
		o.Resolution = n
		return ok && n >= 2
	},
	"start_p": setStart,
	"start_q": setStart,
	"end_p":   setEnd,
	"end_q":   setEnd,
}

func setStart(o *Options, v interface{}) bool {
	f, ok := v.(float64)
	o.Start = f
	return ok && f > 0 && f < 1
}

func setEnd(o *Options, v interface{}) bool {
	f, ok := v.(float64)
	o.End = f
	return ok && f > 0 && f < 1
}

func integer(v interface{}) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// perBatch computes one value per batch concurrently.
func perBatch(ctx context.Context, n int, compute func(i int) (float64, error)) ([]float64, error) {
	values := make([]float64, n)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := compute(i)
			if err != nil {
				return status.Errorf(codes.InvalidArgument, "record batch %d: %v", i, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func column(rec arrow.Record, name string) ([]float64, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, errors.Errorf("no column %q", name)
	}
	col, ok := rec.Column(idx[0]).(*array.Float64)
	if !ok {
		return nil, errors.Errorf("column %q is %s, want float64", name, rec.Column(idx[0]).DataType())
	}
	if col.NullN() > 0 {
		return nil, errors.Errorf("column %q has %d null values", name, col.NullN())
	}
	return col.Float64Values(), nil
}

func storeMetrics(ctx context.Context, call *dispatch.Call, schema *arrow.Schema, values []float64) ([]message.ArtifactNode, error) {
	batches := make([]arrow.Record, 0, len(values))
	defer func() {
		codec.Release(batches)
	}()
	for _, v := range values {
		b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		b.Field(0).(*array.Float64Builder).Append(v)
		batches = append(batches, b.NewRecord())
		b.Release()
	}
	call.Computed(values)

	stored, err := call.Resolver().StoreArrow(ctx, batches, call.Output("metric_values"), schema)
	if err != nil {
		return nil, err
	}
	return []message.ArtifactNode{stored}, nil
}
