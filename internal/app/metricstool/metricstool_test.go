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

package metricstool

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Mission-KI/pruefplattform/internal/artifact"
	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/dispatch"
	"github.com/Mission-KI/pruefplattform/internal/filesystem"
	"github.com/Mission-KI/pruefplattform/internal/message"
)

// testdata labels: 13 true positives, 22 true negatives, 3 false
// positives and 2 false negatives.
func TestMetricsOnSampleLabels(t *testing.T) {
	yTrue := []float64{0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 1, 0, 0, 1, 0, 0, 1, 0, 1, 1, 1, 0, 1, 0, 1, 0}
	yPred := []float64{0, 0, 1, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 1, 1, 1, 1, 0, 1, 0, 0, 1, 0, 1, 1, 1, 0, 0, 1, 1, 0}

	testCases := []struct {
		metric string
		want   interface{}
	}{
		{"accuracy", 0.875},
		{"precision", 0.8125},
		{"recall", 13.0 / 15.0},
		{"f1", 26.0 / 31.0},
		{"specificity", 0.88},
		{"balanced_accuracy", (13.0/15.0 + 0.88) / 2},
		{"mcc", 0.7378647873726218},
		{"mse", 0.125},
		{"roc_auc", (13.0/15.0 + 0.88) / 2},
		{"tp", 13},
		{"fp", 3},
		{"tn", 22},
		{"fn", 2},
	}

	require.Len(t, Metrics, len(testCases))
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.metric, func(t *testing.T) {
			got, err := Metrics[tc.metric](yTrue, yPred)
			require.NoError(t, err)
			if want, ok := tc.want.(float64); ok {
				require.IsType(t, float64(0), got)
				assert.InDelta(t, want, got.(float64), 1e-12)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMetricsUndefined(t *testing.T) {
	allNegative := []float64{0, 0, 0}
	allPositive := []float64{1, 1, 1}

	got, err := Metrics["specificity"](allPositive, allPositive)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Metrics["balanced_accuracy"](allNegative, allNegative)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Metrics["precision"](allPositive, allNegative)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Metrics["mcc"](allNegative, allNegative)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestMetricsInvalidInput(t *testing.T) {
	testCases := []struct {
		name   string
		metric string
		yTrue  []float64
		yPred  []float64
	}{
		{"length mismatch", "accuracy", []float64{0, 1}, []float64{0}},
		{"empty", "mse", nil, nil},
		{"not binary", "tp", []float64{0, 2}, []float64{0, 1}},
		{"prediction not binary", "f1", []float64{0, 1}, []float64{0.5, 1}},
		{"single class", "roc_auc", []float64{1, 1}, []float64{0.2, 0.9}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Metrics[tc.metric](tc.yTrue, tc.yPred)
			assert.Error(t, err)
		})
	}
}

func TestROCAUCScores(t *testing.T) {
	got, err := Metrics["roc_auc"]([]float64{0, 1, 0, 1, 1, 1}, []float64{0, 3, 5, 6, 7.5, 8})
	require.NoError(t, err)
	assert.InDelta(t, 0.875, got.(float64), 1e-12)
}

func newDispatcher(t *testing.T) (*dispatch.Dispatcher, *filesystem.Mem) {
	table, err := dispatch.NewTable(Functions()...)
	require.NoError(t, err)
	mem := filesystem.NewMem()
	fss := filesystem.NewRegistry()
	fss.Register("", filesystem.NewLocal())
	fss.Register("mem", mem)
	return dispatch.NewDispatcher(table, artifact.NewResolver(codec.NewDefaultRegistry(nil), fss)), mem
}

func TestAccuracyWrapper(t *testing.T) {
	require := require.New(t)
	d, mem := newDispatcher(t)
	out := "mem:///results/result.json"

	resp, err := d.Dispatch(context.Background(), message.ExecutionMessage{
		Func: "accuracy_wrapper",
		Input: []message.ArtifactNode{
			message.NewNode("y_true", "testdata/true_labels.json"),
			message.NewNode("y_pred", "testdata/pred_labels.json"),
		},
		Output: []message.ArtifactNode{message.NewNode("test_result", out)},
	})
	require.NoError(err)
	require.Equal("accuracy_wrapper", resp.Func)
	require.NotEmpty(resp.Output[0].PayloadID)

	u, err := url.Parse(out)
	require.NoError(err)
	payload, ok := mem.Bytes(u)
	require.True(ok)
	var result map[string]float64
	require.NoError(json.Unmarshal(payload, &result))
	require.Equal(map[string]float64{"accuracy": 0.875}, result)
}

func TestWrapperRejectsMismatchedInputs(t *testing.T) {
	require := require.New(t)
	d, mem := newDispatcher(t)
	ctx := context.Background()

	u, err := url.Parse("mem:///short.json")
	require.NoError(err)
	w, err := mem.Create(ctx, u)
	require.NoError(err)
	_, err = w.Write([]byte("[0, 1, 1]"))
	require.NoError(err)
	require.NoError(w.Close())

	_, err = d.Dispatch(ctx, message.ExecutionMessage{
		Func: "f1_wrapper",
		Input: []message.ArtifactNode{
			message.NewNode("y_true", "testdata/true_labels.json"),
			message.NewNode("y_pred", "mem:///short.json"),
		},
		Output: []message.ArtifactNode{message.NewNode("test_result", "mem:///r.json")},
	})
	require.Error(err)
	require.Equal(codes.InvalidArgument, status.Code(err))

	out, err := url.Parse("mem:///r.json")
	require.NoError(err)
	_, stored := mem.Bytes(out)
	require.False(stored)
}

func TestWrapperReadsCSVLabels(t *testing.T) {
	require := require.New(t)
	d, mem := newDispatcher(t)
	ctx := context.Background()

	put := func(uri, data string) {
		u, err := url.Parse(uri)
		require.NoError(err)
		w, err := mem.Create(ctx, u)
		require.NoError(err)
		_, err = w.Write([]byte(data))
		require.NoError(err)
		require.NoError(w.Close())
	}
	put("mem:///labels/true.csv", "label\n0\n1\n1\n0\n")
	put("mem:///labels/pred.csv", "label\n0\n1\n0\n0\n")
	put("mem:///labels/wide.csv", "a,b\n0,1\n1,0\n")

	_, err := d.Dispatch(ctx, message.ExecutionMessage{
		Func: "accuracy_wrapper",
		Input: []message.ArtifactNode{
			message.NewNode("y_true", "mem:///labels/true.csv"),
			message.NewNode("y_pred", "mem:///labels/pred.csv"),
		},
		Output: []message.ArtifactNode{message.NewNode("test_result", "mem:///results/csv.json")},
	})
	require.NoError(err)

	u, err := url.Parse("mem:///results/csv.json")
	require.NoError(err)
	payload, ok := mem.Bytes(u)
	require.True(ok)
	var result map[string]float64
	require.NoError(json.Unmarshal(payload, &result))
	require.Equal(map[string]float64{"accuracy": 0.75}, result)

	_, err = d.Dispatch(ctx, message.ExecutionMessage{
		Func: "accuracy_wrapper",
		Input: []message.ArtifactNode{
			message.NewNode("y_true", "mem:///labels/true.csv"),
			message.NewNode("y_pred", "mem:///labels/wide.csv"),
		},
		Output: []message.ArtifactNode{message.NewNode("test_result", "mem:///results/wide.json")},
	})
	require.Equal(codes.InvalidArgument, status.Code(err))
}

func TestFunctionNames(t *testing.T) {
	var names []string
	for _, fn := range Functions() {
		names = append(names, fn.Name)
		assert.Equal(t, []string{"y_true", "y_pred"}, fn.Inputs)
	}
	assert.Contains(t, names, "accuracy_wrapper")
	assert.Contains(t, names, "roc_auc_wrapper")
	assert.True(t, sort.StringsAreSorted(names))
	assert.Len(t, names, len(Metrics))
}
