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

package toolspec

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

func TestRead(t *testing.T) {
	for _, dir := range []string{"json", "yaml"} {
		dir := dir
		t.Run(dir, func(t *testing.T) {
			require := require.New(t)

			spec, err := Read(filepath.Join("testdata", dir))
			require.NoError(err)
			require.Equal("uncertainty-toolbox-metrics", spec.Name)

			fn, err := spec.Function("negative_log_likelihood")
			require.NoError(err)
			require.Equal([]string{"predictions", "labels", "config"}, SlotNames(fn.Inputs))
			require.Equal([]string{"metric_values"}, SlotNames(fn.Outputs))

			predictions, err := fn.Inputs[0].ArrowSchema()
			require.NoError(err)
			require.Equal([]string{"prediction_mean", "prediction_std"}, fieldNames(predictions))
			require.True(arrow.TypeEqual(arrow.PrimitiveTypes.Float64, predictions.Field(1).Type))
			require.False(predictions.Field(0).Nullable)

			labels, err := fn.Inputs[1].ArrowSchema()
			require.NoError(err)
			label := labels.Field(0)
			require.True(label.Nullable)
			require.Equal([]string{"source", "unit"}, label.Metadata.Keys())
			require.Equal([]string{"sensor", "m"}, label.Metadata.Values())
		})
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join("testdata", "empty"))
	require.Error(t, err)

	_, err = Parse([]byte(`{"functions": {}}`), ".json")
	require.Error(t, err)

	_, err = Parse([]byte(`functions: {}`), ".toml")
	require.Error(t, err)
}

func TestFunctionNotFound(t *testing.T) {
	spec, err := Read(filepath.Join("testdata", "json"))
	require.NoError(t, err)

	_, err = spec.Function("nonexistent")
	var notFound *toolerror.FunctionNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func fieldNames(s *arrow.Schema) []string {
	names := []string{}
	for _, f := range s.Fields() {
		names = append(names, f.Name)
	}
	return names
}

func TestParseArrowSchemaTypes(t *testing.T) {
	require := require.New(t)

	var fields []map[string]string
	names := []string{}
	for name := range arrowTypes {
		fields = append(fields, map[string]string{"name": "f_" + name, "type": name})
		names = append(names, "f_"+name)
	}
	raw, err := json.Marshal(fields)
	require.NoError(err)

	schema, err := ParseArrowSchema(raw)
	require.NoError(err)
	require.Equal(names, fieldNames(schema))
	for i, f := range fields {
		require.True(arrow.TypeEqual(arrowTypes[f["type"]], schema.Field(i).Type), f["type"])
	}

	uuid := schema.Field(indexOf(names, "f_uuid")).Type.(*arrow.FixedSizeBinaryType)
	require.Equal(16, uuid.ByteWidth)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestParseArrowSchemaRejects(t *testing.T) {
	testCases := []struct {
		name   string
		fields string
	}{
		{"empty list", `[]`},
		{"not a list", `{"name": "x", "type": "float64"}`},
		{"missing type", `[{"name": "x"}]`},
		{"empty name", `[{"name": "", "type": "float64"}]`},
		{"unknown type", `[{"name": "x", "type": "decimal"}]`},
		{"unknown key", `[{"name": "x", "type": "float64", "unit": "s"}]`},
		{"non string metadata", `[{"name": "x", "type": "float64", "metadata": {"k": 1}}]`},
		{"non bool nullable", `[{"name": "x", "type": "float64", "nullable": "yes"}]`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseArrowSchema(json.RawMessage(tc.fields))
			require.Error(t, err)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	spec, err := Read(filepath.Join("testdata", "json"))
	require.NoError(t, err)
	fn, err := spec.Function("negative_log_likelihood")
	require.NoError(t, err)
	slot := fn.Inputs[2]

	testCases := []struct {
		name   string
		config string
		valid  bool
	}{
		{"empty", `{}`, true},
		{"scaled", `{"scaled": false}`, true},
		{"wrong type", `{"scaled": "no"}`, false},
		{"unknown key", `{"scale": true}`, false},
		{"not an object", `[1]`, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var config interface{}
			require.NoError(t, json.Unmarshal([]byte(tc.config), &config))

			err := slot.ValidateConfig("negative_log_likelihood", config)
			if tc.valid {
				require.NoError(t, err)
				return
			}
			var invalid *toolerror.InvalidConfigError
			require.True(t, errors.As(err, &invalid))
			require.Equal(t, "negative_log_likelihood", invalid.Func)
			require.NotEmpty(t, invalid.Diagnostic)
		})
	}

	require.NoError(t, Slot{Name: "free"}.ValidateConfig("f", 42.0))
}
