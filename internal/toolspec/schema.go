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
	"sort"
	"sync"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pkg/errors"

	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

// arrowTypes maps field type names to Arrow types. Parametrized types use a
// fixed unit: milliseconds for time32, microseconds for time64 and
// timestamp.
var arrowTypes = map[string]arrow.DataType{
	"null":      arrow.Null,
	"bool":      arrow.FixedWidthTypes.Boolean,
	"bool8":     arrow.PrimitiveTypes.Int8,
	"int8":      arrow.PrimitiveTypes.Int8,
	"int16":     arrow.PrimitiveTypes.Int16,
	"int32":     arrow.PrimitiveTypes.Int32,
	"int64":     arrow.PrimitiveTypes.Int64,
	"uint8":     arrow.PrimitiveTypes.Uint8,
	"uint16":    arrow.PrimitiveTypes.Uint16,
	"uint32":    arrow.PrimitiveTypes.Uint32,
	"uint64":    arrow.PrimitiveTypes.Uint64,
	"float16":   arrow.FixedWidthTypes.Float16,
	"float32":   arrow.PrimitiveTypes.Float32,
	"float64":   arrow.PrimitiveTypes.Float64,
	"time32":    arrow.FixedWidthTypes.Time32ms,
	"time64":    arrow.FixedWidthTypes.Time64us,
	"timestamp": arrow.FixedWidthTypes.Timestamp_us,
	"date32":    arrow.FixedWidthTypes.Date32,
	"date64":    arrow.FixedWidthTypes.Date64,
	"string":    arrow.BinaryTypes.String,
	"binary":    arrow.BinaryTypes.Binary,
	"uuid":      &arrow.FixedSizeBinaryType{ByteWidth: 16},
}

// fieldListSchema is the grammar of an Arrow field list.
const fieldListSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["name", "type"],
		"additionalProperties": false,
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"type": {"enum": [
				"null", "bool", "bool8", "int8", "int16", "int32", "int64",
				"uint8", "uint16", "uint32", "uint64", "float16", "float32", "float64",
				"time32", "time64", "timestamp", "date32", "date64",
				"string", "binary", "uuid"
			]},
			"nullable": {"type": "boolean"},
			"metadata": {"type": "object", "additionalProperties": {"type": "string"}}
		}
	}
}`

var (
	fieldListOnce     sync.Once
	fieldListResolved *jsonschema.Resolved
	fieldListErr      error
)

func fieldListValidator() (*jsonschema.Resolved, error) {
	fieldListOnce.Do(func() {
		fieldListResolved, fieldListErr = CompileSchema([]byte(fieldListSchema))
	})
	return fieldListResolved, fieldListErr
}

// CompileSchema parses and resolves a JSON schema document.
func CompileSchema(raw []byte) (*jsonschema.Resolved, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "cannot parse JSON schema")
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot resolve JSON schema")
	}
	return resolved, nil
}

type fieldDef struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Nullable bool              `json:"nullable"`
	Metadata map[string]string `json:"metadata"`
}

// ParseArrowSchema builds an Arrow schema from a JSON field list. Fields are
// not nullable unless declared so.
func ParseArrowSchema(fields json.RawMessage) (*arrow.Schema, error) {
	var instance interface{}
	if err := json.Unmarshal(fields, &instance); err != nil {
		return nil, errors.Wrap(err, "cannot decode arrow field list")
	}
	validator, err := fieldListValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(instance); err != nil {
		return nil, errors.Wrap(err, "invalid arrow field list")
	}

	var defs []fieldDef
	if err := json.Unmarshal(fields, &defs); err != nil {
		return nil, errors.WithStack(err)
	}

	result := make([]arrow.Field, 0, len(defs))
	for _, d := range defs {
		f := arrow.Field{
			Name:     d.Name,
			Type:     arrowTypes[d.Type],
			Nullable: d.Nullable,
		}
		if len(d.Metadata) > 0 {
			keys := make([]string, 0, len(d.Metadata))
			for k := range d.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			values := make([]string, 0, len(keys))
			for _, k := range keys {
				values = append(values, d.Metadata[k])
			}
			f.Metadata = arrow.NewMetadata(keys, values)
		}
		result = append(result, f)
	}
	return arrow.NewSchema(result, nil), nil
}

// ArrowSchema parses the "fields" of a slot schema.
func (s Slot) ArrowSchema() (*arrow.Schema, error) {
	var holder struct {
		Fields json.RawMessage `json:"fields"`
	}
	if len(s.Schema) == 0 {
		return nil, errors.Errorf("slot %q has no schema", s.Name)
	}
	if err := json.Unmarshal(s.Schema, &holder); err != nil {
		return nil, errors.Wrapf(err, "slot %q", s.Name)
	}
	if len(holder.Fields) == 0 {
		return nil, errors.Errorf("slot %q schema has no fields", s.Name)
	}
	schema, err := ParseArrowSchema(holder.Fields)
	return schema, errors.Wrapf(err, "slot %q", s.Name)
}

// ValidateConfig checks a decoded config value against the slot's JSON
// schema. A slot without schema accepts anything.
func (s Slot) ValidateConfig(fn string, config interface{}) error {
	if len(s.Schema) == 0 {
		return nil
	}
	resolved, err := CompileSchema(s.Schema)
	if err != nil {
		return &toolerror.InvalidConfigError{Func: fn, Diagnostic: err.Error()}
	}
	if err := resolved.Validate(config); err != nil {
		return &toolerror.InvalidConfigError{Func: fn, Diagnostic: err.Error()}
	}
	return nil
}
