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

// Package toolspec reads the tool description that ships with every tool
// container and derives artifact schemas from it.
package toolspec

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "toolspec",
	})

	// fileNames are tried in order when reading a tool directory.
	fileNames = []string{"spec.json", "spec.yaml", "spec.yml"}
)

// Spec describes the functions a tool provides.
type Spec struct {
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Functions   map[string]Function `json:"functions"`
}

// Function declares the artifacts a function consumes and produces.
type Function struct {
	Description string `json:"description,omitempty"`
	Inputs      []Slot `json:"inputs"`
	Outputs     []Slot `json:"outputs"`
}

// Slot is one declared input or output. Schema is kept verbatim: a JSON
// schema for config inputs, an object with "fields" for Arrow artifacts.
type Slot struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
}

// SlotNames lists the names of slots in order.
func SlotNames(slots []Slot) []string {
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, s.Name)
	}
	return names
}

// Read loads the spec file found in dir.
func Read(dir string) (*Spec, error) {
	for _, name := range fileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return ReadFile(p)
		}
	}
	return nil, errors.Errorf("no tool spec (%s) in %q", strings.Join(fileNames, ", "), dir)
}

// ReadFile loads a JSON or YAML spec file, chosen by extension.
func ReadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	spec, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse tool spec %s", path)
	}
	logger.WithFields(logrus.Fields{
		"path":      path,
		"functions": len(spec.Functions),
	}).Debug("Tool spec loaded.")
	return spec, nil
}

// Parse decodes a spec. YAML documents are normalized to JSON first so that
// both forms yield identical schemas.
func Parse(data []byte, ext string) (*Spec, error) {
	switch ext {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.WithStack(err)
		}
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return nil, errors.WithStack(err)
		}
	case ".json":
	default:
		return nil, errors.Errorf("unsupported tool spec format %q", ext)
	}

	spec := &Spec{}
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, errors.WithStack(err)
	}
	if len(spec.Functions) == 0 {
		return nil, errors.New("tool spec declares no functions")
	}
	return spec, nil
}

// Function returns the declaration of name.
func (s *Spec) Function(name string) (*Function, error) {
	fn, ok := s.Functions[name]
	if !ok {
		return nil, &toolerror.FunctionNotFoundError{Func: name}
	}
	return &fn, nil
}
