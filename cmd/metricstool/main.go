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

// Package main is the metrics tool.
package main

import (
	"github.com/Mission-KI/pruefplattform/internal/app/metricstool"
	"github.com/Mission-KI/pruefplattform/internal/harness"
)

func main() {
	harness.RunTool(&harness.Settings{Functions: metricstool.Functions()})
}
