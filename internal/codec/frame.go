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

package codec

import (
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
)

// FrameCodec reads CSV files into data frames. Frames are read only.
type FrameCodec struct{}

// Kind implements Codec.
func (FrameCodec) Kind() Kind { return KindFrame }

// Extensions implements Codec.
func (FrameCodec) Extensions() []string { return []string{".csv"} }

// Load parses a CSV file with a header row.
func (FrameCodec) Load(r io.Reader, _ string, _ Options) (interface{}, error) {
	df := dataframe.ReadCSV(r)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "cannot read CSV artifact")
	}
	return df, nil
}
