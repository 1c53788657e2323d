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
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// NDArray is a dense row-major numeric array.
type NDArray struct {
	Shape []int
	Data  []float64
}

// Len is the number of elements.
func (a NDArray) Len() int { return len(a.Data) }

// Vector returns the data of a 1-D array, or of a 2-D array with a single
// column or row.
func (a NDArray) Vector() ([]float64, error) {
	switch {
	case len(a.Shape) == 1:
		return a.Data, nil
	case len(a.Shape) == 2 && (a.Shape[0] == 1 || a.Shape[1] == 1):
		return a.Data, nil
	}
	return nil, errors.Errorf("array of shape %v is not a vector", a.Shape)
}

// Dense returns a 2-D array as a gonum matrix sharing its data. 1-D arrays
// become column vectors.
func (a NDArray) Dense() (*mat.Dense, error) {
	switch len(a.Shape) {
	case 1:
		return mat.NewDense(a.Shape[0], 1, a.Data), nil
	case 2:
		return mat.NewDense(a.Shape[0], a.Shape[1], a.Data), nil
	}
	return nil, errors.Errorf("array of shape %v has no matrix form", a.Shape)
}

// NDArrayCodec reads .npy and .json arrays and writes .npy arrays.
type NDArrayCodec struct{}

// Kind implements Codec.
func (NDArrayCodec) Kind() Kind { return KindNDArray }

// Extensions implements Codec.
func (NDArrayCodec) Extensions() []string { return []string{".npy", ".json"} }

// Load decodes an array. Every numeric dtype is converted to float64.
func (NDArrayCodec) Load(r io.Reader, ext string, _ Options) (interface{}, error) {
	switch ext {
	case ".npy":
		return loadNPY(r)
	case ".json":
		return loadJSONArray(r)
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "ndarray cannot load %q", ext)
}

// Store encodes 1-D and 2-D arrays as .npy.
func (NDArrayCodec) Store(w io.Writer, ext string, obj interface{}, _ Options) error {
	if ext != ".npy" {
		return errors.Wrapf(ErrUnsupportedFormat, "ndarray cannot store %q", ext)
	}

	var value interface{}
	switch a := obj.(type) {
	case NDArray:
		v, err := npyValue(a)
		if err != nil {
			return err
		}
		value = v
	case *NDArray:
		v, err := npyValue(*a)
		if err != nil {
			return err
		}
		value = v
	case []float64:
		value = a
	case mat.Matrix:
		value = a
	default:
		return errors.Errorf("ndarray cannot store a %T", obj)
	}

	return errors.Wrap(npyio.Write(w, value), "cannot write npy artifact")
}

func npyValue(a NDArray) (interface{}, error) {
	switch len(a.Shape) {
	case 1:
		return a.Data, nil
	case 2:
		return mat.NewDense(a.Shape[0], a.Shape[1], a.Data), nil
	}
	return nil, errors.Errorf("npy storage supports 1-D and 2-D arrays, got shape %v", a.Shape)
}

func loadNPY(r io.Reader) (NDArray, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return NDArray{}, errors.Wrap(err, "cannot read npy header")
	}

	descr := npy.Header.Descr
	shape := append([]int{}, descr.Shape...)
	data, err := readNPYData(npy, strings.TrimLeft(descr.Type, "<>|="))
	if err != nil {
		return NDArray{}, err
	}

	if descr.Fortran && len(shape) == 2 {
		data = transpose(data, shape[0], shape[1])
	}
	return NDArray{Shape: shape, Data: data}, nil
}

func readNPYData(npy *npyio.Reader, dtype string) ([]float64, error) {
	var (
		data []float64
		err  error
	)
	switch dtype {
	case "f8":
		err = npy.Read(&data)
	case "f4":
		var v []float32
		err = npy.Read(&v)
		data = convert(v)
	case "i8":
		var v []int64
		err = npy.Read(&v)
		data = convert(v)
	case "i4":
		var v []int32
		err = npy.Read(&v)
		data = convert(v)
	case "i2":
		var v []int16
		err = npy.Read(&v)
		data = convert(v)
	case "i1":
		var v []int8
		err = npy.Read(&v)
		data = convert(v)
	case "u8":
		var v []uint64
		err = npy.Read(&v)
		data = convert(v)
	case "u4":
		var v []uint32
		err = npy.Read(&v)
		data = convert(v)
	case "u2":
		var v []uint16
		err = npy.Read(&v)
		data = convert(v)
	case "u1":
		var v []uint8
		err = npy.Read(&v)
		data = convert(v)
	case "b1":
		var v []bool
		err = npy.Read(&v)
		data = make([]float64, len(v))
		for i, b := range v {
			if b {
				data[i] = 1
			}
		}
	default:
		return nil, errors.Errorf("unsupported npy dtype %q", dtype)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read npy data")
	}
	return data, nil
}

type number interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func convert[T number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// transpose turns column-major data of a rows x cols matrix into row-major
// order.
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			out[j*cols+i] = data[i*rows+j]
		}
	}
	return out
}

func loadJSONArray(r io.Reader) (NDArray, error) {
	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return NDArray{}, errors.Wrap(err, "cannot decode JSON array")
	}
	shape := inferShape(v)
	data, err := flatten(v, shape, make([]float64, 0, product(shape)))
	if err != nil {
		return NDArray{}, err
	}
	return NDArray{Shape: shape, Data: data}, nil
}

// inferShape follows the first element at every depth.
func inferShape(v interface{}) []int {
	list, ok := v.([]interface{})
	if !ok {
		return []int{}
	}
	if len(list) == 0 {
		return []int{0}
	}
	return append([]int{len(list)}, inferShape(list[0])...)
}

func flatten(v interface{}, shape []int, out []float64) ([]float64, error) {
	if len(shape) > 0 {
		list, ok := v.([]interface{})
		if !ok || len(list) != shape[0] {
			return nil, errors.New("ragged JSON array")
		}
		var err error
		for _, e := range list {
			if out, err = flatten(e, shape[1:], out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	switch x := v.(type) {
	case float64:
		return append(out, x), nil
	case bool:
		if x {
			return append(out, 1), nil
		}
		return append(out, 0), nil
	case []interface{}:
		return nil, errors.New("ragged JSON array")
	}
	return nil, errors.Errorf("JSON array holds a non numeric value %v", v)
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
