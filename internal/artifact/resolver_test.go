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

package artifact

import (
	"context"
	"io/fs"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/filesystem"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

func newTestResolver() (*Resolver, *filesystem.Mem) {
	fss := filesystem.NewRegistry()
	mem := filesystem.NewMem()
	fss.Register("mem", mem)
	return NewResolver(codec.NewDefaultRegistry(nil), fss), mem
}

func TestDictRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, _ := newTestResolver()

	out := filepath.Join(t.TempDir(), "nested", "deeper", "result.json")
	obj := map[string]interface{}{"fourtytwo": 42.0, "labels": []interface{}{"a", "b"}}

	stored, err := r.Store(ctx, obj, message.NewNode("result", out))
	require.NoError(err)
	require.Equal("result", stored.Name)
	require.Equal(out, stored.Location.URI)

	payload, err := os.ReadFile(out)
	require.NoError(err)
	require.Equal(`{"fourtytwo":42,"labels":["a","b"]}`, string(payload))
	require.Equal(codec.PayloadID(payload), stored.PayloadID)

	got, err := r.Load(ctx, stored)
	require.NoError(err)
	require.Equal(obj, got)
}

func TestPayloadIDOfFourtyTwo(t *testing.T) {
	require := require.New(t)
	r, _ := newTestResolver()

	stored, err := r.Store(context.Background(), 42, message.NewNode("output", "mem:///run/out.json"))
	require.NoError(err)
	require.Equal("sha256:73475cb40a568e8da8a045ced110137e159f890ac4da883b6b17dc651b3a8049", stored.PayloadID)
}

func TestStoreWithoutHash(t *testing.T) {
	require := require.New(t)
	r, _ := newTestResolver()
	ctx := context.Background()

	node := message.ArtifactNode{Name: "o", Location: message.Location{URI: "mem:///run/out.json"}, PayloadID: "sha256:stale"}
	stored, err := r.Store(ctx, 1, node, WithHash(false))
	require.NoError(err)
	require.Empty(stored.PayloadID)

	stored, err = r.Store(ctx, codec.NDArray{Shape: []int{1}, Data: []float64{1}}, message.NewNode("o", "mem:///run/out.npy"))
	require.NoError(err)
	require.Empty(stored.PayloadID)
}

func TestNPYRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, _ := newTestResolver()

	arr := codec.NDArray{Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}}
	out := filepath.Join(t.TempDir(), "arrays", "m.npy")
	node, err := r.Store(ctx, arr, message.NewNode("m", out))
	require.NoError(err)

	got, err := r.Load(ctx, node)
	require.NoError(err)
	require.Equal(arr, got)

	got2, err := r.LoadNDArray(ctx, node)
	require.NoError(err)
	require.Equal(arr, got2)
}

func TestUnsupportedExtension(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, _ := newTestResolver()
	dir := t.TempDir()
	out := filepath.Join(dir, "sub", "file.xyz")

	var unsupported *toolerror.UnsupportedCodecError

	_, err := r.Load(ctx, message.NewNode("in", out))
	require.True(errors.As(err, &unsupported))
	require.Equal(".xyz", unsupported.Extension)

	_, err = r.Store(ctx, 1, message.NewNode("out", out))
	require.True(errors.As(err, &unsupported))
	require.Equal("store", unsupported.Op)

	_, err = os.Stat(filepath.Join(dir, "sub"))
	require.True(os.IsNotExist(err))

	_, err = r.Store(ctx, 1, message.NewNode("out", filepath.Join(dir, "frame.csv")))
	require.True(errors.As(err, &unsupported))
}

func TestTrueLabels(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, _ := newTestResolver()
	node := message.NewNode("y_true", filepath.Join("testdata", "true_labels.json"))

	arr, err := r.LoadNDArray(ctx, node)
	require.NoError(err)
	require.Equal([]int{40}, arr.Shape)

	// By extension the same file is a plain JSON value.
	obj, err := r.Load(ctx, node)
	require.NoError(err)
	require.Len(obj, 40)
}

func TestLoadFrame(t *testing.T) {
	require := require.New(t)
	r, _ := newTestResolver()

	df, err := r.LoadFrame(context.Background(), message.NewNode("x", filepath.Join("testdata", "sample.csv")))
	require.NoError(err)
	require.Equal([]string{"feature", "label"}, df.Names())
	require.Equal(3, df.Nrow())
}

func TestLoadAll(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, _ := newTestResolver()

	_, err := r.Store(ctx, "hello", message.NewNode("a", "mem:///in/a.json"))
	require.NoError(err)

	msg := message.ExecutionMessage{
		Func: "f",
		Input: []message.ArtifactNode{
			message.NewNode("a", "mem:///in/a.json"),
			message.NewNode("b", filepath.Join("testdata", "sample.csv")),
		},
	}
	objs, err := r.LoadAll(ctx, msg)
	require.NoError(err)
	require.Len(objs, 2)
	require.Equal("hello", objs[0])
}

func TestMissingArtifact(t *testing.T) {
	require := require.New(t)
	r, _ := newTestResolver()

	_, err := r.Load(context.Background(), message.NewNode("in", filepath.Join(t.TempDir(), "missing.json")))
	require.True(errors.Is(err, fs.ErrNotExist))
	_, ok := errors.Cause(err).(*fs.PathError)
	require.True(ok)

	_, err = r.Load(context.Background(), message.NewNode("in", "gs://bucket/x.json"))
	require.Error(err)
}

func TestDisabledKind(t *testing.T) {
	require := require.New(t)
	r := NewResolver(codec.NewDefaultRegistry([]codec.Kind{codec.KindDict}), filesystem.NewRegistry())

	var unsupported *toolerror.UnsupportedCodecError
	_, err := r.LoadNDArray(context.Background(), message.NewNode("y", filepath.Join("testdata", "true_labels.json")))
	require.True(errors.As(err, &unsupported))

	_, err = r.LoadDict(context.Background(), message.NewNode("y", filepath.Join("testdata", "true_labels.json")))
	require.NoError(err)
}

func TestArrowRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, _ := newTestResolver()
	alloc := memory.NewGoAllocator()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "mean", Type: arrow.PrimitiveTypes.Float64},
		{Name: "std", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	values := [][2][]float64{
		{{0.1, 0.2, 0.3}, {1, 1, 1}},
		{{math.Pi, -math.E}, {1e-300, 1e300}},
	}
	var batches []arrow.Record
	for _, v := range values {
		b := array.NewRecordBuilder(alloc, schema)
		b.Field(0).(*array.Float64Builder).AppendValues(v[0], nil)
		b.Field(1).(*array.Float64Builder).AppendValues(v[1], nil)
		batches = append(batches, b.NewRecord())
		b.Release()
	}
	defer codec.Release(batches)

	node, err := r.StoreArrow(ctx, batches, message.NewNode("predictions", "mem:///run/predictions.arrow"), schema)
	require.NoError(err)
	require.Empty(node.PayloadID)

	got, err := r.LoadArrow(ctx, node, schema, WithAllocator(alloc))
	require.NoError(err)
	defer codec.Release(got)

	require.Len(got, 2)
	for i, v := range values {
		for c := 0; c < 2; c++ {
			col := got[i].Column(c).(*array.Float64)
			require.Equal(len(v[c]), col.Len())
			for j, x := range v[c] {
				require.Equal(math.Float64bits(x), math.Float64bits(col.Value(j)))
			}
		}
	}

	_, err = r.StoreArrow(ctx, batches, message.NewNode("predictions", "mem:///run/other.arrow"), nil)
	require.True(errors.Is(err, codec.ErrSchemaRequired))
}

func TestHostOnlyURIKeepsExtension(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, mem := newTestResolver()

	node, err := r.Store(ctx, 42, message.NewNode("out", "mem://out.json"))
	require.NoError(err)
	require.NotEmpty(node.PayloadID)

	got, err := r.Load(ctx, message.NewNode("out", "mem:///out.json"))
	require.NoError(err)
	require.Equal(42.0, got)

	u, err := url.Parse("mem:///out.json")
	require.NoError(err)
	b, ok := mem.Bytes(u)
	require.True(ok)
	require.Equal("42", string(b))
}

func TestStoreFailureLeavesNoArtifact(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	r, mem := newTestResolver()

	out := filepath.Join(t.TempDir(), "partial.npy")
	_, err := r.Store(ctx, "not an array", message.NewNode("m", out))
	require.Error(err)
	_, err = os.Stat(out)
	require.True(os.IsNotExist(err), "%v", err)

	_, err = r.Store(ctx, "not an array", message.NewNode("m", "mem:///partial.npy"))
	require.Error(err)
	u, err := url.Parse("mem:///partial.npy")
	require.NoError(err)
	_, ok := mem.Bytes(u)
	require.False(ok)
}
