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
	"bytes"
	"io"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/pkg/errors"
)

// ArrowCodec reads and writes Arrow IPC files holding record batches.
type ArrowCodec struct{}

// Kind implements Codec.
func (ArrowCodec) Kind() Kind { return KindArrow }

// Extensions implements Codec.
func (ArrowCodec) Extensions() []string { return []string{".arrow"} }

// Load returns the record batches of the file in order, one per physical
// batch. The caller releases them. When opts.Schema is set the file schema
// must carry the same field names and types.
func (ArrowCodec) Load(r io.Reader, _ string, opts Options) (interface{}, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	reader, err := ipc.NewFileReader(bytes.NewReader(buf), ipc.WithAllocator(opts.allocator()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot open arrow file")
	}
	defer reader.Close()

	if opts.Schema != nil {
		if err := MatchSchema(opts.Schema, reader.Schema()); err != nil {
			return nil, err
		}
	}

	batches := make([]arrow.Record, 0, reader.NumRecords())
	for i := 0; i < reader.NumRecords(); i++ {
		rec, err := reader.Record(i)
		if err != nil {
			Release(batches)
			return nil, errors.Wrapf(err, "cannot read record batch %d", i)
		}
		rec.Retain()
		batches = append(batches, rec)
	}
	return batches, nil
}

// Store writes every batch as its own record batch, in order.
func (ArrowCodec) Store(w io.Writer, _ string, obj interface{}, opts Options) error {
	if opts.Schema == nil {
		return ErrSchemaRequired
	}

	var batches []arrow.Record
	switch b := obj.(type) {
	case []arrow.Record:
		batches = b
	case arrow.Record:
		batches = []arrow.Record{b}
	default:
		return errors.Errorf("arrow cannot store a %T", obj)
	}

	writer, err := ipc.NewFileWriter(&posWriter{w: w}, ipc.WithSchema(opts.Schema), ipc.WithAllocator(opts.allocator()))
	if err != nil {
		return errors.Wrap(err, "cannot create arrow writer")
	}
	for i, rec := range batches {
		if err := MatchSchema(opts.Schema, rec.Schema()); err != nil {
			_ = writer.Close()
			return errors.Wrapf(err, "record batch %d", i)
		}
		if err := writer.Write(rec); err != nil {
			_ = writer.Close()
			return errors.Wrapf(err, "cannot write record batch %d", i)
		}
	}
	return errors.Wrap(writer.Close(), "cannot finish arrow file")
}

// MatchSchema checks that got has the field names and types of want.
// Nullability and metadata are not compared.
func MatchSchema(want, got *arrow.Schema) error {
	if len(want.Fields()) != len(got.Fields()) {
		return errors.Errorf("schema mismatch: want %d fields, got %d", len(want.Fields()), len(got.Fields()))
	}
	for i, f := range want.Fields() {
		g := got.Field(i)
		if f.Name != g.Name {
			return errors.Errorf("schema mismatch: field %d is %q, want %q", i, g.Name, f.Name)
		}
		if !arrow.TypeEqual(f.Type, g.Type) {
			return errors.Errorf("schema mismatch: field %q has type %s, want %s", f.Name, g.Type, f.Type)
		}
	}
	return nil
}

// Release releases every batch.
func Release(batches []arrow.Record) {
	for _, b := range batches {
		b.Release()
	}
}

// posWriter lets the arrow file writer, which asks for its offset through
// Seek, write to streams that cannot seek.
type posWriter struct {
	w   io.Writer
	pos int64
}

func (p *posWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.pos += int64(n)
	return n, err
}

func (p *posWriter) Seek(offset int64, whence int) (int64, error) {
	if offset == 0 && whence == io.SeekCurrent {
		return p.pos, nil
	}
	return 0, errors.Errorf("arrow writer cannot seek to %d from %d", offset, whence)
}
