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

// Package artifact loads and stores the objects behind artifact nodes.
package artifact

import (
	"context"
	"io"
	"net/url"
	"path"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/tag"

	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/filesystem"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "artifact",
	})
)

type options struct {
	hash   bool
	schema *arrow.Schema
	mem    memory.Allocator
}

// Option tunes a single Load or Store.
type Option func(*options)

// WithHash controls whether Store computes a payload id. Defaults to true.
func WithHash(hash bool) Option {
	return func(o *options) { o.hash = hash }
}

// WithSchema sets the Arrow schema of the artifact.
func WithSchema(schema *arrow.Schema) Option {
	return func(o *options) { o.schema = schema }
}

// WithAllocator sets the allocator backing Arrow buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

func newOptions(opts []Option) options {
	o := options{hash: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) codecOptions() codec.Options {
	return codec.Options{Schema: o.schema, Allocator: o.mem}
}

// Resolver moves objects between memory and artifact locations. It holds no
// mutable state and may be shared between goroutines.
type Resolver struct {
	codecs      *codec.Registry
	filesystems *filesystem.Registry
}

// NewResolver creates a resolver over the given codecs and storage backends.
func NewResolver(codecs *codec.Registry, filesystems *filesystem.Registry) *Resolver {
	return &Resolver{
		codecs:      codecs,
		filesystems: filesystems,
	}
}

// Codecs returns the codec registry.
func (r *Resolver) Codecs() *codec.Registry {
	return r.codecs
}

type location struct {
	uri *url.URL
	ext string
	fs  filesystem.FileSystem
}

func (r *Resolver) locate(node message.ArtifactNode) (*location, error) {
	u, err := url.Parse(node.Location.URI)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %q has an invalid URI", node.Name)
	}
	fs, err := r.filesystems.Lookup(u.Scheme)
	if err != nil {
		return nil, err
	}
	return &location{uri: u, ext: path.Ext(objectName(u)), fs: fs}, nil
}

// Load decodes the artifact with the codec registered for its extension.
func (r *Resolver) Load(ctx context.Context, node message.ArtifactNode, opts ...Option) (interface{}, error) {
	loc, err := r.locate(node)
	if err != nil {
		return nil, err
	}
	c, err := r.codecs.Resolve(loc.ext)
	if err != nil {
		return nil, errors.WithStack(&toolerror.UnsupportedCodecError{Op: "load", Extension: loc.ext})
	}
	return r.load(ctx, c, loc, newOptions(opts))
}

// LoadAs decodes the artifact with the codec of the given kind, which must
// accept the artifact's extension.
func (r *Resolver) LoadAs(ctx context.Context, kind codec.Kind, node message.ArtifactNode, opts ...Option) (interface{}, error) {
	loc, err := r.locate(node)
	if err != nil {
		return nil, err
	}
	c, ok := r.codecs.ByKind(kind)
	if !ok || !hasExtension(c, loc.ext) {
		return nil, errors.WithStack(&toolerror.UnsupportedCodecError{Op: "load " + string(kind), Extension: loc.ext})
	}
	return r.load(ctx, c, loc, newOptions(opts))
}

func (r *Resolver) load(ctx context.Context, c codec.Codec, loc *location, o options) (interface{}, error) {
	rc, err := loc.fs.Open(ctx, loc.uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	obj, err := c.Load(rc, loc.ext, o.codecOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load %s", loc.uri.String())
	}

	logger.WithFields(logrus.Fields{
		"uri":  loc.uri.String(),
		"kind": c.Kind(),
	}).Debug("Artifact loaded.")
	return obj, nil
}

// LoadAll loads every input of msg by extension, in order.
func (r *Resolver) LoadAll(ctx context.Context, msg message.ExecutionMessage, opts ...Option) ([]interface{}, error) {
	objs := make([]interface{}, 0, len(msg.Input))
	for _, node := range msg.Input {
		obj, err := r.Load(ctx, node, opts...)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Store encodes obj into the artifact location of node and returns node
// with its payload id set when the codec can hash. The parent directory is
// created when missing.
func (r *Resolver) Store(ctx context.Context, obj interface{}, node message.ArtifactNode, opts ...Option) (message.ArtifactNode, error) {
	loc, err := r.locate(node)
	if err != nil {
		return node, err
	}
	c, err := r.codecs.Resolve(loc.ext)
	if err != nil {
		return node, errors.WithStack(&toolerror.UnsupportedCodecError{Op: "store", Extension: loc.ext})
	}
	storer, ok := c.(codec.Storer)
	if !ok {
		return node, errors.WithStack(&toolerror.UnsupportedCodecError{Op: "store", Extension: loc.ext})
	}
	o := newOptions(opts)

	node.PayloadID = ""
	if hasher, ok := c.(codec.Hasher); ok && o.hash {
		id, err := hasher.Hash(obj)
		if err != nil {
			return node, err
		}
		node.PayloadID = id
	}

	if err := loc.fs.MkdirAll(ctx, parent(loc.uri)); err != nil {
		return node, err
	}

	w, err := loc.fs.Create(ctx, loc.uri)
	if err != nil {
		return node, err
	}
	cw := &countingWriter{w: w}
	if err := storer.Store(cw, loc.ext, obj, o.codecOptions()); err != nil {
		if aerr := filesystem.Abort(w, err); aerr != nil {
			logger.WithFields(logrus.Fields{
				"uri":   loc.uri.String(),
				"error": aerr.Error(),
			}).Warning("Partial artifact could not be discarded.")
		}
		return node, errors.Wrapf(err, "cannot store %s", loc.uri.String())
	}
	if err := w.Close(); err != nil {
		return node, errors.WithStack(err)
	}

	telemetry.RecordNUnitMeasurement(ctx, telemetry.ArtifactBytes, cw.n, tag.Upsert(telemetry.KeyKind, string(c.Kind())))
	logger.WithFields(logrus.Fields{
		"uri":       loc.uri.String(),
		"kind":      c.Kind(),
		"bytes":     cw.n,
		"payloadId": node.PayloadID,
	}).Debug("Artifact stored.")
	return node, nil
}

// LoadDict loads a JSON value.
func (r *Resolver) LoadDict(ctx context.Context, node message.ArtifactNode) (interface{}, error) {
	return r.LoadAs(ctx, codec.KindDict, node)
}

// LoadNDArray loads a numeric array from .npy or .json.
func (r *Resolver) LoadNDArray(ctx context.Context, node message.ArtifactNode) (codec.NDArray, error) {
	obj, err := r.LoadAs(ctx, codec.KindNDArray, node)
	if err != nil {
		return codec.NDArray{}, err
	}
	return obj.(codec.NDArray), nil
}

// LoadFrame loads a CSV data frame.
func (r *Resolver) LoadFrame(ctx context.Context, node message.ArtifactNode) (dataframe.DataFrame, error) {
	obj, err := r.LoadAs(ctx, codec.KindFrame, node)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return obj.(dataframe.DataFrame), nil
}

// LoadArrow loads the record batches of an Arrow file. The caller releases
// them.
func (r *Resolver) LoadArrow(ctx context.Context, node message.ArtifactNode, schema *arrow.Schema, opts ...Option) ([]arrow.Record, error) {
	obj, err := r.LoadAs(ctx, codec.KindArrow, node, append(opts, WithSchema(schema))...)
	if err != nil {
		return nil, err
	}
	return obj.([]arrow.Record), nil
}

// StoreArrow writes batches as separate record batches of one Arrow file.
func (r *Resolver) StoreArrow(ctx context.Context, batches []arrow.Record, node message.ArtifactNode, schema *arrow.Schema, opts ...Option) (message.ArtifactNode, error) {
	return r.Store(ctx, batches, node, append(opts, WithSchema(schema))...)
}

func hasExtension(c codec.Codec, ext string) bool {
	for _, e := range c.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// objectName is the name the extension is read from. Host-only URIs such
// as mem://out.json name their object by the host, the same way the keyed
// backends address them.
func objectName(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	if u.Path == "" {
		return u.Host
	}
	return u.Path
}

func parent(u *url.URL) *url.URL {
	p := *u
	if p.Opaque != "" {
		p.Opaque = path.Dir(p.Opaque)
	} else {
		p.Path = path.Dir(p.Path)
	}
	return &p
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
