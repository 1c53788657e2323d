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

// Package codec maps artifact file extensions to in-memory object codecs.
package codec

import (
	"io"
	"sort"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kind names a family of in-memory objects.
type Kind string

const (
	// KindDict is an arbitrary JSON value.
	KindDict Kind = "dict"
	// KindNDArray is a dense numeric array.
	KindNDArray Kind = "ndarray"
	// KindFrame is a tabular data frame.
	KindFrame Kind = "frame"
	// KindArrow is an ordered list of Arrow record batches.
	KindArrow Kind = "arrow"
)

var (
	// ErrUnsupportedFormat is returned by Resolve when no codec handles an extension.
	ErrUnsupportedFormat = errors.New("unsupported artifact format")
	// ErrSchemaRequired is returned when Arrow batches are stored without a schema.
	ErrSchemaRequired = errors.New("an arrow schema is required to store record batches")

	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "codec",
	})
)

// Options tune a single load or store.
type Options struct {
	// Schema is the Arrow schema of the artifact. Required to store batches,
	// checked against the file when loading.
	Schema *arrow.Schema
	// Allocator backs Arrow buffers. Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
}

func (o Options) allocator() memory.Allocator {
	if o.Allocator == nil {
		return memory.DefaultAllocator
	}
	return o.Allocator
}

// Codec decodes artifacts of one kind.
type Codec interface {
	Kind() Kind
	Extensions() []string
	Load(r io.Reader, ext string, opts Options) (interface{}, error)
}

// Storer is implemented by codecs that can encode objects.
type Storer interface {
	Store(w io.Writer, ext string, obj interface{}, opts Options) error
}

// Hasher is implemented by codecs with a canonical serialization. Hash
// returns "sha256:<hex>" of exactly the bytes Store writes.
type Hasher interface {
	Hash(obj interface{}) (string, error)
}

// Capability describes what a registry can do with one extension.
type Capability struct {
	Extension string
	Kind      Kind
	Load      bool
	Store     bool
	Hash      bool
}

// Registry maps extensions to codecs. It must not be modified once shared
// between goroutines.
type Registry struct {
	byExt  map[string]Codec
	byKind map[Kind]Codec
}

// NewRegistry returns a registry holding codecs in registration order.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{
		byExt:  map[string]Codec{},
		byKind: map[Kind]Codec{},
	}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Register adds c for each of its extensions. A later registration of an
// extension replaces the earlier one.
func (r *Registry) Register(c Codec) {
	for _, ext := range c.Extensions() {
		if prev, ok := r.byExt[ext]; ok && prev.Kind() != c.Kind() {
			logger.WithFields(logrus.Fields{
				"extension": ext,
				"previous":  prev.Kind(),
				"codec":     c.Kind(),
			}).Debug("Codec registration replaces an earlier one.")
		}
		r.byExt[ext] = c
	}
	r.byKind[c.Kind()] = c
}

// Resolve returns the codec registered for ext.
func (r *Registry) Resolve(ext string) (Codec, error) {
	c, ok := r.byExt[ext]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
	return c, nil
}

// ByKind returns the codec of a given kind, regardless of which codec owns
// its extensions.
func (r *Registry) ByKind(kind Kind) (Codec, bool) {
	c, ok := r.byKind[kind]
	return c, ok
}

// Capabilities lists every registered extension ordered by name.
func (r *Registry) Capabilities() []Capability {
	caps := make([]Capability, 0, len(r.byExt))
	for ext, c := range r.byExt {
		_, store := c.(Storer)
		_, hash := c.(Hasher)
		caps = append(caps, Capability{
			Extension: ext,
			Kind:      c.Kind(),
			Load:      true,
			Store:     store,
			Hash:      hash,
		})
	}
	sort.Slice(caps, func(i, j int) bool {
		return caps[i].Extension < caps[j].Extension
	})
	return caps
}

// defaultCodecs is the built-in table. Order matters: dict follows ndarray
// so that it owns ".json".
func defaultCodecs() []Codec {
	return []Codec{
		NDArrayCodec{},
		DictCodec{},
		FrameCodec{},
		ArrowCodec{},
	}
}

// AllKinds lists the built-in kinds.
func AllKinds() []Kind {
	return []Kind{KindNDArray, KindDict, KindFrame, KindArrow}
}

// NewDefaultRegistry builds a registry from the built-in codecs whose kind is
// enabled. A nil list enables every kind.
func NewDefaultRegistry(enabled []Kind) *Registry {
	if enabled == nil {
		enabled = AllKinds()
	}
	on := map[Kind]bool{}
	for _, k := range enabled {
		on[k] = true
	}

	r := NewRegistry()
	for _, c := range defaultCodecs() {
		if on[c.Kind()] {
			r.Register(c)
		}
	}
	return r
}

// ParseKinds converts configured kind names. Unknown names are returned
// separately so callers can warn about them.
func ParseKinds(names []string) (kinds []Kind, unknown []string) {
	known := map[Kind]bool{}
	for _, k := range AllKinds() {
		known[k] = true
	}
	kinds = []Kind{}
	for _, name := range names {
		if k := Kind(name); known[k] {
			kinds = append(kinds, k)
		} else {
			unknown = append(unknown, name)
		}
	}
	return kinds, unknown
}
