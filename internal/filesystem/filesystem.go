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

// Package filesystem provides byte level access to artifact locations.
// Backends are selected by URI scheme.
package filesystem

import (
	"context"
	"io"
	"net/url"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "filesystem",
	})
)

// FileSystem reads and writes the bytes behind artifact URIs.
type FileSystem interface {
	// Open returns a reader for u. Missing artifacts yield an error
	// matching fs.ErrNotExist.
	Open(ctx context.Context, u *url.URL) (io.ReadCloser, error)

	// Create returns a writer replacing the artifact at u. The artifact is
	// complete once Close returns nil.
	Create(ctx context.Context, u *url.URL) (io.WriteCloser, error)

	// MkdirAll creates the directory u and its parents. Backends without
	// directories do nothing.
	MkdirAll(ctx context.Context, u *url.URL) error
}

// Aborter is implemented by writers that can drop a partially written
// artifact. After Abort nothing is left at the URI the writer was created for.
type Aborter interface {
	Abort(cause error) error
}

// Abort discards w when it can be discarded and closes it otherwise.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(cause)
	}
	return w.Close()
}

// HealthChecker is implemented by backends that depend on a remote service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Registry maps URI schemes to backends.
type Registry struct {
	backends map[string]FileSystem
	closers  []func() error
}

// NewRegistry returns a registry with the local backend bound to the empty
// and "file" schemes.
func NewRegistry() *Registry {
	local := NewLocal()
	return &Registry{
		backends: map[string]FileSystem{
			"":     local,
			"file": local,
		},
	}
}

// Register binds scheme to fs, replacing any earlier binding.
func (r *Registry) Register(scheme string, fs FileSystem) {
	r.backends[scheme] = fs
}

// Lookup returns the backend for scheme.
func (r *Registry) Lookup(scheme string) (FileSystem, error) {
	fs, ok := r.backends[scheme]
	if !ok {
		return nil, errors.Errorf("no storage backend for scheme %q", scheme)
	}
	return fs, nil
}

// Schemes lists the bound schemes in order.
func (r *Registry) Schemes() []string {
	schemes := make([]string, 0, len(r.backends))
	for s := range r.backends {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// HealthChecks returns the health probes of every remote backend.
func (r *Registry) HealthChecks() []func(context.Context) error {
	var checks []func(context.Context) error
	for _, scheme := range r.Schemes() {
		if hc, ok := r.backends[scheme].(HealthChecker); ok {
			checks = append(checks, hc.HealthCheck)
		}
	}
	return checks
}

// Close releases backend resources.
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New builds the registry described by the storage section of cfg. The local
// backend is always present; s3 is bound when a region or endpoint is set and
// redis when a hostname is set. Backends are instrumented when metrics are
// enabled.
func New(cfg config.View) (*Registry, error) {
	r := NewRegistry()

	if cfg.IsSet("storage.s3.region") || cfg.IsSet("storage.s3.endpoint") {
		s3fs, err := NewS3(S3Options{
			Region:   cfg.GetString("storage.s3.region"),
			Endpoint: cfg.GetString("storage.s3.endpoint"),
		})
		if err != nil {
			return nil, err
		}
		r.Register("s3", s3fs)
	}

	if cfg.IsSet("storage.redis.hostname") {
		rfs, err := NewRedis(cfg)
		if err != nil {
			return nil, err
		}
		r.Register("redis", rfs)
		r.closers = append(r.closers, rfs.Close)
	}

	if cfg.GetBool(telemetry.ConfigNameEnableMetrics) {
		for scheme, fs := range r.backends {
			r.backends[scheme] = Instrument(scheme, fs)
		}
	}

	logger.WithField("schemes", r.Schemes()).Debug("Storage backends configured.")
	return r, nil
}
