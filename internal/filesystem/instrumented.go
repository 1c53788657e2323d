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

package filesystem

import (
	"context"
	"io"
	"net/url"

	"go.opencensus.io/tag"
	"go.opencensus.io/trace"

	"github.com/Mission-KI/pruefplattform/internal/telemetry"
)

// instrumentedFileSystem is a wrapper for a backend that provides
// instrumentation (metrics and tracing) of storage operations.
type instrumentedFileSystem struct {
	scheme string
	fs     FileSystem
}

// Instrument wraps fs so that every operation is traced and counted.
func Instrument(scheme string, fs FileSystem) FileSystem {
	if _, ok := fs.(*instrumentedFileSystem); ok {
		return fs
	}
	return &instrumentedFileSystem{scheme: scheme, fs: fs}
}

func (is *instrumentedFileSystem) record(ctx context.Context, op string) {
	telemetry.RecordUnitMeasurement(ctx, telemetry.StorageOps,
		tag.Upsert(telemetry.KeyScheme, is.scheme),
		tag.Upsert(telemetry.KeyOperation, op))
}

// Open implements FileSystem.
func (is *instrumentedFileSystem) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	ctx, span := trace.StartSpan(ctx, "filesystem/instrumented.Open")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("uri", u.String()))
	defer is.record(ctx, "open")
	return is.fs.Open(ctx, u)
}

// Create implements FileSystem.
func (is *instrumentedFileSystem) Create(ctx context.Context, u *url.URL) (io.WriteCloser, error) {
	ctx, span := trace.StartSpan(ctx, "filesystem/instrumented.Create")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("uri", u.String()))
	defer is.record(ctx, "create")
	return is.fs.Create(ctx, u)
}

// MkdirAll implements FileSystem.
func (is *instrumentedFileSystem) MkdirAll(ctx context.Context, u *url.URL) error {
	ctx, span := trace.StartSpan(ctx, "filesystem/instrumented.MkdirAll")
	defer span.End()
	defer is.record(ctx, "mkdir")
	return is.fs.MkdirAll(ctx, u)
}

// HealthCheck forwards to the wrapped backend when it has one.
func (is *instrumentedFileSystem) HealthCheck(ctx context.Context) error {
	if hc, ok := is.fs.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
