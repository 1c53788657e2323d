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
	"os"

	"github.com/pkg/errors"
)

// Local stores artifacts on the local disk.
type Local struct{}

// NewLocal returns the local disk backend.
func NewLocal() *Local {
	return &Local{}
}

// LocalPath returns the path a local URI refers to.
func LocalPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}

// Open implements FileSystem.
func (*Local) Open(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	f, err := os.Open(LocalPath(u))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// Create implements FileSystem.
func (*Local) Create(_ context.Context, u *url.URL) (io.WriteCloser, error) {
	f, err := os.Create(LocalPath(u))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &localWriter{File: f}, nil
}

// MkdirAll implements FileSystem.
func (*Local) MkdirAll(_ context.Context, u *url.URL) error {
	p := LocalPath(u)
	if p == "" || p == "." {
		return nil
	}
	return errors.WithStack(os.MkdirAll(p, 0o755))
}

type localWriter struct {
	*os.File
}

// Abort closes the file and removes what was written so far.
func (w *localWriter) Abort(error) error {
	_ = w.File.Close()
	if err := os.Remove(w.Name()); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}
