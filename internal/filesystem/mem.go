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
	"bytes"
	"context"
	"io"
	"io/fs"
	"net/url"
	"strings"
	"sync"
)

// Mem keeps artifacts in process memory. Used by tests and by tools that
// chain functions without touching disk. Keys join the URI host and path, so
// mem://run/out.json and mem:///run/out.json name the same artifact.
type Mem struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMem returns an empty in-memory backend.
func NewMem() *Mem {
	return &Mem{files: map[string][]byte{}}
}

func memKey(u *url.URL) string {
	return strings.TrimPrefix(u.Host+u.Path, "/")
}

// Open implements FileSystem.
func (m *Mem) Open(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[memKey(u)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: u.String(), Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Create implements FileSystem.
func (m *Mem) Create(_ context.Context, u *url.URL) (io.WriteCloser, error) {
	key := memKey(u)
	return &bufferedWriter{commit: func(b []byte) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.files[key] = b
		return nil
	}}, nil
}

// MkdirAll implements FileSystem.
func (*Mem) MkdirAll(context.Context, *url.URL) error {
	return nil
}

// Bytes returns a copy of the artifact stored under u.
func (m *Mem) Bytes(u *url.URL) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[memKey(u)]
	return append([]byte(nil), b...), ok
}

// bufferedWriter collects writes and hands them to commit on Close.
type bufferedWriter struct {
	buf    bytes.Buffer
	commit func([]byte) error
	closed bool
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Abort drops the buffered bytes without committing them.
func (w *bufferedWriter) Abort(error) error {
	w.closed = true
	w.buf.Reset()
	return nil
}

func (w *bufferedWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.commit(w.buf.Bytes())
}
