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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// DictCodec reads and writes arbitrary JSON values.
type DictCodec struct{}

// Kind implements Codec.
func (DictCodec) Kind() Kind { return KindDict }

// Extensions implements Codec.
func (DictCodec) Extensions() []string { return []string{".json"} }

// Load decodes one UTF-8 JSON value.
func (DictCodec) Load(r io.Reader, _ string, _ Options) (interface{}, error) {
	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, errors.Wrap(err, "cannot decode JSON artifact")
	}
	return v, nil
}

// Store writes the canonical serialization of obj.
func (DictCodec) Store(w io.Writer, _ string, obj interface{}, _ Options) error {
	b, err := MarshalCanonical(obj)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.WithStack(err)
}

// Hash returns the payload id of obj.
func (DictCodec) Hash(obj interface{}) (string, error) {
	b, err := MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return PayloadID(b), nil
}

// MarshalCanonical encodes obj as compact JSON with sorted object keys and
// without HTML escaping or a trailing newline.
func MarshalCanonical(obj interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, errors.Wrap(err, "cannot encode JSON artifact")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// PayloadID formats the content address of a serialized payload.
func PayloadID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}
