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

// Package toolerror defines the errors a tool reports to its caller and
// their translation into gRPC status codes.
package toolerror

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/pkg/errors"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnsupportedCodecError is returned when no codec is registered for an
// extension, or the registered codec cannot perform the operation.
type UnsupportedCodecError struct {
	Op        string
	Extension string
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("no codec can %s artifacts with extension %q", e.Op, e.Extension)
}

// FunctionNotFoundError is returned when a message names a function the tool
// does not provide.
type FunctionNotFoundError struct {
	Func string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function %q not found", e.Func)
}

// InvalidConfigError is returned when a config input does not satisfy the
// schema declared for it.
type InvalidConfigError struct {
	Func       string
	Diagnostic string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config for function %q: %s", e.Func, e.Diagnostic)
}

// ArityMismatchError is returned when a message carries fewer artifact nodes
// than the function declares.
type ArityMismatchError struct {
	Func      string
	Direction string
	Want      int
	Got       int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("function %q expects %d %s artifacts, got %d", e.Func, e.Want, e.Direction, e.Got)
}

// ToStatus converts an error returned by a tool function into a gRPC status
// error carrying the error text. A nil error stays nil.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		return s.Err()
	}
	return status.Error(Code(err), err.Error())
}

// Code picks the gRPC code that describes err.
func Code(err error) codes.Code {
	var (
		unsupported *UnsupportedCodecError
		notFound    *FunctionNotFoundError
		config      *InvalidConfigError
		arity       *ArityMismatchError
	)
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	switch {
	case errors.As(err, &unsupported), errors.As(err, &config), errors.As(err, &arity):
		return codes.InvalidArgument
	case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		return codes.NotFound
	case errors.Is(err, fs.ErrPermission):
		return codes.PermissionDenied
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}

// ProtoFromErr converts an error into a grpc status.  It differs from
// google.golang.org/grpc/status in that it will return an OK code on nil, and
// returns the proper codes for context cancelation and deadline exceeded.
func ProtoFromErr(err error) *spb.Status {
	switch err {
	case nil:
		return &spb.Status{Code: int32(codes.OK)}
	case context.DeadlineExceeded:
		fallthrough
	case context.Canceled:
		return status.FromContextError(err).Proto()
	default:
		return status.Convert(ToStatus(err)).Proto()
	}
}
