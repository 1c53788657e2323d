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

package harness

import (
	"context"
	"io"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Mission-KI/pruefplattform/pkg/pb"
)

// ExecPath is the JSON proxy route of Module.exec.
const ExecPath = "/v1/exec"

// registerExecProxy serves POST /v1/exec by forwarding the JSON encoded
// execution message to the gRPC endpoint.
func registerExecProxy(ctx context.Context, mux *runtime.ServeMux, endpoint string, opts []grpc.DialOption) error {
	conn, err := grpc.Dial(endpoint, opts...)
	if err != nil {
		return errors.WithStack(err)
	}
	go func() {
		<-ctx.Done()
		if cerr := conn.Close(); cerr != nil {
			logger.WithError(cerr).Debug("cannot close proxy connection")
		}
	}()
	client := pb.NewModuleClient(conn)

	return mux.HandlePath(http.MethodPost, ExecPath, func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		inbound, outbound := runtime.MarshalerForRequest(mux, r)

		req := &pb.ExecutionMessage{}
		if err := inbound.NewDecoder(r.Body).Decode(req); err != nil && err != io.EOF {
			runtime.HTTPError(r.Context(), mux, outbound, w, r, status.Errorf(codes.InvalidArgument, "%v", err))
			return
		}

		resp, err := client.Exec(r.Context(), req)
		if err != nil {
			runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
			return
		}

		buf, err := outbound.Marshal(resp)
		if err != nil {
			runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(resp))
		if _, err := w.Write(buf); err != nil {
			logger.WithError(err).Debug("cannot write proxy response")
		}
	})
}
