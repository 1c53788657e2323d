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

package rpc

import (
	"context"
	"net/http"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/plugin/ochttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/Mission-KI/pruefplattform/internal/telemetry"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

type insecureServer struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	proxyMux   *runtime.ServeMux
}

func (s *insecureServer) start(params *ServerParams) error {
	s.grpcServer = grpc.NewServer(newGRPCServerOptions(params)...)
	// Bind gRPC handlers
	for _, handlerFunc := range params.handlersForGrpc {
		handlerFunc(s.grpcServer)
	}

	// Configure the HTTP proxy server.
	s.proxyMux = runtime.NewServeMux(runtime.WithErrorHandler(proxyErrorHandler))
	ctx := context.Background()
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	for _, handlerFunc := range params.handlersForGrpcProxy {
		if err := handlerFunc(ctx, s.proxyMux, params.GrpcAddr().String(), dialOpts); err != nil {
			return errors.WithStack(err)
		}
	}

	params.ServeMux.Handle(telemetry.HealthCheckEndpoint, telemetry.NewHealthCheck(params.healthChecks))
	params.ServeMux.Handle("/", s.proxyMux)

	var handler http.Handler = params.ServeMux
	if params.enableMetrics {
		handler = &ochttp.Handler{Handler: handler}
	}
	s.httpServer = &http.Server{
		Addr:    params.ProxyAddr().String(),
		Handler: handler,
	}

	go func() {
		if err := s.grpcServer.Serve(params.grpcListener); err != nil {
			serverLogger.WithError(err).Debug("gRPC server stopped.")
		}
	}()
	go func() {
		if err := s.httpServer.Serve(params.grpcProxyListener); err != nil && err != http.ErrServerClosed {
			serverLogger.WithError(err).Error("HTTP server stopped.")
		}
	}()
	return nil
}

func (s *insecureServer) stop() error {
	s.grpcServer.Stop()
	return errors.WithStack(s.httpServer.Close())
}

func newGRPCServerOptions(params *ServerParams) []grpc.ServerOption {
	ui := []grpc.UnaryServerInterceptor{
		grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
			serverLogger.WithField("panic", p).Error("Recovered from panic in gRPC handler.")
			return status.Errorf(codes.Internal, "%v", p)
		})),
	}
	if params.enableRPCLogging {
		grpcLogger := logrus.WithFields(logrus.Fields{
			"app":       "barebone",
			"component": "grpc.server",
		})
		ui = append(ui, grpc_logrus.UnaryServerInterceptor(grpcLogger))
	}
	ui = append(ui, params.unaryInterceptors...)

	return []grpc.ServerOption{
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(ui...)),
		grpc.StatsHandler(&ocgrpc.ServerHandler{}),
	}
}

// proxyErrorHandler writes errors of the JSON proxy as google.rpc.Status
// bodies.
func proxyErrorHandler(_ context.Context, _ *runtime.ServeMux, m runtime.Marshaler, w http.ResponseWriter, _ *http.Request, err error) {
	st := toolerror.ProtoFromErr(err)
	buf, merr := m.Marshal(st)
	if merr != nil {
		serverLogger.WithError(merr).Error("cannot marshal error status")
		http.Error(w, st.GetMessage(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", m.ContentType(st))
	w.WriteHeader(runtime.HTTPStatusFromCode(codes.Code(st.GetCode())))
	if _, werr := w.Write(buf); werr != nil {
		serverLogger.WithError(werr).Debug("cannot write error response")
	}
}
