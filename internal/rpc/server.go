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

// Package rpc hosts the gRPC server of a tool next to its HTTP side
// (health checks, telemetry and the JSON proxy) and builds clients for it.
package rpc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
)

var (
	serverLogger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "server",
	})
)

// GrpcHandler binds gRPC services.
type GrpcHandler func(*grpc.Server)

// GrpcProxyHandler binds HTTP handlers to a gRPC service reachable at the
// given endpoint.
type GrpcProxyHandler func(context.Context, *runtime.ServeMux, string, []grpc.DialOption) error

// ServerParams holds all the parameters required to start a gRPC server.
type ServerParams struct {
	// ServeMux is the router for the HTTP server. You can use this to serve pages in addition to the HTTP proxy.
	// Do NOT register "/" handler because it's reserved for the proxy.
	ServeMux             *http.ServeMux
	handlersForGrpc      []GrpcHandler
	handlersForGrpcProxy []GrpcProxyHandler
	unaryInterceptors    []grpc.UnaryServerInterceptor
	healthChecks         []func(context.Context) error
	grpcListener         net.Listener
	grpcProxyListener    net.Listener

	enableRPCLogging bool
	enableMetrics    bool
}

// NewServerParamsFromConfig returns server Params initialized from the
// configuration. prefix names the config section holding grpcport and
// httpport.
func NewServerParamsFromConfig(cfg config.View, prefix string, listen func(network, address string) (net.Listener, error)) (*ServerParams, error) {
	grpcL, err := listen("tcp", fmt.Sprintf(":%d", cfg.GetInt(prefix+".grpcport")))
	if err != nil {
		return nil, errors.Wrap(err, "cannot listen on grpc port")
	}
	httpL, err := listen("tcp", fmt.Sprintf(":%d", cfg.GetInt(prefix+".httpport")))
	if err != nil {
		if closeErr := grpcL.Close(); closeErr != nil {
			serverLogger.WithFields(logrus.Fields{
				"error": closeErr.Error(),
			}).Info("failed to gRPC close port")
		}
		return nil, errors.Wrap(err, "cannot listen on http port")
	}

	p := NewServerParamsFromListeners(grpcL, httpL)
	p.enableRPCLogging = cfg.GetBool(ConfigNameEnableRPCLogging)
	p.enableMetrics = cfg.GetBool(telemetry.ConfigNameEnableMetrics)
	return p, nil
}

// NewServerParamsFromListeners returns server Params serving on the given
// listeners.
func NewServerParamsFromListeners(grpcL net.Listener, proxyL net.Listener) *ServerParams {
	return &ServerParams{
		ServeMux:             http.NewServeMux(),
		handlersForGrpc:      []GrpcHandler{},
		handlersForGrpcProxy: []GrpcProxyHandler{},
		grpcListener:         grpcL,
		grpcProxyListener:    proxyL,
	}
}

// AddHandleFunc binds gRPC service handler and an associated HTTP proxy handler.
func (p *ServerParams) AddHandleFunc(handlerFunc GrpcHandler, grpcProxyHandler GrpcProxyHandler) {
	if handlerFunc != nil {
		p.handlersForGrpc = append(p.handlersForGrpc, handlerFunc)
	}
	if grpcProxyHandler != nil {
		p.handlersForGrpcProxy = append(p.handlersForGrpcProxy, grpcProxyHandler)
	}
}

// AddUnaryInterceptor appends an interceptor run after recovery and logging.
func (p *ServerParams) AddUnaryInterceptor(i grpc.UnaryServerInterceptor) {
	p.unaryInterceptors = append(p.unaryInterceptors, i)
}

// AddHealthCheckFunc adds a readiness probe to the health check endpoint.
func (p *ServerParams) AddHealthCheckFunc(f func(context.Context) error) {
	p.healthChecks = append(p.healthChecks, f)
}

// GrpcAddr returns the address the gRPC server listens on.
func (p *ServerParams) GrpcAddr() net.Addr {
	return p.grpcListener.Addr()
}

// ProxyAddr returns the address the HTTP server listens on.
func (p *ServerParams) ProxyAddr() net.Addr {
	return p.grpcProxyListener.Addr()
}

// Invalidate closes all the TCP listeners that would otherwise leak if initialization fails.
func (p *ServerParams) Invalidate() {
	if err := p.grpcListener.Close(); err != nil {
		serverLogger.Debugf("error closing grpc listener, %s", err)
	}
	if err := p.grpcProxyListener.Close(); err != nil {
		serverLogger.Debugf("error closing grpc-proxy listener, %s", err)
	}
}

// Server hosts a gRPC and HTTP server.
// All HTTP traffic is served from a common http.ServeMux.
type Server struct {
	s *insecureServer
}

// Start the gRPC+HTTP server. The listeners of p are owned by the server
// from then on, even when Start fails.
func (s *Server) Start(p *ServerParams) error {
	s.s = &insecureServer{}
	if err := s.s.start(p); err != nil {
		p.Invalidate()
		return err
	}
	serverLogger.WithFields(logrus.Fields{
		"grpc": p.GrpcAddr().String(),
		"http": p.ProxyAddr().String(),
	}).Info("Server has started.")
	return nil
}

// Stop the gRPC+HTTP server.
func (s *Server) Stop() error {
	if s.s == nil {
		return nil
	}
	return s.s.stop()
}
