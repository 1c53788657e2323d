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

// Package appmain contains the common application initialization code for tool servers.
package appmain

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/logging"
	"github.com/Mission-KI/pruefplattform/internal/rpc"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "app.main",
	})
)

// RunApplication starts the tool server and serves until the container
// runtime signals SIGTERM or the user interrupts it.
func RunApplication(serverName string, bind Bind) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := StartApplication(serverName, bind, config.Read, net.Listen)
	if err != nil {
		logger.WithError(err).Fatal("Cannot start tool server.")
	}

	<-ctx.Done()
	if err := a.Stop(); err != nil {
		logger.WithError(err).Fatal("Tool server did not stop cleanly.")
	}
	logger.Info("Tool server stopped.")
}

// Bind wires the functions of a tool into a starting server.
type Bind func(p *Params, b *Bindings) error

// Params are the read-only inputs of a starting tool.
type Params struct {
	config      config.View
	serviceName string
}

// Config provides the configuration for the application.
func (p *Params) Config() config.View {
	return p.config
}

// ServiceName names the server in config sections and telemetry.
func (p *Params) ServiceName() string {
	return p.serviceName
}

// Bindings attach services, handlers and cleanup to a starting tool.
type Bindings struct {
	sp *rpc.ServerParams
	a  *App
}

// AddHealthCheckFunc adds a readiness check, for example a storage backend
// ping, to the health endpoint.
func (b *Bindings) AddHealthCheckFunc(f func(context.Context) error) {
	b.sp.AddHealthCheckFunc(f)
}

// AddHandleFunc registers a gRPC service and its optional HTTP proxy.
func (b *Bindings) AddHandleFunc(handlerFunc rpc.GrpcHandler, grpcProxyHandler rpc.GrpcProxyHandler) {
	b.sp.AddHandleFunc(handlerFunc, grpcProxyHandler)
}

// AddUnaryInterceptor wraps every unary call of the grpc server.
func (b *Bindings) AddUnaryInterceptor(i grpc.UnaryServerInterceptor) {
	b.sp.AddUnaryInterceptor(i)
}

// TelemetryHandle adds a handler to the HTTP side of the server.
func (b *Bindings) TelemetryHandle(pattern string, handler http.Handler) {
	b.sp.ServeMux.Handle(pattern, handler)
}

// TelemetryHandleFunc adds a handler function to the HTTP side of the server.
func (b *Bindings) TelemetryHandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	b.sp.ServeMux.HandleFunc(pattern, handler)
}

// AddCloser runs c when the application stops.
func (b *Bindings) AddCloser(c func()) {
	b.AddCloserErr(func() error {
		c()
		return nil
	})
}

// AddCloserErr runs c when the application stops and reports its error.
func (b *Bindings) AddCloserErr(c func() error) {
	b.a.closers = append(b.a.closers, c)
}

// App is a started tool server.
type App struct {
	closers []func() error
}

// StartApplication reads the configuration, binds telemetry and the tool
// and starts serving on listeners obtained from listen. Tests pass their own
// config and listeners.
func StartApplication(serverName string, bind Bind, getCfg func() (config.View, error), listen func(network, address string) (net.Listener, error)) (*App, error) {
	cfg, err := getCfg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read configuration")
	}
	logging.ConfigureLogging(cfg)

	sp, err := rpc.NewServerParamsFromConfig(cfg, "api."+serverName, listen)
	if err != nil {
		return nil, errors.Wrap(err, "cannot construct server")
	}

	a := &App{}
	p := &Params{config: cfg, serviceName: serverName}
	b := &Bindings{sp: sp, a: a}

	abort := func(err error) (*App, error) {
		sp.Invalidate()
		if stopErr := a.Stop(); stopErr != nil {
			logger.WithError(stopErr).Warn("Cleanup after failed start reported an error.")
		}
		return nil, err
	}
	if err := telemetry.Setup(p, b); err != nil {
		return abort(err)
	}
	if err := bind(p, b); err != nil {
		return abort(err)
	}

	s := &rpc.Server{}
	if err := s.Start(sp); err != nil {
		if stopErr := a.Stop(); stopErr != nil {
			logger.WithError(stopErr).Warn("Cleanup after failed start reported an error.")
		}
		return nil, err
	}
	b.AddCloserErr(s.Stop)

	logger.WithFields(logrus.Fields{
		"service": serverName,
		"workdir": cfg.GetString("tool.workdir"),
	}).Info("Tool server started.")
	return a, nil
}

// Stop runs the closers in reverse registration order so the server stops
// before the storage it depends on. Every closer runs; the first error is
// returned and the rest are logged.
func (a *App) Stop() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err := a.closers[i]()
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
			continue
		}
		logger.WithError(err).Warn("Additional error while stopping.")
	}
	return firstErr
}
