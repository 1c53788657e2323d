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
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/plugin/ochttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/logging"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
)

const (
	// ConfigNameEnableRPCLogging is the config name for enabling RPC logging.
	ConfigNameEnableRPCLogging = "logging.rpc"

	defaultHTTPTimeout = 3 * time.Second
)

var (
	clientLogger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "client",
	})
)

// ClientParams contains the connection parameters to connect to a tool.
type ClientParams struct {
	Address                 string
	EnableRPCLogging        bool
	EnableRPCPayloadLogging bool
	EnableMetrics           bool
	// HTTPTimeout bounds every request of HTTP clients. Zero means
	// defaultHTTPTimeout.
	HTTPTimeout time.Duration
}

// NewClientParams reads the client flags of cfg for address.
func NewClientParams(cfg config.View, address string) *ClientParams {
	return &ClientParams{
		Address:                 address,
		EnableRPCLogging:        cfg.GetBool(ConfigNameEnableRPCLogging),
		EnableRPCPayloadLogging: logging.IsDebugEnabled(cfg),
		EnableMetrics:           cfg.GetBool(telemetry.ConfigNameEnableMetrics),
	}
}

// GRPCClientFromConfig creates a gRPC client connection to the hostname and
// grpcport of the config section prefix.
func GRPCClientFromConfig(cfg config.View, prefix string) (*grpc.ClientConn, error) {
	return GRPCClientFromParams(NewClientParams(cfg, toAddress(cfg.GetString(prefix+".hostname"), cfg.GetInt(prefix+".grpcport"))))
}

// GRPCClientFromParams creates a plaintext gRPC client connection from the
// parameters. Connecting is lazy: the first call dials.
func GRPCClientFromParams(params *ClientParams) (*grpc.ClientConn, error) {
	conn, err := grpc.Dial(params.Address, newGRPCDialOptions(params)...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create client for %s", params.Address)
	}
	return conn, nil
}

// HTTPClientFromConfig creates a HTTP client to the hostname and httpport of
// the config section prefix. It returns the base URL of the server.
func HTTPClientFromConfig(cfg config.View, prefix string) (*http.Client, string, error) {
	return HTTPClientFromParams(NewClientParams(cfg, toAddress(cfg.GetString(prefix+".hostname"), cfg.GetInt(prefix+".httpport"))))
}

// HTTPClientFromParams creates a HTTP client for the health and proxy
// endpoints of a tool. Addresses without a scheme are plain http.
func HTTPClientFromParams(params *ClientParams) (*http.Client, string, error) {
	baseURL, err := baseURLOf(params.Address)
	if err != nil {
		return nil, "", err
	}

	var transport http.RoundTripper = http.DefaultTransport
	if params.EnableMetrics {
		transport = &ochttp.Transport{Base: transport}
	}
	if params.EnableRPCLogging {
		transport = &loggingTransport{base: transport, dumpPayloads: params.EnableRPCPayloadLogging}
	}

	timeout := params.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout, Transport: transport}, baseURL, nil
}

func baseURLOf(address string) (string, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", errors.Wrapf(err, "%s is not a valid HTTP address", address)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Errorf("%s is not a HTTP(S) address", address)
	}
	if u.Host == "" {
		return "", errors.Errorf("%s has no host", address)
	}
	return u.String(), nil
}

func newGRPCDialOptions(params *ClientParams) []grpc.DialOption {
	var ui []grpc.UnaryClientInterceptor
	if params.EnableRPCLogging {
		grpcLogger := logrus.WithFields(logrus.Fields{
			"app":       "barebone",
			"component": "grpc.client",
		})
		if params.EnableRPCPayloadLogging {
			logEverythingFromClient := func(_ context.Context, _ string) bool {
				return true
			}
			ui = append(ui, grpc_logrus.PayloadUnaryClientInterceptor(grpcLogger, logEverythingFromClient))
		}
		ui = append(ui, grpc_logrus.UnaryClientInterceptor(grpcLogger))
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpc_middleware.ChainUnaryClient(ui...)),
	}
	if params.EnableMetrics {
		opts = append(opts, grpc.WithStatsHandler(new(ocgrpc.ClientHandler)))
	}
	return opts
}

func toAddress(hostname string, port int) string {
	return fmt.Sprintf("%s:%d", hostname, port)
}

// loggingTransport logs one line per request. Request and response dumps
// are logged at trace level when payload logging is on.
type loggingTransport struct {
	base         http.RoundTripper
	dumpPayloads bool
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	entry := clientLogger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	if t.dumpPayloads {
		if dump, err := httputil.DumpRequestOut(req, true); err == nil {
			entry.Trace(string(dump))
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	entry = entry.WithField("elapsed", time.Since(start))
	if err != nil {
		entry.WithError(err).Debug("HTTP request failed.")
		return nil, err
	}

	entry.WithField("status", resp.StatusCode).Debug("HTTP request done.")
	if t.dumpPayloads {
		if dump, err := httputil.DumpResponse(resp, true); err == nil {
			entry.Trace(string(dump))
		}
	}
	return resp, nil
}
