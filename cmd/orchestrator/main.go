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

// Package main is the orchestrator. It sends one execution message to a
// tool, logs the answer and optionally keeps running until terminated.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/logging"
	"github.com/Mission-KI/pruefplattform/internal/orchestrator"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "orchestrator.main",
	})

	flagKeys = map[string]string{
		"tool_hostname":   "api.module.hostname",
		"tool_port":       "api.module.grpcport",
		"http_port":       "api.module.httpport",
		"tool_func":       "tool.func",
		"input_uri_list":  "tool.input",
		"output_uri_list": "tool.output",
		"execution_name":  "orchestrator.executionName",
		"wait_ready":      "orchestrator.waitReady",
		"ready_backoff":   "orchestrator.readinessBackoff",
		"keep_alive":      "orchestrator.keepAlive",
		"log_level":       "logging.level",
		"log_format":      "logging.format",
		"rpc_logging":     "logging.rpc",
	}
)

func main() {
	flags := pflag.NewFlagSet("orchestrator", pflag.ExitOnError)
	flags.String("tool_hostname", orchestrator.DefaultHostname, "Hostname of the tool container.")
	flags.Int("tool_port", config.DefaultGrpcPort, "gRPC port of the tool container.")
	flags.Int("http_port", config.DefaultHTTPPort, "HTTP port of the tool container, used to probe readiness.")
	flags.String("tool_func", orchestrator.DefaultFunc, "Function to execute.")
	flags.String("input_uri_list", "", "Comma separated input artifact URIs.")
	flags.String("output_uri_list", orchestrator.DefaultOutputURI, "Comma separated output artifact URIs.")
	flags.String("execution_name", "", "Name of the execution. Generated when empty.")
	flags.Duration("wait_ready", 0, "Wait up to this long for the tool to become ready. Zero calls immediately.")
	flags.String("ready_backoff", orchestrator.DefaultReadinessBackOff, "Backoff between readiness probes: \"[initial max] *multiplier ~randomization\" in seconds.")
	flags.Bool("keep_alive", false, "Keep running after the call until terminated.")
	flags.String("log_level", "info", "Minimum log level.")
	flags.String("log_format", "text", "Log format: text, json or stackdriver.")
	flags.Bool("rpc_logging", false, "Log every RPC.")
	// ExitOnError handles parse failures.
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.FromFlags(flags, flagKeys)
	if err != nil {
		logger.WithError(err).Fatal("cannot read configuration")
	}
	logging.ConfigureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := orchestrator.Run(ctx, cfg); err != nil {
		logger.WithError(err).Fatal("execution failed")
	}

	if cfg.GetBool("orchestrator.keepAlive") {
		logger.Info("Execution done, waiting for termination.")
		<-ctx.Done()
	}
}
