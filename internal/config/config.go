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

// Package config contains convenience functions for reading and managing viper configs.
package config

import (
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DefaultGrpcPort is the port a tool container serves the Module service on.
	DefaultGrpcPort = 8061
	// DefaultHTTPPort serves health checks, telemetry and the JSON proxy.
	DefaultHTTPPort = 8062
	// DefaultWorkers bounds the number of calls a tool executes concurrently.
	DefaultWorkers = 10

	configName = "tool_config"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "config",
	})

	// envBindings maps config keys to the environment variables consumed by
	// generated tool processes and the orchestrator.
	envBindings = map[string]string{
		"tool.workdir":        "TOOL_WORKDIR",
		"api.module.hostname": "TOOL_HOSTNAME",
		"api.module.grpcport": "TOOL_PORT",
		"tool.func":           "TOOL_FUNC",
		"tool.input":          "INPUT_URI_LIST",
		"tool.output":         "OUTPUT_URI_LIST",
	}
)

// View is the read-only configuration handed to every component of a tool.
// It is satisfied by *viper.Viper.
type View interface {
	IsSet(string) bool
	GetString(string) string
	GetInt(string) int
	GetFloat64(string) float64
	GetStringSlice(string) []string
	GetBool(string) bool
	GetDuration(string) time.Duration
}

// Mutable is a View that flags and tests can write to.
type Mutable interface {
	Set(string, interface{})
	View
}

// Read reads the tool configuration into a viper.Viper instance. The file is
// optional: defaults and environment variables are always applied, and when a
// tool_config.yaml is found it is watched for changes.
func Read() (View, error) {
	cfg := newViper()
	cfg.SetConfigType("yaml")
	cfg.AddConfigPath(".")
	cfg.AddConfigPath("config")
	if wd := os.Getenv("TOOL_WORKDIR"); wd != "" {
		cfg.AddConfigPath(wd)
	}
	cfg.SetConfigName(configName)

	err := cfg.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Debug("No tool_config file found, using defaults and environment.")
			return cfg, nil
		}
		return nil, errors.Wrap(err, "cannot read tool configuration")
	}

	watch(cfg)
	return cfg, nil
}

// ReadFile reads the configuration from a single file, applying the same
// defaults and environment bindings as Read.
func ReadFile(path string) (View, error) {
	cfg := newViper()
	cfg.SetConfigFile(path)
	if err := cfg.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "cannot read configuration file %s", path)
	}
	watch(cfg)
	return cfg, nil
}

// NewDefault returns a mutable configuration holding only defaults and
// environment bindings. Used by command line tools and tests.
func NewDefault() Mutable {
	return newViper()
}

func newViper() *viper.Viper {
	cfg := viper.New()
	setDefaults(cfg)
	for key, env := range envBindings {
		// BindEnv only fails without a key.
		_ = cfg.BindEnv(key, env)
	}
	return cfg
}

func setDefaults(cfg *viper.Viper) {
	cfg.SetDefault("api.module.hostname", "localhost")
	cfg.SetDefault("api.module.grpcport", DefaultGrpcPort)
	cfg.SetDefault("api.module.httpport", DefaultHTTPPort)
	cfg.SetDefault("api.module.workers", DefaultWorkers)
	cfg.SetDefault("codecs.enabled", []string{"dict", "ndarray", "frame", "arrow"})
	cfg.SetDefault("storage.redis.port", 6379)
	cfg.SetDefault("storage.redis.pool.maxIdle", 3)
	cfg.SetDefault("storage.redis.pool.maxActive", 10)
	cfg.SetDefault("storage.redis.pool.idleTimeout", "60s")
	cfg.SetDefault("storage.redis.pool.healthCheckTimeout", "1s")
	cfg.SetDefault("logging.level", "info")
	cfg.SetDefault("logging.format", "text")
	cfg.SetDefault("telemetry.reportingPeriod", "1m")
	cfg.SetDefault("telemetry.prometheus.endpoint", "/metrics")
}

func watch(cfg *viper.Viper) {
	cfg.WatchConfig()
	cfg.OnConfigChange(func(event fsnotify.Event) {
		logger.WithFields(logrus.Fields{
			"filename":  event.Name,
			"operation": event.Op,
		}).Info("Tool configuration changed.")
	})
}
