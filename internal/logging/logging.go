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

// Package logging configures the Logrus logging library.
package logging

import (
	"time"

	stackdriver "github.com/TV4/logrus-stackdriver-formatter"
	"github.com/sirupsen/logrus"

	"github.com/Mission-KI/pruefplattform/internal/config"
)

// ConfigureLogging sets up the logrus instance using the logging section of the tool configuration.
//   - logging.format: text [default], json or stackdriver
//   - logging.level: trace, debug, info [default], warn, error, fatal, panic
//   - logging.source: report the calling file and line of every event
func ConfigureLogging(cfg config.View) {
	logrus.SetFormatter(newFormatter(cfg.GetString("logging.format")))
	level := parseLevel(cfg.GetString("logging.level"))
	logrus.SetLevel(level)
	logrus.SetReportCaller(cfg.GetBool("logging.source"))
	if level >= logrus.DebugLevel {
		logrus.WithField("level", level.String()).Warn("Computed values of every call are logged. Not recommended for production!")
	}
}

// IsDebugEnabled returns true if the configured level logs debug output.
// Debug output includes the computed values of every function call.
func IsDebugEnabled(cfg config.View) bool {
	return parseLevel(cfg.GetString("logging.level")) >= logrus.DebugLevel
}

func newFormatter(name string) logrus.Formatter {
	switch name {
	case "stackdriver":
		return stackdriver.NewFormatter(stackdriver.WithService("barebone"))
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	return &logrus.TextFormatter{FullTimestamp: true}
}

// parseLevel falls back to info for empty or unknown level names.
func parseLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
