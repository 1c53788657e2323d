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

// Package telemetry binds metrics, tracing and debug endpoints to a tool server.
package telemetry

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"github.com/Mission-KI/pruefplattform/internal/config"
)

const (
	configNameTelemetryZpagesEnabled = "telemetry.zpages.enable"
	configNameReportingPeriod        = "telemetry.reportingPeriod"
	configNameTraceSamplingFraction  = "telemetry.traceSamplingFraction"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "telemetry",
	})
)

// Params are the inputs telemetry needs from the application.
type Params interface {
	Config() config.View
	ServiceName() string
}

// Bindings let telemetry attach handlers and cleanup to the application.
type Bindings interface {
	TelemetryHandle(pattern string, handler http.Handler)
	TelemetryHandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
	AddCloser(c func())
	AddCloserErr(c func() error)
}

// Setup configures the telemetry for the server.
func Setup(p Params, b Bindings) error {
	cfg := p.Config()

	periodString := cfg.GetString(configNameReportingPeriod)
	reportingPeriod, err := time.ParseDuration(periodString)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":           err,
			"reportingPeriod": periodString,
		}).Info("Failed to parse telemetry.reportingPeriod, defaulting to 1m")
		reportingPeriod = time.Minute * 1
	}

	if cfg.IsSet(configNameTraceSamplingFraction) {
		trace.ApplyConfig(trace.Config{
			DefaultSampler: trace.ProbabilitySampler(cfg.GetFloat64(configNameTraceSamplingFraction)),
		})
	}

	bindings := []func(p Params, b Bindings) error{
		bindDefaultViews,
		bindJaeger,
		bindPrometheus,
		bindOpenCensusAgent,
		bindDebugPages,
	}
	for _, f := range bindings {
		if err := f(p, b); err != nil {
			return err
		}
	}

	// Change the frequency of updates to the metrics endpoint
	view.SetReportingPeriod(reportingPeriod)

	logger.WithFields(logrus.Fields{
		"reportingPeriod": reportingPeriod,
	}).Info("telemetry has been configured.")
	return nil
}

func bindDefaultViews(p Params, b Bindings) error {
	cfg := p.Config()
	if !cfg.GetBool(ConfigNameEnableMetrics) && !cfg.GetBool(configNameOpenCensusAgentEnabled) {
		return nil
	}
	if err := view.Register(DefaultViews...); err != nil {
		return errors.Wrap(err, "Failed to register telemetry views")
	}
	b.AddCloser(func() {
		view.Unregister(DefaultViews...)
	})
	return nil
}
