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

package telemetry

import (
	"contrib.go.opencensus.io/exporter/ocagent"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"
)

const (
	configNameOpenCensusAgentEnabled      = "telemetry.opencensusAgent.enable"
	configNameOpenCensusAgentEndpoint     = "telemetry.opencensusAgent.agentEndpoint"
	configNameOpenCensusAgentReconnection = "telemetry.opencensusAgent.reconnectionPeriod"
)

// bindOpenCensusAgent ships views and spans to an opencensus agent or
// collector, which forwards them to whatever backend the platform runs.
func bindOpenCensusAgent(p Params, b Bindings) error {
	cfg := p.Config()
	if !cfg.GetBool(configNameOpenCensusAgentEnabled) {
		logger.Info("OpenCensus Agent: Disabled")
		return nil
	}

	opts := []ocagent.ExporterOption{
		ocagent.WithAddress(cfg.GetString(configNameOpenCensusAgentEndpoint)),
		ocagent.WithInsecure(),
		ocagent.WithServiceName(p.ServiceName()),
	}
	if period := cfg.GetDuration(configNameOpenCensusAgentReconnection); period > 0 {
		opts = append(opts, ocagent.WithReconnectionPeriod(period))
	}
	exporter, err := ocagent.NewExporter(opts...)
	if err != nil {
		return errors.Wrap(err, "cannot create opencensus agent exporter")
	}

	trace.RegisterExporter(exporter)
	view.RegisterExporter(exporter)
	b.AddCloserErr(func() error {
		view.UnregisterExporter(exporter)
		trace.UnregisterExporter(exporter)
		return exporter.Stop()
	})

	logger.WithFields(logrus.Fields{
		"agentEndpoint": cfg.GetString(configNameOpenCensusAgentEndpoint),
	}).Info("OpenCensus Agent: ENABLED")
	return nil
}
