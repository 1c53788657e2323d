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
	"os"

	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

const (
	configNameJaegerEnabled           = "telemetry.jaeger.enable"
	configNameJaegerAgentEndpoint     = "telemetry.jaeger.agentEndpoint"
	configNameJaegerCollectorEndpoint = "telemetry.jaeger.collectorEndpoint"
)

// bindJaeger exports the spans of dispatched calls. Spans are tagged with
// the host and working directory of the tool so that several containers of
// the same tool can be told apart.
func bindJaeger(p Params, b Bindings) error {
	cfg := p.Config()
	if !cfg.GetBool(configNameJaegerEnabled) {
		logger.Info("Jaeger Tracing: Disabled")
		return nil
	}

	agent := cfg.GetString(configNameJaegerAgentEndpoint)
	collector := cfg.GetString(configNameJaegerCollectorEndpoint)
	if agent == "" && collector == "" {
		return errors.Errorf("%s is set but neither %s nor %s is configured", configNameJaegerEnabled, configNameJaegerAgentEndpoint, configNameJaegerCollectorEndpoint)
	}

	tags := []jaeger.Tag{jaeger.StringTag("tool.workdir", cfg.GetString("tool.workdir"))}
	if host, err := os.Hostname(); err == nil {
		tags = append(tags, jaeger.StringTag("hostname", host))
	}

	je, err := jaeger.NewExporter(jaeger.Options{
		AgentEndpoint:     agent,
		CollectorEndpoint: collector,
		Process: jaeger.Process{
			ServiceName: p.ServiceName(),
			Tags:        tags,
		},
		OnError: func(err error) {
			logger.WithError(err).Warn("Cannot export spans to jaeger.")
		},
	})
	if err != nil {
		return errors.Wrap(err, "cannot create jaeger exporter")
	}

	trace.RegisterExporter(je)
	b.AddCloser(func() {
		trace.UnregisterExporter(je)
		je.Flush()
	})

	logger.WithFields(logrus.Fields{
		"agentEndpoint":     agent,
		"collectorEndpoint": collector,
	}).Info("Jaeger Tracing: ENABLED")
	return nil
}
