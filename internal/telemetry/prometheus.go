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
	ocPrometheus "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/stats/view"
)

const (
	// ConfigNameEnableMetrics indicates that telemetry is enabled.
	ConfigNameEnableMetrics = "telemetry.prometheus.enable"

	configNamePrometheusEndpoint = "telemetry.prometheus.endpoint"
	metricsNamespace             = "barebone"
)

// bindPrometheus serves the opencensus views in prometheus format. Every
// series carries the service label so that tools sharing a scrape target
// can be told apart.
func bindPrometheus(p Params, b Bindings) error {
	cfg := p.Config()
	if !cfg.GetBool(ConfigNameEnableMetrics) {
		logger.Info("Prometheus Metrics: Disabled")
		return nil
	}

	registry, err := newPrometheusRegistry()
	if err != nil {
		return err
	}
	exporter, err := ocPrometheus.NewExporter(ocPrometheus.Options{
		Namespace:   metricsNamespace,
		Registry:    registry,
		ConstLabels: prometheus.Labels{"service": p.ServiceName()},
		OnError: func(err error) {
			logger.WithError(err).Warn("Cannot export metrics to prometheus.")
		},
	})
	if err != nil {
		return errors.Wrap(err, "cannot create prometheus exporter")
	}

	view.RegisterExporter(exporter)
	b.AddCloser(func() {
		view.UnregisterExporter(exporter)
	})

	endpoint := cfg.GetString(configNamePrometheusEndpoint)
	b.TelemetryHandle(endpoint, exporter)
	logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"service":  p.ServiceName(),
	}).Info("Prometheus Metrics: ENABLED")
	return nil
}

func newPrometheusRegistry() (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	collectors := []prometheus.Collector{
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: metricsNamespace}),
		prometheus.NewGoCollector(),
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "cannot register prometheus collector")
		}
	}
	return registry, nil
}
