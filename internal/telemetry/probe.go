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
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	// HealthCheckEndpoint is the endpoint for container health probes.
	// Any query turns a liveness probe into a readiness probe.
	HealthCheckEndpoint = "/healthz"
)

type probeState int32

const (
	stateUnprobed probeState = iota
	stateReady
	stateUnready
)

// readinessProbe answers liveness probes unconditionally. Readiness probes
// run every check concurrently and fail with the first error.
type readinessProbe struct {
	state  int32
	checks []func(context.Context) error
}

// NewHealthCheck creates the handler of HealthCheckEndpoint. The checks
// typically ping the storage backends a tool reads artifacts from.
func NewHealthCheck(checks []func(context.Context) error) http.Handler {
	return &readinessProbe{checks: checks}
}

func (p *readinessProbe) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if len(req.URL.Query()) > 0 {
		if err := p.ready(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (p *readinessProbe) ready(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, check := range p.checks {
		check := check
		g.Go(func() error {
			return check(ctx)
		})
	}
	err := g.Wait()

	next := stateReady
	if err != nil {
		next = stateUnready
	}
	prev := probeState(atomic.SwapInt32(&p.state, int32(next)))
	switch {
	case err != nil && prev == stateUnready:
		logger.WithError(err).Warningf("%s readiness check continues to fail.", HealthCheckEndpoint)
	case err != nil:
		logger.WithError(err).Warningf("%s readiness check failed. The tool cannot reach its artifact storage.", HealthCheckEndpoint)
	case prev == stateUnready:
		logger.Infof("%s is ready again.", HealthCheckEndpoint)
	case prev == stateUnprobed:
		logger.Infof("%s is reporting ready.", HealthCheckEndpoint)
	}
	return err
}

func (p *readinessProbe) current() probeState {
	return probeState(atomic.LoadInt32(&p.state))
}
