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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/Mission-KI/pruefplattform/internal/config"
)

type fakeApp struct {
	cfg     config.View
	mux     *http.ServeMux
	closers []func() error
}

func (f *fakeApp) Config() config.View { return f.cfg }
func (f *fakeApp) ServiceName() string { return "test" }
func (f *fakeApp) TelemetryHandle(pattern string, handler http.Handler) {
	f.mux.Handle(pattern, handler)
}
func (f *fakeApp) TelemetryHandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	f.mux.HandleFunc(pattern, handler)
}
func (f *fakeApp) AddCloser(c func()) {
	f.closers = append(f.closers, func() error { c(); return nil })
}
func (f *fakeApp) AddCloserErr(c func() error) { f.closers = append(f.closers, c) }

func (f *fakeApp) close() {
	for i := len(f.closers) - 1; i >= 0; i-- {
		_ = f.closers[i]()
	}
}

func TestSetup(t *testing.T) {
	require := require.New(t)

	cfg := viper.New()
	cfg.Set("telemetry.reportingPeriod", "not a duration")
	cfg.Set("telemetry.prometheus.enable", true)
	cfg.Set("telemetry.prometheus.endpoint", "/metrics")
	cfg.Set("telemetry.zpages.enable", true)
	cfg.Set("api.module.workers", 3)

	app := &fakeApp{cfg: cfg, mux: http.NewServeMux()}
	require.NoError(Setup(app, app))
	defer app.close()

	testCases := []struct {
		path string
		body string
	}{
		{"/metrics", ""},
		{"/help", "Tool Server Help"},
		{"/sos", "POST /v1/exec"},
		{"/configz", "<tr><td>api.module.workers</td><td>3</td></tr>"},
		{"/debug/rpcz", ""},
	}
	for _, tc := range testCases {
		rec := httptest.NewRecorder()
		app.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(http.StatusOK, rec.Code, tc.path)
		require.Contains(rec.Body.String(), tc.body, tc.path)
	}
}

func TestConfigzNeedsSettings(t *testing.T) {
	rec := httptest.NewRecorder()
	(&configz{cfg: nil}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/configz", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConfigSections(t *testing.T) {
	cfg := viper.New()
	cfg.Set("storage.s3.secretAccessKey", "hunter2")
	cfg.Set("storage.s3.region", "eu-central-1")
	cfg.Set("api.module.grpcport", 8061)

	sections := configSections(cfg)
	require.Len(t, sections, 2)
	require.Equal(t, "api", sections[0].Name)
	require.Equal(t, []configValue{{Key: "api.module.grpcport", Value: 8061}}, sections[0].Values)
	require.Equal(t, "storage", sections[1].Name)
	require.Equal(t, []configValue{
		{Key: "storage.s3.region", Value: "eu-central-1"},
		{Key: "storage.s3.secretaccesskey", Value: redacted},
	}, sections[1].Values)
}

func TestDebugPages(t *testing.T) {
	cfg := viper.New()
	cfg.Set("telemetry.prometheus.enable", true)
	cfg.Set("telemetry.prometheus.endpoint", "/custom-metrics")

	var paths []string
	for _, p := range debugPages(cfg) {
		paths = append(paths, p.Path)
	}
	require.Equal(t, []string{"/healthz", "/custom-metrics", "/capabilities", "POST /v1/exec"}, paths)
}

func TestSetupDisabled(t *testing.T) {
	app := &fakeApp{cfg: viper.New(), mux: http.NewServeMux()}
	require.NoError(t, Setup(app, app))
	require.Empty(t, app.closers)

	rec := httptest.NewRecorder()
	app.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/help", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
