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
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/zpages"

	"github.com/Mission-KI/pruefplattform/internal/config"
)

const (
	helpEndpoint          = "/help"
	helpSecondaryEndpoint = "/sos"
	configEndpoint        = "/configz"
	zpagesEndpoint        = "/debug"

	redacted = "<redacted>"
)

var (
	helpTemplate = template.Must(template.New("help").Parse(`<!DOCTYPE html>
<head>
	<title>Tool Server Help</title>
</head>
<body>
<pre>
{{ range . }}* {{ if .Link }}<a href="{{ .Path }}">{{ .Path }}</a>{{ else }}{{ .Path }}{{ end }} - {{ .Description }}
{{ end }}</pre>
</body>
`))

	configTemplate = template.Must(template.New("configz").Parse(`<!DOCTYPE html>
<head>
	<title>Tool Configuration</title>
</head>
<body>
<table>
{{ range . }}<tr><th colspan="2">{{ .Name }}</th></tr>
{{ range .Values }}<tr><td>{{ .Key }}</td><td>{{ .Value }}</td></tr>
{{ end }}{{ end }}</table>
</body>
`))

	// Keys whose last segment contains one of these are never shown.
	secretMarkers = []string{"secret", "password", "token", "credential"}
)

type debugPage struct {
	Path        string
	Description string
	Link        bool
}

// debugPages lists the HTTP endpoints of a tool as configured in cfg.
func debugPages(cfg config.View) []debugPage {
	pages := []debugPage{
		{Path: HealthCheckEndpoint, Description: "Liveness, append ?readiness=true for readiness", Link: true},
	}
	if cfg.GetBool(configNameTelemetryZpagesEnabled) {
		pages = append(pages,
			debugPage{Path: configEndpoint, Description: "Effective configuration", Link: true},
			debugPage{Path: zpagesEndpoint + "/rpcz", Description: "RPC statistics", Link: true},
			debugPage{Path: zpagesEndpoint + "/tracez", Description: "Sampled traces", Link: true},
		)
	}
	if cfg.GetBool(ConfigNameEnableMetrics) {
		pages = append(pages, debugPage{Path: cfg.GetString(configNamePrometheusEndpoint), Description: "Prometheus metrics", Link: true})
	}
	return append(pages,
		debugPage{Path: "/capabilities", Description: "Functions and codecs served by the tool", Link: true},
		debugPage{Path: "POST /v1/exec", Description: "JSON form of the Module exec call"},
	)
}

// bindDebugPages serves zpages, the help index and the configuration dump
// when telemetry.zpages.enable is set.
func bindDebugPages(p Params, b Bindings) error {
	cfg := p.Config()
	if !cfg.GetBool(configNameTelemetryZpagesEnabled) {
		logger.Info("Debug pages: Disabled")
		return nil
	}

	mux := http.NewServeMux()
	zpages.Handle(mux, zpagesEndpoint)
	b.TelemetryHandle(zpagesEndpoint+"/", mux)

	pages := debugPages(cfg)
	help := func(w http.ResponseWriter, _ *http.Request) {
		if err := helpTemplate.Execute(w, pages); err != nil {
			http.Error(w, fmt.Sprintf("cannot render help page, %s", err), http.StatusInternalServerError)
		}
	}
	b.TelemetryHandleFunc(helpEndpoint, help)
	b.TelemetryHandleFunc(helpSecondaryEndpoint, help)
	b.TelemetryHandle(configEndpoint, &configz{cfg: cfg})

	logger.WithFields(logrus.Fields{
		"endpoints": len(pages),
	}).Info("Debug pages: ENABLED")
	return nil
}

// settings is the part of viper configz needs.
type settings interface {
	AllKeys() []string
	Get(string) interface{}
}

type configSection struct {
	Name   string
	Values []configValue
}

type configValue struct {
	Key   string
	Value interface{}
}

type configz struct {
	cfg config.View
}

// ServeHTTP renders every configured key grouped by its top level section.
func (cz *configz) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s, ok := cz.cfg.(settings)
	if !ok {
		http.Error(w, "configuration cannot be listed", http.StatusInternalServerError)
		return
	}
	if err := configTemplate.Execute(w, configSections(s)); err != nil {
		http.Error(w, fmt.Sprintf("cannot render configuration page, %s", err), http.StatusInternalServerError)
	}
}

func configSections(s settings) []configSection {
	keys := s.AllKeys()
	sort.Strings(keys)

	var sections []configSection
	for _, k := range keys {
		name := k
		if i := strings.Index(k, "."); i >= 0 {
			name = k[:i]
		}
		if len(sections) == 0 || sections[len(sections)-1].Name != name {
			sections = append(sections, configSection{Name: name})
		}
		last := &sections[len(sections)-1]
		last.Values = append(last.Values, configValue{Key: k, Value: displayValue(k, s.Get(k))})
	}
	return sections
}

func displayValue(key string, v interface{}) interface{} {
	leaf := strings.ToLower(key[strings.LastIndex(key, ".")+1:])
	for _, m := range secretMarkers {
		if strings.Contains(leaf, m) {
			return redacted
		}
	}
	return v
}
