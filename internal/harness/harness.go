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

// Package harness serves the functions of a tool over the Module gRPC
// service.
package harness

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/Mission-KI/pruefplattform/internal/appmain"
	"github.com/Mission-KI/pruefplattform/internal/artifact"
	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/dispatch"
	"github.com/Mission-KI/pruefplattform/internal/filesystem"
	"github.com/Mission-KI/pruefplattform/internal/toolspec"
	"github.com/Mission-KI/pruefplattform/pkg/pb"
)

const (
	// ServiceName is the server name of tools. Ports are read from api.module.
	ServiceName = "module"

	// CapabilitiesEndpoint lists the functions and codecs of a running tool.
	CapabilitiesEndpoint = "/capabilities"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "harness",
	})
)

// Settings describes a tool.
type Settings struct {
	// Functions are the functions the tool serves.
	Functions []dispatch.Function
}

// RunTool is a hook for the main() method of a tool executable. It serves
// until the process is signaled.
func RunTool(settings *Settings) {
	appmain.RunApplication(ServiceName, BindService(settings))
}

// BindService builds the dispatcher of a tool from its configuration and
// binds it to the server.
func BindService(settings *Settings) appmain.Bind {
	return func(p *appmain.Params, b *appmain.Bindings) error {
		cfg := p.Config()

		table, err := dispatch.NewTable(settings.Functions...)
		if err != nil {
			return err
		}
		checkToolSpec(cfg, table)

		codecs := NewCodecRegistry(cfg)
		filesystems, err := filesystem.New(cfg)
		if err != nil {
			return err
		}
		b.AddCloserErr(filesystems.Close)
		for _, hc := range filesystems.HealthChecks() {
			b.AddHealthCheckFunc(hc)
		}

		service := &moduleService{
			dispatcher: dispatch.NewDispatcher(table, artifact.NewResolver(codecs, filesystems)),
		}
		b.AddUnaryInterceptor(newWorkerPool(cfg.GetInt("api.module.workers")).unaryInterceptor)
		b.AddHandleFunc(func(s *grpc.Server) {
			pb.RegisterModuleServer(s, service)
		}, registerExecProxy)
		b.TelemetryHandleFunc(CapabilitiesEndpoint, capabilitiesHandler(table, codecs))

		logger.WithFields(logrus.Fields{
			"functions": table.Names(),
			"schemes":   filesystems.Schemes(),
		}).Info("Tool functions bound.")
		return nil
	}
}

// NewCodecRegistry builds the codec registry from codecs.enabled. Unknown
// kinds are logged and ignored.
func NewCodecRegistry(cfg config.View) *codec.Registry {
	kinds, unknown := codec.ParseKinds(cfg.GetStringSlice("codecs.enabled"))
	for _, name := range unknown {
		logger.WithField("codec", name).Warn("Ignoring unknown codec kind in codecs.enabled.")
	}
	return codec.NewDefaultRegistry(kinds)
}

// checkToolSpec compares the served functions with the tool spec in the
// working directory, when there is one.
func checkToolSpec(cfg config.View, table *dispatch.Table) {
	workdir := cfg.GetString("tool.workdir")
	if workdir == "" {
		return
	}
	spec, err := toolspec.Read(workdir)
	if err != nil {
		logger.WithError(err).Debug("No tool spec to check functions against.")
		return
	}
	for _, name := range table.Names() {
		if _, err := spec.Function(name); err != nil {
			logger.WithField("function", name).Warn("Function is served but not declared in the tool spec.")
		}
	}
	for name := range spec.Functions {
		if _, err := table.Lookup(name); err != nil {
			logger.WithField("function", name).Warn("Function is declared in the tool spec but not served.")
		}
	}
}

type capabilities struct {
	Functions []string           `json:"functions"`
	Codecs    []codec.Capability `json:"codecs"`
}

func capabilitiesHandler(table *dispatch.Table, codecs *codec.Registry) func(http.ResponseWriter, *http.Request) {
	body, err := json.Marshal(capabilities{Functions: table.Names(), Codecs: codecs.Capabilities()})
	return func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, errors.Wrap(err, "cannot list capabilities").Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}
