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

// Package orchestrator sends a single execution message to a tool and
// reports the answer.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/rpc"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
	"github.com/Mission-KI/pruefplattform/pkg/pb"
)

const (
	// DefaultHostname is the tool the orchestrator calls unless told otherwise.
	DefaultHostname = "mock-tool"
	// DefaultFunc is the function the orchestrator calls unless told otherwise.
	DefaultFunc = "fourtytwo_wrapper"
	// DefaultOutputURI is where the first output is stored unless told otherwise.
	DefaultOutputURI = "/results/result.json"
)

var (
	logger = logrus.WithFields(logrus.Fields{
		"app":       "barebone",
		"component": "orchestrator",
	})
)

// BuildMessage describes a call of fn. The first input and output are
// named test_input and test_result; the URIs replace their locations in
// order and name further nodes input<i> and output<i>.
func BuildMessage(fn, executionName string, inputURIs, outputURIs []string) message.ExecutionMessage {
	return message.ExecutionMessage{
		Func:   fn,
		Input:  overlay([]message.ArtifactNode{message.NewNode("test_input", "")}, "input", inputURIs),
		Output: overlay([]message.ArtifactNode{message.NewNode("test_result", DefaultOutputURI)}, "output", outputURIs),
		Meta:   message.Meta{ExecutionName: executionName},
	}
}

func overlay(nodes []message.ArtifactNode, prefix string, uris []string) []message.ArtifactNode {
	for i, n := range message.NodesFromURIs(prefix, uris) {
		if i < len(nodes) {
			nodes[i].Location = n.Location
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Exec sends msg to the tool at address over a connection opened for this
// call only. It does not retry. The call is bounded only by ctx.
func Exec(ctx context.Context, cfg config.View, address string, msg message.ExecutionMessage) (message.ExecutionMessage, error) {
	conn, err := rpc.GRPCClientFromParams(rpc.NewClientParams(cfg, address))
	if err != nil {
		return message.ExecutionMessage{}, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logger.WithError(cerr).Debug("cannot close tool connection")
		}
	}()

	resp, err := pb.NewModuleClient(conn).Exec(ctx, message.ToProto(msg))
	if err != nil {
		return message.ExecutionMessage{}, errors.Wrapf(err, "exec %s on %s", msg.Func, address)
	}
	return message.FromProto(resp), nil
}

// WaitReady polls the readiness endpoint of the tool until it answers 200
// or timeout elapses. The pause between polls follows
// orchestrator.readinessBackoff (see ParseBackOff).
func WaitReady(ctx context.Context, cfg config.View, address string, timeout time.Duration) error {
	client, baseURL, err := rpc.HTTPClientFromParams(rpc.NewClientParams(cfg, address))
	if err != nil {
		return err
	}
	probe := baseURL + telemetry.HealthCheckEndpoint + "?readiness=true"

	spec := cfg.GetString("orchestrator.readinessBackoff")
	if spec == "" {
		spec = DefaultReadinessBackOff
	}
	b, err := ParseBackOff(spec)
	if err != nil {
		return err
	}
	b.MaxElapsedTime = timeout

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
		if err != nil {
			return backoff.Permanent(errors.WithStack(err))
		}
		resp, err := client.Do(req)
		if err != nil {
			logger.WithError(err).WithField("attempt", attempt).Debug("Tool is not reachable yet.")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("tool is not ready: %s %s", resp.Status, body)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return errors.Wrapf(err, "tool at %s not ready after %s", address, timeout)
	}
	logger.WithField("attempts", attempt).Debug("Tool is ready.")
	return nil
}

// Run performs the call described by cfg: the tool at api.module.hostname,
// the function tool.func and the URI lists tool.input and tool.output.
func Run(ctx context.Context, cfg config.View) (message.ExecutionMessage, error) {
	hostname := cfg.GetString("api.module.hostname")
	executionName := cfg.GetString("orchestrator.executionName")
	if executionName == "" {
		executionName = xid.New().String()
	}

	if timeout := cfg.GetDuration("orchestrator.waitReady"); timeout > 0 {
		if err := WaitReady(ctx, cfg, fmt.Sprintf("%s:%d", hostname, cfg.GetInt("api.module.httpport")), timeout); err != nil {
			return message.ExecutionMessage{}, err
		}
	}

	msg := BuildMessage(
		cfg.GetString("tool.func"),
		executionName,
		message.ParseURIList(cfg.GetString("tool.input")),
		message.ParseURIList(cfg.GetString("tool.output")),
	)
	address := fmt.Sprintf("%s:%d", hostname, cfg.GetInt("api.module.grpcport"))
	logger.WithFields(logrus.Fields{
		"tool":      address,
		"func":      msg.Func,
		"execution": executionName,
	}).Debug("Sending execution message.")

	resp, err := Exec(ctx, cfg, address, msg)
	if err != nil {
		return message.ExecutionMessage{}, err
	}
	logger.WithFields(logrus.Fields{
		"func":      resp.Func,
		"execution": resp.Meta.ExecutionName,
		"output":    resp.Output,
	}).Info("Tool answered.")
	return resp, nil
}
