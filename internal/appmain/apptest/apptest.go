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

// Package apptest starts tool servers in memory for tests.
package apptest

import (
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/Mission-KI/pruefplattform/internal/appmain"
	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/rpc"
)

// ServiceName is the server name test tools are started with. Their ports
// are recorded in the api.module section.
const ServiceName = "module"

// TestApp starts the binds as one tool server on random ports, records the
// ports in cfg and stops the server when the test ends.
func TestApp(t *testing.T, cfg config.Mutable, binds ...appmain.Bind) {
	ports := newPortPool(t)
	for _, key := range []string{"grpcport", "httpport"} {
		cfg.Set("api."+ServiceName+"."+key, ports.open(t))
	}

	bindAll := func(p *appmain.Params, b *appmain.Bindings) error {
		for _, bind := range binds {
			if err := bind(p, b); err != nil {
				return err
			}
		}
		return nil
	}
	getCfg := func() (config.View, error) {
		return cfg, nil
	}

	app, err := appmain.StartApplication(ServiceName, bindAll, getCfg, ports.listen)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, app.Stop())
	})
}

// HTTPAddress returns the base URL of the HTTP side of a server started by
// TestApp.
func HTTPAddress(cfg config.View) string {
	return "http://localhost:" + strconv.Itoa(cfg.GetInt("api."+ServiceName+".httpport"))
}

// GRPCClient connects to the server described by the config section and
// closes the connection when the test ends.
func GRPCClient(t *testing.T, cfg config.View, section string) *grpc.ClientConn {
	conn, err := rpc.GRPCClientFromConfig(cfg, section)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})
	return conn
}

// portPool hands listeners opened ahead of time to the server, keyed by
// port. Listeners the server never asked for are closed with the test.
type portPool struct {
	mu        sync.Mutex
	listeners map[string]net.Listener
}

func newPortPool(t *testing.T) *portPool {
	p := &portPool{listeners: map[string]net.Listener{}}
	t.Cleanup(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, l := range p.listeners {
			_ = l.Close()
		}
	})
	return p
}

func (p *portPool) open(t *testing.T) int {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port

	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners[strconv.Itoa(port)] = l
	return port
}

func (p *portPool) listen(network, address string) (net.Listener, error) {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.listeners[port]
	if !ok {
		return nil, errors.Errorf("no test listener for %s %s", network, address)
	}
	delete(p.listeners, port)
	return l, nil
}
