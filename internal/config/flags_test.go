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

package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("tool_hostname", "mock-tool", "")
	flags.Int("tool_port", 8061, "")
	flags.Duration("wait_ready", 0, "")
	return flags
}

var flagKeys = map[string]string{
	"tool_hostname": "api.module.hostname",
	"tool_port":     "api.module.grpcport",
	"wait_ready":    "orchestrator.waitReady",
}

func TestFromFlagsDefaults(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := FromFlags(flags, flagKeys)
	require.NoError(t, err)
	assert.Equal(t, "mock-tool", cfg.GetString("api.module.hostname"))
	assert.Equal(t, 8061, cfg.GetInt("api.module.grpcport"))
	assert.Equal(t, time.Duration(0), cfg.GetDuration("orchestrator.waitReady"))
	assert.Equal(t, DefaultWorkers, cfg.GetInt("api.module.workers"))
}

func TestFromFlagsPrecedence(t *testing.T) {
	t.Setenv("TOOL_HOSTNAME", "from-env")
	t.Setenv("TOOL_PORT", "9000")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--tool_port=9100", "--wait_ready=5s"}))

	cfg, err := FromFlags(flags, flagKeys)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GetString("api.module.hostname"))
	assert.Equal(t, 9100, cfg.GetInt("api.module.grpcport"))
	assert.Equal(t, 5*time.Second, cfg.GetDuration("orchestrator.waitReady"))
}

func TestFromFlagsUnknown(t *testing.T) {
	_, err := FromFlags(newFlags(), map[string]string{"nope": "a.b"})
	assert.Error(t, err)
}
