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

package orchestrator

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackOff(t *testing.T) {
	require := require.New(t)

	b, err := ParseBackOff("[0.250 30] *1.5 ~0.33 <300")
	require.NoError(err)
	require.Equal(250*time.Millisecond, b.InitialInterval)
	require.Equal(30*time.Second, b.MaxInterval)
	require.InDelta(1.5, b.Multiplier, 1e-8)
	require.InDelta(0.33, b.RandomizationFactor, 1e-8)
	require.Equal(5*time.Minute, b.MaxElapsedTime)
}

func TestParseBackOffKeepsDefaults(t *testing.T) {
	defaults := backoff.NewExponentialBackOff()

	b, err := ParseBackOff("  *3 ")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, b.Multiplier, 1e-8)
	assert.Equal(t, defaults.InitialInterval, b.InitialInterval)
	assert.Equal(t, defaults.MaxElapsedTime, b.MaxElapsedTime)

	_, err = ParseBackOff(DefaultReadinessBackOff)
	assert.NoError(t, err)
}

func TestParseBackOffErrors(t *testing.T) {
	for _, s := range []string{"[x 2]", "*", "~0.3 ?", "[0.1 y]", "<1h"} {
		_, err := ParseBackOff(s)
		assert.Error(t, err, s)
	}
}
