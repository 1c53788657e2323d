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
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
)

// DefaultReadinessBackOff is used while waiting for a tool unless
// orchestrator.readinessBackoff says otherwise.
const DefaultReadinessBackOff = "[0.1 2] *1.5 ~0.5"

// ParseBackOff builds an exponential backoff from a description of the form
//
//	"[InitialInterval MaxInterval] *Multiplier ~RandomizationFactor <MaxElapsedTime"
//
// with durations in seconds. Omitted words keep the library defaults.
// Example: "[0.25 30] *1.5 ~0.33 <120".
func ParseBackOff(s string) (*backoff.ExponentialBackOff, error) {
	b := backoff.NewExponentialBackOff()
	for _, word := range strings.Fields(s) {
		var (
			target  *float64
			seconds *time.Duration
			value   string
			what    string
		)
		switch {
		case strings.HasPrefix(word, "["):
			value, what, seconds = strings.TrimPrefix(word, "["), "initial interval", &b.InitialInterval
		case strings.HasSuffix(word, "]"):
			value, what, seconds = strings.TrimSuffix(word, "]"), "max interval", &b.MaxInterval
		case strings.HasPrefix(word, "*"):
			value, what, target = strings.TrimPrefix(word, "*"), "multiplier", &b.Multiplier
		case strings.HasPrefix(word, "~"):
			value, what, target = strings.TrimPrefix(word, "~"), "randomization factor", &b.RandomizationFactor
		case strings.HasPrefix(word, "<"):
			value, what, seconds = strings.TrimPrefix(word, "<"), "max elapsed time", &b.MaxElapsedTime
		default:
			return nil, errors.Errorf("unexpected word %q in backoff %q", word, s)
		}

		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s of backoff %q", what, s)
		}
		if target != nil {
			*target = f
		} else {
			*seconds = time.Duration(f * float64(time.Second))
		}
	}
	b.Reset()
	return b, nil
}
