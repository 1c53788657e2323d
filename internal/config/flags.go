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
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// FromFlags returns a configuration in which each flag of keys (flag name to
// config key) sets its key. A flag default replaces the built-in default of
// its key, so environment variables still override it unless the flag is
// given explicitly.
func FromFlags(flags *pflag.FlagSet, keys map[string]string) (Mutable, error) {
	cfg := newViper()
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return nil, errors.Errorf("no flag named %q", name)
		}
		cfg.SetDefault(key, f.DefValue)
		if err := cfg.BindPFlag(key, f); err != nil {
			return nil, errors.Wrapf(err, "cannot bind flag %q", name)
		}
	}
	return cfg, nil
}
