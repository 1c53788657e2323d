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

// Package testing provides storage backends for tests.
package testing

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/Mission-KI/pruefplattform/internal/config"
)

const (
	// PoolMaxIdle is the number of maximum idle redis connections in a redis pool
	PoolMaxIdle = 5
	// PoolMaxActive is the number of maximum active redis connections in a redis pool
	PoolMaxActive = 5
	// PoolIdleTimeout is the idle duration allowance of a redis connection a a redis pool
	PoolIdleTimeout = 10 * time.Second
	// PoolHealthCheckTimeout is the read/write timeout of a healthcheck request
	PoolHealthCheckTimeout = 100 * time.Millisecond
)

// NewRedis starts a miniredis server and points the storage.redis section of
// cfg at it. The returned function stops the server.
func NewRedis(t *testing.T, cfg config.Mutable) (*miniredis.Miniredis, func()) {
	mredis, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to create miniredis, %v", err)
	}
	cfg.Set("storage.redis.hostname", mredis.Host())
	cfg.Set("storage.redis.port", mredis.Port())
	cfg.Set("storage.redis.pool.maxIdle", PoolMaxIdle)
	cfg.Set("storage.redis.pool.maxActive", PoolMaxActive)
	cfg.Set("storage.redis.pool.idleTimeout", PoolIdleTimeout)
	cfg.Set("storage.redis.pool.healthCheckTimeout", PoolHealthCheckTimeout)

	return mredis, func() {
		mredis.Close()
	}
}
