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

package harness

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"

	"github.com/Mission-KI/pruefplattform/internal/config"
	"github.com/Mission-KI/pruefplattform/internal/telemetry"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
)

// workerPool bounds the number of calls executing at once. Calls over the
// bound wait until a worker frees up or their context ends.
type workerPool struct {
	sem  *semaphore.Weighted
	busy int64
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = config.DefaultWorkers
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size))}
}

func (w *workerPool) unaryInterceptor(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, toolerror.ToStatus(err)
	}
	telemetry.SetGauge(ctx, telemetry.WorkersBusy, atomic.AddInt64(&w.busy, 1))
	defer func() {
		telemetry.SetGauge(ctx, telemetry.WorkersBusy, atomic.AddInt64(&w.busy, -1))
		w.sem.Release(1)
	}()
	return handler(ctx, req)
}
