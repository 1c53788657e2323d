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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Mission-KI/pruefplattform/internal/codec"
	"github.com/Mission-KI/pruefplattform/internal/config"
)

func TestWorkerPoolBound(t *testing.T) {
	pool := newWorkerPool(2)
	release := make(chan struct{})
	var running, peak int32

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return req, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.unaryInterceptor(context.Background(), nil, nil, handler)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(2), atomic.LoadInt32(&running))

	close(release)
	wg.Wait()
	require.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestWorkerPoolCanceledWhileWaiting(t *testing.T) {
	pool := newWorkerPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = pool.unaryInterceptor(context.Background(), nil, nil, func(context.Context, interface{}) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := pool.unaryInterceptor(ctx, nil, nil, func(context.Context, interface{}) (interface{}, error) {
		t.Error("handler must not run")
		return nil, nil
	})
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestWorkerPoolDefaultSize(t *testing.T) {
	pool := newWorkerPool(0)
	require.True(t, pool.sem.TryAcquire(config.DefaultWorkers))
	require.False(t, pool.sem.TryAcquire(1))
}

func TestNewCodecRegistry(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Set("codecs.enabled", []string{"arrow", "hdf5"})

	caps := NewCodecRegistry(cfg).Capabilities()
	require.Len(t, caps, 1)
	require.Equal(t, codec.KindArrow, caps[0].Kind)

	require.Len(t, NewCodecRegistry(config.NewDefault()).Capabilities(), 4)
}
