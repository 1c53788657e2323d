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

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func registerView(t *testing.T, v *view.View) {
	require.NoError(t, view.Register(v))
	t.Cleanup(func() { view.Unregister(v) })
}

func TestDispatchCountView(t *testing.T) {
	registerView(t, DispatchCountView)

	ctx := context.Background()
	RecordUnitMeasurement(ctx, DispatchCount, tag.Upsert(KeyFunction, "fourtytwo_wrapper"), tag.Upsert(KeyStatus, "OK"))
	RecordUnitMeasurement(ctx, DispatchCount, tag.Upsert(KeyFunction, "fourtytwo_wrapper"), tag.Upsert(KeyStatus, "OK"))

	rows, err := view.RetrieveData(DispatchCountView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.ElementsMatch(t, []tag.Tag{{Key: KeyFunction, Value: "fourtytwo_wrapper"}, {Key: KeyStatus, Value: "OK"}}, rows[0].Tags)
	assert.Equal(t, int64(2), rows[0].Data.(*view.CountData).Value)
}

func TestArtifactBytesView(t *testing.T) {
	registerView(t, ArtifactBytesView)

	RecordNUnitMeasurement(context.Background(), ArtifactBytes, 2, tag.Upsert(KeyKind, "dict"))

	rows, err := view.RetrieveData(ArtifactBytesView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	dist := rows[0].Data.(*view.DistributionData)
	assert.Equal(t, int64(1), dist.Count)
	assert.Equal(t, 2.0, dist.Max)
}

func TestWorkersBusyView(t *testing.T) {
	registerView(t, WorkersBusyView)

	ctx := context.Background()
	SetGauge(ctx, WorkersBusy, 3)
	SetGauge(ctx, WorkersBusy, 1)

	rows, err := view.RetrieveData(WorkersBusyView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Data.(*view.LastValueData).Value)
}

func TestLatencyView(t *testing.T) {
	registerView(t, DispatchLatencyView)

	RecordLatency(context.Background(), DispatchLatency, 12.5, tag.Upsert(KeyFunction, "f"))

	rows, err := view.RetrieveData(DispatchLatencyView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12.5, rows[0].Data.(*view.DistributionData).Mean)
}
