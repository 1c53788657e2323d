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

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Tag keys attached to tool measurements.
var (
	KeyFunction  = tag.MustNewKey("function")
	KeyStatus    = tag.MustNewKey("status")
	KeyKind      = tag.MustNewKey("kind")
	KeyScheme    = tag.MustNewKey("scheme")
	KeyOperation = tag.MustNewKey("operation")
)

// Histogram buckets of the distribution views. Artifacts range from a few
// bytes of JSON to arrow files of several hundred megabytes.
var (
	DefaultBytesDistribution        = view.Distribution(64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864, 268435456)
	DefaultMillisecondsDistribution = view.Distribution(0.1, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000, 60000, 300000)
)

// Measures recorded by the dispatcher, the artifact resolver and the storage
// backends.
var (
	DispatchCount   = stats.Int64("barebone/dispatch/count", "Number of function calls", stats.UnitDimensionless)
	DispatchLatency = stats.Float64("barebone/dispatch/latency", "Time spent running a function", stats.UnitMilliseconds)
	ArtifactBytes   = stats.Int64("barebone/artifact/bytes", "Size of artifacts written", stats.UnitBytes)
	StorageOps      = stats.Int64("barebone/storage/operations", "Number of storage operations", stats.UnitDimensionless)
	WorkersBusy     = stats.Int64("barebone/workers/busy", "Number of calls holding a worker", stats.UnitDimensionless)
)

// Dispatch views
var (
	DispatchCountView = &view.View{
		Name:        "barebone/dispatch/count",
		Description: "Number of function calls by function and status",
		Measure:     DispatchCount,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyFunction, KeyStatus},
	}

	DispatchLatencyView = &view.View{
		Name:        "barebone/dispatch/latency",
		Description: "Latency of function calls by function",
		Measure:     DispatchLatency,
		Aggregation: DefaultMillisecondsDistribution,
		TagKeys:     []tag.Key{KeyFunction},
	}
)

// Artifact views
var (
	ArtifactBytesView = &view.View{
		Name:        "barebone/artifact/bytes",
		Description: "Size of stored artifacts by codec kind",
		Measure:     ArtifactBytes,
		Aggregation: DefaultBytesDistribution,
		TagKeys:     []tag.Key{KeyKind},
	}

	StorageOpsView = &view.View{
		Name:        "barebone/storage/operations",
		Description: "Number of storage operations by scheme and operation",
		Measure:     StorageOps,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyScheme, KeyOperation},
	}
)

// Worker pool views
var (
	WorkersBusyView = &view.View{
		Name:        "barebone/workers/busy",
		Description: "Number of calls currently executing",
		Measure:     WorkersBusy,
		Aggregation: view.LastValue(),
	}
)

// DefaultViews are registered when a metrics exporter is enabled.
var DefaultViews = []*view.View{
	DispatchCountView,
	DispatchLatencyView,
	ArtifactBytesView,
	StorageOpsView,
	WorkersBusyView,
}

// SetGauge records the current value of a last value measure.
func SetGauge(ctx context.Context, s *stats.Int64Measure, n int64, tags ...tag.Mutator) {
	if err := stats.RecordWithTags(ctx, tags, s.M(n)); err != nil {
		logger.WithError(err).Infof("cannot record gauge with tags %#v", tags)
	}
}

// RecordUnitMeasurement records a data point using the input metric by one unit with given tags.
func RecordUnitMeasurement(ctx context.Context, s *stats.Int64Measure, tags ...tag.Mutator) {
	RecordNUnitMeasurement(ctx, s, 1, tags...)
}

// RecordNUnitMeasurement records a data point using the input metric by N units with given tags.
func RecordNUnitMeasurement(ctx context.Context, s *stats.Int64Measure, n int64, tags ...tag.Mutator) {
	if err := stats.RecordWithTags(ctx, tags, s.M(n)); err != nil {
		logger.WithError(err).Infof("cannot record stat with tags %#v", tags)
		return
	}
}

// RecordLatency records the milliseconds elapsed in a float measure.
func RecordLatency(ctx context.Context, s *stats.Float64Measure, ms float64, tags ...tag.Mutator) {
	if err := stats.RecordWithTags(ctx, tags, s.M(ms)); err != nil {
		logger.WithError(err).Infof("cannot record latency with tags %#v", tags)
	}
}
