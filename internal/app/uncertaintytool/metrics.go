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

package uncertaintytool

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Proportion types of the calibration curve.
const (
	PropInterval = "interval"
	PropQuantile = "quantile"
)

// Options tune a metric. Each metric reads only the fields it knows.
type Options struct {
	// Scaled averages instead of summing.
	Scaled bool
	// NumBins is the number of expected proportions on the calibration
	// curve.
	NumBins int
	// PropType selects centered intervals or lower quantiles for the
	// calibration curve.
	PropType string
	// Start and End bound the probabilities the interval and check scores
	// are computed at. Resolution is the number of probabilities.
	Start, End float64
	Resolution int
}

// DefaultOptions returns the options used for keys a config leaves out.
func DefaultOptions() Options {
	return Options{
		Scaled:     true,
		NumBins:    100,
		PropType:   PropInterval,
		Start:      0.01,
		End:        0.99,
		Resolution: 99,
	}
}

// Sharpness is the root mean square of the predicted standard deviations.
func Sharpness(std []float64) (float64, error) {
	if err := checkStd(std); err != nil {
		return 0, err
	}
	return math.Sqrt(floats.Dot(std, std) / float64(len(std))), nil
}

// NegativeLogLikelihood sums the negative log density of each label under
// the gaussian predicted for it. Scaled divides by the number of samples.
func NegativeLogLikelihood(mean, std, label []float64, opts Options) (float64, error) {
	if err := checkGaussian(mean, std, label); err != nil {
		return 0, err
	}
	var nll float64
	for i := range label {
		nll -= distuv.Normal{Mu: 0, Sigma: std[i]}.LogProb(label[i] - mean[i])
	}
	if opts.Scaled {
		nll /= float64(len(label))
	}
	return nll, nil
}

// ContinuousRankedProbabilityScore is the closed form CRPS of gaussian
// predictions. Scaled averages over samples instead of summing.
func ContinuousRankedProbabilityScore(mean, std, label []float64, opts Options) (float64, error) {
	if err := checkGaussian(mean, std, label); err != nil {
		return 0, err
	}
	unit := distuv.UnitNormal
	var crps float64
	for i := range label {
		z := (label[i] - mean[i]) / std[i]
		crps += -std[i] * (1/math.Sqrt(math.Pi) - 2*unit.Prob(z) - z*(2*unit.CDF(z)-1))
	}
	if opts.Scaled {
		crps /= float64(len(label))
	}
	return crps, nil
}

// CalibrationCurve returns the expected proportions, evenly spaced on
// [0, 1], and the share of labels observed inside the matching centered
// interval or below the matching quantile of their predicted gaussian.
func CalibrationCurve(mean, std, label []float64, opts Options) (expected, observed []float64, err error) {
	if err := checkGaussian(mean, std, label); err != nil {
		return nil, nil, err
	}
	if opts.NumBins < 2 {
		return nil, nil, errors.Errorf("num_bins is %d, must be at least 2", opts.NumBins)
	}

	residuals := make([]float64, len(label))
	for i := range label {
		residuals[i] = (mean[i] - label[i]) / std[i]
	}

	expected = floats.Span(make([]float64, opts.NumBins), 0, 1)
	observed = make([]float64, opts.NumBins)
	n := float64(len(label))
	for b, p := range expected {
		var inside int
		switch opts.PropType {
		case PropInterval:
			lower, upper := unitQuantile(0.5-p/2), unitQuantile(0.5+p/2)
			for _, r := range residuals {
				if r >= lower && r <= upper {
					inside++
				}
			}
		case PropQuantile:
			bound := unitQuantile(p)
			for _, r := range residuals {
				if r <= bound {
					inside++
				}
			}
		default:
			return nil, nil, errors.Errorf("unknown prop_type %q", opts.PropType)
		}
		observed[b] = float64(inside) / n
	}
	return expected, observed, nil
}

// MeanAbsoluteCalibrationError averages the distance between the expected
// and observed proportions of the calibration curve.
func MeanAbsoluteCalibrationError(mean, std, label []float64, opts Options) (float64, error) {
	expected, observed, err := CalibrationCurve(mean, std, label, opts)
	if err != nil {
		return 0, err
	}
	diff := make([]float64, len(expected))
	for i := range expected {
		diff[i] = math.Abs(expected[i] - observed[i])
	}
	return stat.Mean(diff, nil), nil
}

// RootMeanSquaredCalibrationError is the quadratic mean of the calibration
// curve's deviation from the diagonal.
func RootMeanSquaredCalibrationError(mean, std, label []float64, opts Options) (float64, error) {
	expected, observed, err := CalibrationCurve(mean, std, label, opts)
	if err != nil {
		return 0, err
	}
	diff := make([]float64, len(expected))
	floats.SubTo(diff, expected, observed)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(diff))), nil
}

// MiscalibrationArea is the area enclosed between the calibration curve
// and the diagonal. Segments crossing the diagonal are split at the
// crossing.
func MiscalibrationArea(mean, std, label []float64, opts Options) (float64, error) {
	expected, observed, err := CalibrationCurve(mean, std, label, opts)
	if err != nil {
		return 0, err
	}
	var area float64
	for i := 1; i < len(expected); i++ {
		dx := expected[i] - expected[i-1]
		d0 := observed[i-1] - expected[i-1]
		d1 := observed[i] - expected[i]
		if d0*d1 >= 0 {
			area += dx * (math.Abs(d0) + math.Abs(d1)) / 2
			continue
		}
		area += dx * (d0*d0 + d1*d1) / (2 * (math.Abs(d0) + math.Abs(d1)))
	}
	return area, nil
}

// IntervalScore is the negatively oriented interval score of the centered
// prediction intervals covering each probability in [Start, End]. Scaled
// averages over the probabilities instead of summing.
func IntervalScore(mean, std, label []float64, opts Options) (float64, error) {
	ps, err := probabilities(mean, std, label, opts)
	if err != nil {
		return 0, err
	}
	scores := make([]float64, len(ps))
	perSample := make([]float64, len(label))
	for k, p := range ps {
		penalty := 2 / (1 - p)
		for i := range label {
			n := distuv.Normal{Mu: mean[i], Sigma: std[i]}
			lower, upper := n.Quantile(0.5-p/2), n.Quantile(0.5+p/2)
			s := upper - lower
			if lower > label[i] {
				s += penalty * (lower - label[i])
			}
			if label[i] > upper {
				s += penalty * (label[i] - upper)
			}
			perSample[i] = s
		}
		scores[k] = stat.Mean(perSample, nil)
	}
	return reduce(scores, opts.Scaled), nil
}

// CheckScore is the pinball loss of the predicted quantiles at each
// probability in [Start, End]. Scaled averages over the probabilities
// instead of summing.
func CheckScore(mean, std, label []float64, opts Options) (float64, error) {
	qs, err := probabilities(mean, std, label, opts)
	if err != nil {
		return 0, err
	}
	scores := make([]float64, len(qs))
	perSample := make([]float64, len(label))
	for k, q := range qs {
		for i := range label {
			diff := distuv.Normal{Mu: mean[i], Sigma: std[i]}.Quantile(q) - label[i]
			weight := -q
			if diff >= 0 {
				weight = 1 - q
			}
			perSample[i] = weight * diff
		}
		scores[k] = stat.Mean(perSample, nil)
	}
	return reduce(scores, opts.Scaled), nil
}

func probabilities(mean, std, label []float64, opts Options) ([]float64, error) {
	if err := checkGaussian(mean, std, label); err != nil {
		return nil, err
	}
	if opts.Resolution < 2 {
		return nil, errors.Errorf("resolution is %d, must be at least 2", opts.Resolution)
	}
	if !(opts.Start > 0 && opts.Start <= opts.End && opts.End < 1) {
		return nil, errors.Errorf("probabilities must satisfy 0 < %v <= %v < 1", opts.Start, opts.End)
	}
	return floats.Span(make([]float64, opts.Resolution), opts.Start, opts.End), nil
}

func reduce(scores []float64, scaled bool) float64 {
	if scaled {
		return stat.Mean(scores, nil)
	}
	return floats.Sum(scores)
}

// unitQuantile extends the standard normal quantile to the closed unit
// interval.
func unitQuantile(p float64) float64 {
	switch {
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	}
	return distuv.UnitNormal.Quantile(p)
}

func checkStd(std []float64) error {
	if len(std) == 0 {
		return errors.New("no samples")
	}
	for i, s := range std {
		if !(s > 0) {
			return errors.Errorf("standard deviation %d is %v, must be positive", i, s)
		}
	}
	return nil
}

func checkGaussian(mean, std, label []float64) error {
	if len(mean) != len(std) || len(mean) != len(label) {
		return errors.Errorf("%d means, %d standard deviations and %d labels", len(mean), len(std), len(label))
	}
	return checkStd(std)
}
