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

package metricstool

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metric computes one score from ground truth labels and predictions of
// equal length. Classification metrics expect binary labels where 1 is the
// positive class.
type Metric func(yTrue, yPred []float64) (interface{}, error)

// Metrics lists the supported metrics by name.
var Metrics = map[string]Metric{
	"accuracy":          fromConfusion(accuracy),
	"precision":         fromConfusion(precision),
	"recall":            fromConfusion(recall),
	"f1":                fromConfusion(f1),
	"mcc":               fromConfusion(mcc),
	"specificity":       fromConfusion(specificity),
	"balanced_accuracy": fromConfusion(balancedAccuracy),
	"tp":                fromConfusion(func(c confusion) interface{} { return c.tp }),
	"fp":                fromConfusion(func(c confusion) interface{} { return c.fp }),
	"tn":                fromConfusion(func(c confusion) interface{} { return c.tn }),
	"fn":                fromConfusion(func(c confusion) interface{} { return c.fn }),
	"mse":               meanSquaredError,
	"roc_auc":           rocAUC,
}

type confusion struct {
	tp, fp, tn, fn int
}

func newConfusion(yTrue, yPred []float64) (confusion, error) {
	var c confusion
	for i := range yTrue {
		t, err := binary(yTrue[i])
		if err != nil {
			return confusion{}, errors.Wrapf(err, "y_true[%d]", i)
		}
		p, err := binary(yPred[i])
		if err != nil {
			return confusion{}, errors.Wrapf(err, "y_pred[%d]", i)
		}
		switch {
		case t && p:
			c.tp++
		case t:
			c.fn++
		case p:
			c.fp++
		default:
			c.tn++
		}
	}
	return c, nil
}

func binary(v float64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.Errorf("label %v is not binary", v)
}

func fromConfusion(score func(confusion) interface{}) Metric {
	return func(yTrue, yPred []float64) (interface{}, error) {
		if err := sameLength(yTrue, yPred); err != nil {
			return nil, err
		}
		c, err := newConfusion(yTrue, yPred)
		if err != nil {
			return nil, err
		}
		return score(c), nil
	}
}

func sameLength(yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return errors.Errorf("y_true has %d elements, y_pred has %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return errors.New("no samples")
	}
	return nil
}

// ratio returns 0 on a zero denominator.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func accuracy(c confusion) interface{} {
	return ratio(c.tp+c.tn, c.tp+c.tn+c.fp+c.fn)
}

func precision(c confusion) interface{} {
	return ratio(c.tp, c.tp+c.fp)
}

func recall(c confusion) interface{} {
	return ratio(c.tp, c.tp+c.fn)
}

func f1(c confusion) interface{} {
	return ratio(2*c.tp, 2*c.tp+c.fp+c.fn)
}

func mcc(c confusion) interface{} {
	tp, fp, tn, fn := float64(c.tp), float64(c.fp), float64(c.tn), float64(c.fn)
	den := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	if den == 0 {
		return 0.0
	}
	return (tp*tn - fp*fn) / den
}

// specificity is undefined, and stored as null, without negative samples.
func specificity(c confusion) interface{} {
	if c.tn+c.fp == 0 {
		return nil
	}
	return ratio(c.tn, c.tn+c.fp)
}

func balancedAccuracy(c confusion) interface{} {
	if c.tn+c.fp == 0 || c.tp+c.fn == 0 {
		return nil
	}
	return (ratio(c.tp, c.tp+c.fn) + ratio(c.tn, c.tn+c.fp)) / 2
}

func meanSquaredError(yTrue, yPred []float64) (interface{}, error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return nil, err
	}
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// rocAUC takes y_pred as scores for the positive class. Tied scores count
// half.
func rocAUC(yTrue, yPred []float64) (interface{}, error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return nil, err
	}
	scores := make([]float64, len(yPred))
	copy(scores, yPred)
	classes := make([]bool, len(yTrue))
	var positives int
	for i, v := range yTrue {
		t, err := binary(v)
		if err != nil {
			return nil, errors.Wrapf(err, "y_true[%d]", i)
		}
		classes[i] = t
		if t {
			positives++
		}
	}
	if positives == 0 || positives == len(classes) {
		return nil, errors.New("roc_auc needs both classes in y_true")
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
