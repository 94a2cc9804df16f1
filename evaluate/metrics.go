// Package evaluate compares the model against a baseline forecaster on held-out
// samples: MAPE and RMSE for both, their improvement and the pass/fail target.
package evaluate

import "errors"
import "fmt"
import "math"

import "gonum.org/v1/gonum/floats"

// Epsilon floors the magnitude of a true value in the MAPE denominator.
const Epsilon = 2.220446049250313e-16

var errEmpty = errors.New("no values to compare")

// Metrics is a pair of error measures for one predictor.
type Metrics struct {
	MAPE float64 // percent
	RMSE float64
}

// MAPE returns mean(|t-p| / max(|t|, Epsilon)) · 100.
func MAPE(truth, pred []float64) (float64, error) {
	if err := comparable(truth, pred); err != nil {
		return 0, err
	}
	var sum float64
	for i, t := range truth {
		sum += math.Abs(t-pred[i]) / math.Max(math.Abs(t), Epsilon)
	}
	return sum / float64(len(truth)) * 100, nil
}

// RMSE returns the root mean squared error.
func RMSE(truth, pred []float64) (float64, error) {
	if err := comparable(truth, pred); err != nil {
		return 0, err
	}
	return floats.Distance(truth, pred, 2) / math.Sqrt(float64(len(truth))), nil
}

// MAE returns the mean absolute error.
func MAE(truth, pred []float64) (float64, error) {
	if err := comparable(truth, pred); err != nil {
		return 0, err
	}
	return floats.Distance(truth, pred, 1) / float64(len(truth)), nil
}

// Compute returns MAPE and RMSE of pred against truth.
func Compute(truth, pred []float64) (Metrics, error) {
	mape, err := MAPE(truth, pred)
	if err != nil {
		return Metrics{}, err
	}
	rmse, err := RMSE(truth, pred)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{MAPE: mape, RMSE: rmse}, nil
}

// Improvement returns (baseline - model) / baseline · 100. Equal values give
// exactly 0, including 0/0; a perfect baseline beaten by nothing gives -Inf.
func Improvement(baseline, model float64) float64 {
	switch {
	case baseline == model:
		return 0
	case baseline == 0 && model > 0:
		return math.Inf(-1)
	}
	return (baseline - model) / baseline * 100
}

// Improvements applies Improvement per metric kind.
func Improvements(baseline, model Metrics) Metrics {
	return Metrics{
		MAPE: Improvement(baseline.MAPE, model.MAPE),
		RMSE: Improvement(baseline.RMSE, model.RMSE),
	}
}

func comparable(truth, pred []float64) error {
	if len(truth) != len(pred) {
		return fmt.Errorf("compare %d true values with %d predictions", len(truth), len(pred))
	}
	if len(truth) == 0 {
		return errEmpty
	}
	return nil
}
