package trainer

import "errors"
import "fmt"
import "math"

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/learning"
import "github.com/neurlang/climapredict/net/forecast"

// ErrObjectiveBinding reports objectives that miss an output or bind one twice.
var ErrObjectiveBinding = errors.New("objectives must bind every output exactly once")

// Objective binds a loss and its weight to a named network output.
type Objective struct {
	Output forecast.Output
	Loss   learning.Loss
	Weight float64
}

// DefaultObjectives returns mean squared error on the forecast (weight 1) and
// binary cross-entropy on the risk (weight 0.5).
func DefaultObjectives() []Objective {
	return Objectives(1.0, 0.5)
}

// Objectives returns the default losses with custom weights.
func Objectives(forecastWeight, riskWeight float64) []Objective {
	return []Objective{
		{Output: forecast.Forecast, Loss: learning.MeanSquaredError{}, Weight: forecastWeight},
		{Output: forecast.Risk, Loss: learning.BinaryCrossEntropy{}, Weight: riskWeight},
	}
}

func checkObjectives(objectives []Objective) error {
	bound := make(map[forecast.Output]bool, len(objectives))
	for _, o := range objectives {
		if bound[o.Output] {
			return fmt.Errorf("%w: %s bound twice", ErrObjectiveBinding, o.Output)
		}
		if o.Loss == nil {
			return fmt.Errorf("%w: %s has no loss", ErrObjectiveBinding, o.Output)
		}
		if o.Weight < 0 || math.IsNaN(o.Weight) || math.IsInf(o.Weight, 0) {
			return fmt.Errorf("%w: %s weight %v", ErrObjectiveBinding, o.Output, o.Weight)
		}
		bound[o.Output] = true
	}
	for _, out := range forecast.Outputs() {
		if !bound[out] {
			return fmt.Errorf("%w: %s unbound", ErrObjectiveBinding, out)
		}
	}
	return nil
}

// composite returns the weighted loss sum over every objective and, when
// grads is set, the weighted gradient per output.
func composite(objectives []Objective, res forecast.Result, targets climate.Targets, grads bool) (float64, forecast.Result, error) {
	var total float64
	var g forecast.Result
	if grads {
		g = make(forecast.Result, len(objectives))
	}
	for _, o := range objectives {
		loss, grad, err := o.Loss.Loss(res[o.Output], o.Output.Target(targets))
		if err != nil {
			return 0, nil, fmt.Errorf("%s loss: %w", o.Output, err)
		}
		total += o.Weight * loss
		if grads {
			grad.Scale(o.Weight, grad)
			g[o.Output] = grad
		}
	}
	return total, g, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
