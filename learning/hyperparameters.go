// Package learning implements the optimisation stage: loss functions and the
// Adam update rule over layer parameters.
package learning

import "fmt"

// HyperParameters configures a training run.
type HyperParameters struct {
	Epochs    int // upper bound on training epochs
	BatchSize int // samples per optimiser step

	LearningRate    float64 // initial Adam step size
	MinLearningRate float64 // floor for plateau reductions
	Beta1           float64
	Beta2           float64
	Epsilon         float64

	ReducePatience int     // epochs without improvement before the learning rate is cut
	ReduceFactor   float64 // multiplier applied on each cut
	StopPatience   int     // epochs without improvement before training stops

	Threads int // workers for validation inference, 0 means detected

	Seed int64 // seeds weight init, shuffling and dropout
}

// Default returns the production hyperparameters.
func Default() HyperParameters {
	return HyperParameters{
		Epochs:         100,
		BatchSize:      32,
		LearningRate:   1e-3,
		Beta1:          0.9,
		Beta2:          0.999,
		Epsilon:        1e-7,
		ReducePatience: 5,
		ReduceFactor:   0.5,
		StopPatience:   10,
		Seed:           42,
	}
}

// Validate rejects settings that cannot drive a run.
func (h *HyperParameters) Validate() error {
	switch {
	case h.Epochs <= 0:
		return fmt.Errorf("hyperparameters: epochs must be positive, got %d", h.Epochs)
	case h.BatchSize <= 0:
		return fmt.Errorf("hyperparameters: batch size must be positive, got %d", h.BatchSize)
	case !(h.LearningRate > 0):
		return fmt.Errorf("hyperparameters: learning rate must be positive, got %v", h.LearningRate)
	case h.MinLearningRate < 0 || h.MinLearningRate > h.LearningRate:
		return fmt.Errorf("hyperparameters: min learning rate %v outside [0, %v]", h.MinLearningRate, h.LearningRate)
	case h.Beta1 < 0 || h.Beta1 >= 1 || h.Beta2 < 0 || h.Beta2 >= 1:
		return fmt.Errorf("hyperparameters: betas must lie in [0, 1)")
	case !(h.Epsilon > 0):
		return fmt.Errorf("hyperparameters: epsilon must be positive")
	case h.ReducePatience <= 0 || h.StopPatience <= 0:
		return fmt.Errorf("hyperparameters: patience must be positive")
	case !(h.ReduceFactor > 0 && h.ReduceFactor < 1):
		return fmt.Errorf("hyperparameters: reduce factor %v outside (0, 1)", h.ReduceFactor)
	case h.Threads < 0:
		return fmt.Errorf("hyperparameters: threads must not be negative")
	}
	return nil
}
