package learning

import "fmt"
import "math"

import "gonum.org/v1/gonum/mat"

// Loss computes the mean loss of a batch prediction against its target and the
// gradient of that mean with respect to the prediction.
type Loss interface {
	Loss(pred, target *mat.Dense) (float64, *mat.Dense, error)
	String() string
}

// Probabilities are clipped into [ProbabilityClip, 1-ProbabilityClip] before logs are taken.
const ProbabilityClip = 1e-7

// MeanSquaredError averages (p-t)² over every element.
type MeanSquaredError struct{}

func (MeanSquaredError) String() string { return "mse" }

// Loss implements Loss.
func (MeanSquaredError) Loss(pred, target *mat.Dense) (float64, *mat.Dense, error) {
	r, c, err := same(pred, target)
	if err != nil {
		return 0, nil, err
	}
	n := float64(r * c)
	grad := mat.NewDense(r, c, nil)
	var sum float64
	for i := 0; i < r; i++ {
		p, t, g := pred.RawRowView(i), target.RawRowView(i), grad.RawRowView(i)
		for j := range p {
			d := p[j] - t[j]
			sum += d * d
			g[j] = 2 * d / n
		}
	}
	return sum / n, grad, nil
}

// BinaryCrossEntropy averages -(t·log p + (1-t)·log(1-p)) over every element.
type BinaryCrossEntropy struct{}

func (BinaryCrossEntropy) String() string { return "bce" }

// Loss implements Loss.
func (BinaryCrossEntropy) Loss(pred, target *mat.Dense) (float64, *mat.Dense, error) {
	r, c, err := same(pred, target)
	if err != nil {
		return 0, nil, err
	}
	n := float64(r * c)
	grad := mat.NewDense(r, c, nil)
	var sum float64
	for i := 0; i < r; i++ {
		p, t, g := pred.RawRowView(i), target.RawRowView(i), grad.RawRowView(i)
		for j := range p {
			q := math.Min(math.Max(p[j], ProbabilityClip), 1-ProbabilityClip)
			sum -= t[j]*math.Log(q) + (1-t[j])*math.Log(1-q)
			if q == p[j] {
				g[j] = (q - t[j]) / (q * (1 - q)) / n
			}
		}
	}
	return sum / n, grad, nil
}

// ParseLoss resolves a loss by its short name.
func ParseLoss(name string) (Loss, error) {
	switch name {
	case "mse":
		return MeanSquaredError{}, nil
	case "bce":
		return BinaryCrossEntropy{}, nil
	}
	return nil, fmt.Errorf("unknown loss %q", name)
}

func same(pred, target *mat.Dense) (int, int, error) {
	r, c := pred.Dims()
	tr, tc := target.Dims()
	if r != tr || c != tc {
		return 0, 0, fmt.Errorf("loss: prediction is %dx%d, target is %dx%d", r, c, tr, tc)
	}
	return r, c, nil
}
