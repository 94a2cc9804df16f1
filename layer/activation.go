package layer

import "math"

import "gonum.org/v1/gonum/mat"

// Activation is an element-wise non-linearity.
type Activation int

const (
	Linear Activation = iota
	ReLU
	Sigmoid
	Tanh
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case Linear:
		return "linear"
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	}
	return "unknown"
}

// Scalar applies the activation to one value.
func (a Activation) Scalar(x float64) float64 {
	switch a {
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	case Sigmoid:
		return SigmoidScalar(x)
	case Tanh:
		return math.Tanh(x)
	}
	return x
}

// Derivative returns the derivative expressed through the activation output y.
func (a Activation) Derivative(y float64) float64 {
	switch a {
	case ReLU:
		if y > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		return y * (1 - y)
	case Tanh:
		return 1 - y*y
	}
	return 1
}

// Apply overwrites m with the activation of its elements.
func (a Activation) Apply(m *mat.Dense) {
	if a == Linear {
		return
	}
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			row[j] = a.Scalar(v)
		}
	}
}

// Backward returns dy scaled by the activation derivative at output y.
func (a Activation) Backward(dy, y *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(dy)
	if a == Linear {
		return out
	}
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		yr := y.RawRowView(i)
		for j := range row {
			row[j] *= a.Derivative(yr[j])
		}
	}
	return out
}

// SigmoidScalar is the numerically stable logistic function.
func SigmoidScalar(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
