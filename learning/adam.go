package learning

import "math"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/layer"

// Adam is the adaptive moment estimation optimiser. Moment buffers are keyed by
// parameter, so the same Adam must keep seeing the same parameters.
type Adam struct {
	lr, beta1, beta2, eps float64

	t int
	m map[*layer.Param]*mat.Dense
	v map[*layer.Param]*mat.Dense
}

// NewAdam creates the optimiser from h.
func NewAdam(h HyperParameters) *Adam {
	return &Adam{
		lr:    h.LearningRate,
		beta1: h.Beta1,
		beta2: h.Beta2,
		eps:   h.Epsilon,
		m:     make(map[*layer.Param]*mat.Dense),
		v:     make(map[*layer.Param]*mat.Dense),
	}
}

// LearningRate reports the current step size.
func (a *Adam) LearningRate() float64 { return a.lr }

// SetLearningRate changes the step size for subsequent updates.
func (a *Adam) SetLearningRate(lr float64) { a.lr = lr }

// Steps reports how many updates were applied.
func (a *Adam) Steps() int { return a.t }

// Step applies one bias-corrected update to every parameter from its gradient.
func (a *Adam) Step(params []*layer.Param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			r, c := p.W.Dims()
			m = mat.NewDense(r, c, nil)
			a.m[p] = m
			a.v[p] = mat.NewDense(r, c, nil)
		}
		v := a.v[p]
		r, _ := p.W.Dims()
		for i := 0; i < r; i++ {
			w, g, mr, vr := p.W.RawRowView(i), p.Grad.RawRowView(i), m.RawRowView(i), v.RawRowView(i)
			for j := range w {
				mr[j] = a.beta1*mr[j] + (1-a.beta1)*g[j]
				vr[j] = a.beta2*vr[j] + (1-a.beta2)*g[j]*g[j]
				w[j] -= a.lr * (mr[j] / c1) / (math.Sqrt(vr[j]/c2) + a.eps)
			}
		}
	}
}
