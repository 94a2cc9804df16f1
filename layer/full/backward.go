package full

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/layer"

// Backward takes the gradient of the loss with respect to the last Forward output,
// accumulates kernel and bias gradients and returns the gradient with respect to the input.
func (f *Full) Backward(dy *mat.Dense) *mat.Dense {
	if f.x == nil {
		panic("full: Backward called before Forward")
	}
	dz := f.act.Backward(dy, f.y)

	var dw mat.Dense
	dw.Mul(f.x.T(), dz)
	f.kernel.Accumulate(&dw)
	f.bias.Accumulate(layer.RowSum(dz))

	r, _ := dz.Dims()
	dx := mat.NewDense(r, f.in, nil)
	dx.Mul(dz, f.kernel.W.T())
	return dx
}
