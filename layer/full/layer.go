// Package full implements a fully connected (dense) layer
package full

import "fmt"
import "math/rand"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/layer"

// Full is a dense projection y = act(x·W + b) over a batch of row vectors.
type Full struct {
	in, out int
	act     layer.Activation

	kernel *layer.Param
	bias   *layer.Param

	// forward cache for Backward
	x, y *mat.Dense
}

// MustNew creates a new full layer, panicking on invalid sizes
func MustNew(name string, in, out int, act layer.Activation, rng *rand.Rand) *Full {
	o, err := New(name, in, out, act, rng)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new full layer named name mapping in features to out features.
// The kernel is Glorot-uniform, the bias zero.
func New(name string, in, out int, act layer.Activation, rng *rand.Rand) (*Full, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("full layer %s: widths must be positive, got %d to %d", name, in, out)
	}
	o := &Full{
		in:     in,
		out:    out,
		act:    act,
		kernel: layer.NewParam(name+"/kernel", in, out, true),
		bias:   layer.NewParam(name+"/bias", 1, out, false),
	}
	layer.GlorotUniform(o.kernel.W, rng)
	return o, nil
}

// In reports the input width.
func (f *Full) In() int { return f.in }

// Out reports the output width.
func (f *Full) Out() int { return f.out }

// Activation reports the output non-linearity.
func (f *Full) Activation() layer.Activation { return f.act }

// Params returns kernel and bias.
func (f *Full) Params() []*layer.Param {
	return []*layer.Param{f.kernel, f.bias}
}

// Bias exposes the bias parameter, used to seed output offsets.
func (f *Full) Bias() *layer.Param {
	return f.bias
}

// Forward computes the layer output and remembers what Backward needs.
func (f *Full) Forward(x *mat.Dense) *mat.Dense {
	y := f.Infer(x)
	f.x, f.y = x, y
	return y
}

// Infer computes the layer output without touching the cache. It is safe for concurrent use.
func (f *Full) Infer(x *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	y := mat.NewDense(r, f.out, nil)
	y.Mul(x, f.kernel.W)
	layer.AddRow(y, f.bias.W)
	f.act.Apply(y)
	return y
}
