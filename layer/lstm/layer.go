// Package lstm implements a long short-term memory recurrent layer over batched sequences.
//
// A sequence is a slice of timestep matrices, each holding one row per sample.
// Gates are laid out input, forget, cell, output along the columns of the
// kernel, recurrent kernel and bias.
package lstm

import "fmt"
import "math"
import "math/rand"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/layer"

// LSTM is a recurrent layer with units hidden cells.
type LSTM struct {
	in, units int
	sequences bool

	kernel    *layer.Param // in × 4·units
	recurrent *layer.Param // units × 4·units
	bias      *layer.Param // 1 × 4·units

	steps []step
}

type step struct {
	x, hPrev, cPrev *mat.Dense
	i, f, g, o      *mat.Dense
	tc              *mat.Dense // tanh of the new cell state
}

// MustNew creates a new LSTM layer, panicking on invalid sizes
func MustNew(name string, in, units int, sequences bool, rng *rand.Rand) *LSTM {
	o, err := New(name, in, units, sequences, rng)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates an LSTM reading in features per timestep. With sequences set the
// layer returns its hidden state at every timestep, otherwise only the last one.
func New(name string, in, units int, sequences bool, rng *rand.Rand) (*LSTM, error) {
	if in <= 0 || units <= 0 {
		return nil, fmt.Errorf("lstm layer %s: widths must be positive, got %d to %d", name, in, units)
	}
	l := &LSTM{
		in:        in,
		units:     units,
		sequences: sequences,
		kernel:    layer.NewParam(name+"/kernel", in, 4*units, true),
		recurrent: layer.NewParam(name+"/recurrent_kernel", units, 4*units, true),
		bias:      layer.NewParam(name+"/bias", 1, 4*units, false),
	}
	layer.GlorotUniform(l.kernel.W, rng)
	layer.Orthogonal(l.recurrent.W, rng)

	// forget gate starts open
	row := l.bias.W.RawRowView(0)
	for k := units; k < 2*units; k++ {
		row[k] = 1
	}
	return l, nil
}

// In reports the input width per timestep.
func (l *LSTM) In() int { return l.in }

// Units reports the hidden width.
func (l *LSTM) Units() int { return l.units }

// Sequences reports whether every timestep's hidden state is returned.
func (l *LSTM) Sequences() bool { return l.sequences }

// Params returns kernel, recurrent kernel and bias.
func (l *LSTM) Params() []*layer.Param {
	return []*layer.Param{l.kernel, l.recurrent, l.bias}
}

// Forward runs the sequence and keeps every step for Backward.
func (l *LSTM) Forward(xs []*mat.Dense) []*mat.Dense {
	hs, steps := l.run(xs, true)
	l.steps = steps
	return hs
}

// Infer runs the sequence without caching. It is safe for concurrent use.
func (l *LSTM) Infer(xs []*mat.Dense) []*mat.Dense {
	hs, _ := l.run(xs, false)
	return hs
}

func (l *LSTM) run(xs []*mat.Dense, keep bool) (out []*mat.Dense, steps []step) {
	if len(xs) == 0 {
		panic("lstm: empty sequence")
	}
	b, _ := xs[0].Dims()
	u := l.units
	h := mat.NewDense(b, u, nil)
	c := mat.NewDense(b, u, nil)

	for _, x := range xs {
		z := mat.NewDense(b, 4*u, nil)
		z.Mul(x, l.kernel.W)
		var zh mat.Dense
		zh.Mul(h, l.recurrent.W)
		z.Add(z, &zh)
		layer.AddRow(z, l.bias.W)

		s := step{
			x: x, hPrev: h, cPrev: c,
			i:  mat.NewDense(b, u, nil),
			f:  mat.NewDense(b, u, nil),
			g:  mat.NewDense(b, u, nil),
			o:  mat.NewDense(b, u, nil),
			tc: mat.NewDense(b, u, nil),
		}
		nh := mat.NewDense(b, u, nil)
		nc := mat.NewDense(b, u, nil)
		for r := 0; r < b; r++ {
			zr := z.RawRowView(r)
			cp := c.RawRowView(r)
			ir, fr, gr, or, tr := s.i.RawRowView(r), s.f.RawRowView(r), s.g.RawRowView(r), s.o.RawRowView(r), s.tc.RawRowView(r)
			hr, cr := nh.RawRowView(r), nc.RawRowView(r)
			for k := 0; k < u; k++ {
				ir[k] = layer.SigmoidScalar(zr[k])
				fr[k] = layer.SigmoidScalar(zr[u+k])
				gr[k] = math.Tanh(zr[2*u+k])
				or[k] = layer.SigmoidScalar(zr[3*u+k])
				cr[k] = fr[k]*cp[k] + ir[k]*gr[k]
				tr[k] = math.Tanh(cr[k])
				hr[k] = or[k] * tr[k]
			}
		}
		h, c = nh, nc
		if l.sequences {
			out = append(out, h)
		}
		if keep {
			steps = append(steps, s)
		}
	}
	if !l.sequences {
		out = []*mat.Dense{h}
	}
	return out, steps
}
