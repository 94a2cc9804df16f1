// Package dropout implements inverted dropout with hash-derived masks
package dropout

import "fmt"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/hash"

// Dropout zeroes each activation with probability rate during training and scales
// the survivors by 1/(1-rate). At inference it is the identity.
//
// The mask of the n-th training call is a pure function of (seed, n), so a run
// with a fixed seed drops the same units every time.
type Dropout struct {
	rate  float64
	seed  uint32
	calls uint32

	mask *mat.Dense
}

// MustNew creates a new dropout layer, panicking on an invalid rate
func MustNew(rate float64, seed uint32) *Dropout {
	o, err := New(rate, seed)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new dropout layer with drop probability rate in [0, 1).
func New(rate float64, seed uint32) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout: rate %v outside [0, 1)", rate)
	}
	return &Dropout{rate: rate, seed: seed}, nil
}

// Rate reports the drop probability.
func (d *Dropout) Rate() float64 { return d.rate }

// Forward applies a fresh mask.
func (d *Dropout) Forward(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	salt := d.seed ^ (d.calls * 0x9E3779B9)
	d.calls++

	keep := 1 / (1 - d.rate)
	d.mask = mat.NewDense(r, c, nil)
	y := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		mr, yr, xr := d.mask.RawRowView(i), y.RawRowView(i), x.RawRowView(i)
		for j := range mr {
			if hash.Unit(uint32(i*c+j), salt) >= d.rate {
				mr[j] = keep
				yr[j] = xr[j] * keep
			}
		}
	}
	return y
}

// Backward routes dy through the mask of the last Forward.
func (d *Dropout) Backward(dy *mat.Dense) *mat.Dense {
	if d.mask == nil {
		panic("dropout: Backward called before Forward")
	}
	var dx mat.Dense
	dx.MulElem(dy, d.mask)
	return &dx
}
