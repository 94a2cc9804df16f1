package lstm

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/layer"

// Backward propagates dh, the loss gradient with respect to the outputs of the
// last Forward (one matrix per returned timestep), back through time. It
// accumulates the parameter gradients and returns the gradient for every input timestep.
func (l *LSTM) Backward(dh []*mat.Dense) []*mat.Dense {
	T := len(l.steps)
	if T == 0 {
		panic("lstm: Backward called before Forward")
	}
	if l.sequences && len(dh) != T {
		panic("lstm: sequence gradient length mismatch")
	}
	if !l.sequences && len(dh) != 1 {
		panic("lstm: expected a single last-state gradient")
	}
	b, _ := l.steps[0].x.Dims()
	u := l.units

	dhNext := mat.NewDense(b, u, nil)
	dcNext := mat.NewDense(b, u, nil)
	dxs := make([]*mat.Dense, T)

	for t := T - 1; t >= 0; t-- {
		s := l.steps[t]

		dht := mat.DenseCopyOf(dhNext)
		switch {
		case l.sequences:
			dht.Add(dht, dh[t])
		case t == T-1:
			dht.Add(dht, dh[0])
		}

		dz := mat.NewDense(b, 4*u, nil)
		dcPrev := mat.NewDense(b, u, nil)
		for r := 0; r < b; r++ {
			hr, cn := dht.RawRowView(r), dcNext.RawRowView(r)
			ir, fr, gr, or, tr := s.i.RawRowView(r), s.f.RawRowView(r), s.g.RawRowView(r), s.o.RawRowView(r), s.tc.RawRowView(r)
			cp := s.cPrev.RawRowView(r)
			zr := dz.RawRowView(r)
			pr := dcPrev.RawRowView(r)
			for k := 0; k < u; k++ {
				dc := cn[k] + hr[k]*or[k]*(1-tr[k]*tr[k])
				do := hr[k] * tr[k]
				di := dc * gr[k]
				dg := dc * ir[k]
				df := dc * cp[k]

				zr[k] = di * ir[k] * (1 - ir[k])
				zr[u+k] = df * fr[k] * (1 - fr[k])
				zr[2*u+k] = dg * (1 - gr[k]*gr[k])
				zr[3*u+k] = do * or[k] * (1 - or[k])
				pr[k] = dc * fr[k]
			}
		}

		var dk, dr mat.Dense
		dk.Mul(s.x.T(), dz)
		dr.Mul(s.hPrev.T(), dz)
		l.kernel.Accumulate(&dk)
		l.recurrent.Accumulate(&dr)
		l.bias.Accumulate(layer.RowSum(dz))

		dx := mat.NewDense(b, l.in, nil)
		dx.Mul(dz, l.kernel.W.T())
		dxs[t] = dx

		nh := mat.NewDense(b, u, nil)
		nh.Mul(dz, l.recurrent.W.T())
		dhNext, dcNext = nh, dcPrev
	}
	return dxs
}
