package layer

import "math"
import "math/rand"

import "gonum.org/v1/gonum/mat"

// GlorotUniform fills m from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)).
func GlorotUniform(m *mat.Dense, rng *rand.Rand) {
	r, c := m.Dims()
	limit := math.Sqrt(6 / float64(r+c))
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = (2*rng.Float64() - 1) * limit
		}
	}
}

// Orthogonal fills m with a (semi-)orthogonal matrix obtained from the QR
// decomposition of a Gaussian matrix. Rows are orthonormal when m is wide,
// columns when m is tall.
func Orthogonal(m *mat.Dense, rng *rand.Rand) {
	r, c := m.Dims()
	tall, short := r, c
	if r < c {
		tall, short = c, r
	}
	g := mat.NewDense(tall, short, nil)
	for i := 0; i < tall; i++ {
		row := g.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
	}
	var qr mat.QR
	qr.Factorize(g)
	var q, rr mat.Dense
	qr.QTo(&q)
	qr.RTo(&rr)

	// first short columns of Q, sign-corrected by diag(R) so the result is unique
	basis := mat.NewDense(tall, short, nil)
	for j := 0; j < short; j++ {
		sign := 1.0
		if rr.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < tall; i++ {
			basis.Set(i, j, sign*q.At(i, j))
		}
	}
	if r < c {
		m.Copy(basis.T())
		return
	}
	m.Copy(basis)
}
