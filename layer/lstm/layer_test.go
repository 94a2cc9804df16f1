package lstm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomSeq(steps, b, c int, rng *rand.Rand) []*mat.Dense {
	seq := make([]*mat.Dense, steps)
	for t := range seq {
		m := mat.NewDense(b, c, nil)
		for i := 0; i < b; i++ {
			for j := 0; j < c; j++ {
				m.Set(i, j, rng.NormFloat64())
			}
		}
		seq[t] = m
	}
	return seq
}

func probe(hs, ws []*mat.Dense) (s float64) {
	for t := range hs {
		var p mat.Dense
		p.MulElem(hs[t], ws[t])
		s += mat.Sum(&p)
	}
	return
}

func TestLSTMShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seq := randomSeq(8, 4, 16, rng)

	l1 := MustNew("sat_0", 16, 32, true, rng)
	hs := l1.Infer(seq)
	require.Len(t, hs, 8)
	r, c := hs[0].Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 32, c)

	l2 := MustNew("sat_1", 32, 16, false, rng)
	last := l2.Infer(hs)
	require.Len(t, last, 1)
	r, c = last[0].Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 16, c)
}

func TestLSTMForgetBias(t *testing.T) {
	l := MustNew("x", 2, 3, false, rand.New(rand.NewSource(1)))
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1, 0, 0, 0, 0, 0, 0}, l.bias.W.RawRowView(0))
}

func TestLSTMGradients(t *testing.T) {
	for _, sequences := range []bool{true, false} {
		name := "last"
		if sequences {
			name = "sequences"
		}
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			l := MustNew("enc", 3, 4, sequences, rng)
			seq := randomSeq(5, 2, 3, rng)
			n := 1
			if sequences {
				n = 5
			}
			ws := randomSeq(n, 2, 4, rng)

			l.Forward(seq)
			dxs := l.Backward(ws)
			require.Len(t, dxs, 5)

			const eps = 1e-6
			for _, p := range l.Params() {
				r, c := p.W.Dims()
				for i := 0; i < r; i++ {
					for j := 0; j < c; j++ {
						old := p.W.At(i, j)
						p.W.Set(i, j, old+eps)
						plus := probe(l.Infer(seq), ws)
						p.W.Set(i, j, old-eps)
						minus := probe(l.Infer(seq), ws)
						p.W.Set(i, j, old)
						assert.InDelta(t, (plus-minus)/(2*eps), p.Grad.At(i, j), 1e-5, "%s[%d][%d]", p.Name, i, j)
					}
				}
			}
			for ts := range seq {
				for i := 0; i < 2; i++ {
					for j := 0; j < 3; j++ {
						old := seq[ts].At(i, j)
						seq[ts].Set(i, j, old+eps)
						plus := probe(l.Infer(seq), ws)
						seq[ts].Set(i, j, old-eps)
						minus := probe(l.Infer(seq), ws)
						seq[ts].Set(i, j, old)
						assert.InDelta(t, (plus-minus)/(2*eps), dxs[ts].At(i, j), 1e-5)
					}
				}
			}
		})
	}
}
