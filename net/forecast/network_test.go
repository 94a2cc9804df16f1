package forecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/climapredict/datasets/climate"
	"github.com/neurlang/climapredict/layer"
)

func small() Architecture {
	a := Default()
	a.SatelliteUnits = [2]int{4, 3}
	a.SensorUnits = [2]int{3, 2}
	a.StaticUnits = 3
	a.FusionUnits = 5
	a.DecoderUnits = 4
	a.RiskUnits = 3
	return a
}

func batch(t *testing.T, n int, seed int64) climate.Split {
	samples := climate.Synthetic(n, seed)
	s, err := climate.Stack(samples, climate.FitScaler(samples))
	require.NoError(t, err)
	return s
}

func TestDefaultArchitecture(t *testing.T) {
	a := Default()
	require.NoError(t, a.Validate())
	assert.Equal(t, 32, a.Concat())

	bad := a
	bad.Horizon = 6
	var sme *climate.ShapeMismatchError
	assert.True(t, errors.As(bad.Validate(), &sme))

	bad = a
	bad.FusionUnits = 0
	assert.Error(t, bad.Validate())

	bad = a
	bad.Dropout = 1
	assert.Error(t, bad.Validate())
}

func TestOutputs(t *testing.T) {
	assert.Equal(t, []Output{Forecast, Risk}, Outputs())
	for _, o := range Outputs() {
		p, err := ParseOutput(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, p)
	}
	_, err := ParseOutput("forecast_output")
	assert.Error(t, err)
	assert.Equal(t, 35, Forecast.Width())
	assert.Equal(t, 7, Risk.Width())
}

func TestPredictShapesAndRiskBounds(t *testing.T) {
	n := MustNew(Default(), 42)
	s := batch(t, 9, 1)

	grids, risks, err := n.Predict(s.Inputs)
	require.NoError(t, err)
	require.Len(t, grids, 9)
	require.Len(t, risks, 9)
	for i := range risks {
		for d := 0; d < climate.Horizon; d++ {
			assert.True(t, risks[i][d] >= 0 && risks[i][d] <= 1, "risk %v", risks[i][d])
			for v := 0; v < climate.Variables; v++ {
				assert.False(t, math.IsNaN(grids[i][d][v]))
			}
		}
	}
}

func TestPredictRejectsWrongWidths(t *testing.T) {
	n := MustNew(Default(), 42)
	s := batch(t, 2, 1)
	in := s.Inputs
	in.Static = mat.NewDense(2, 5, nil)

	_, _, err := n.Predict(in)
	var sme *climate.ShapeMismatchError
	require.True(t, errors.As(err, &sme))
	assert.Equal(t, "static", sme.Name)
}

func TestInferMatchesEvaluationForward(t *testing.T) {
	n := MustNew(small(), 3)
	s := batch(t, 4, 2)

	a, err := n.Forward(s.Inputs, false)
	require.NoError(t, err)
	b, err := n.Infer(s.Inputs)
	require.NoError(t, err)
	for _, o := range Outputs() {
		assert.True(t, mat.EqualApprox(a[o], b[o], 1e-12), o.String())
	}
}

func TestDropoutOnlyWhileTraining(t *testing.T) {
	n := MustNew(small(), 3)
	s := batch(t, 4, 2)

	a, err := n.Forward(s.Inputs, true)
	require.NoError(t, err)
	b, err := n.Infer(s.Inputs)
	require.NoError(t, err)
	assert.False(t, mat.EqualApprox(a[Risk], b[Risk], 1e-12))
}

func TestParamsSortedAndUnique(t *testing.T) {
	n := MustNew(Default(), 1)
	ps := n.Params()
	require.Len(t, ps, 25)
	seen := map[string]bool{}
	for i, p := range ps {
		assert.False(t, seen[p.Name], p.Name)
		seen[p.Name] = true
		if i > 0 {
			assert.Less(t, ps[i-1].Name, p.Name)
		}
	}
	assert.True(t, seen["decoder_lstm/recurrent_kernel"])
	assert.True(t, seen["forecast_dense/bias"])
	assert.Greater(t, n.Size(), 0)
}

func TestSameSeedSameWeights(t *testing.T) {
	a := MustNew(Default(), 9).Tensors()
	b := MustNew(Default(), 9).Tensors()
	c := MustNew(Default(), 10).Tensors()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSetParams(t *testing.T) {
	src := MustNew(small(), 1)
	dst := MustNew(small(), 2)
	require.NoError(t, dst.SetParams(src.Tensors()))
	assert.Equal(t, src.Tensors(), dst.Tensors())

	var sme *climate.ShapeMismatchError

	ts := src.Tensors()
	ts[0].Rows++
	assert.True(t, errors.As(dst.SetParams(ts), &sme))

	ts = src.Tensors()
	ts = append(ts, layer.Tensor{Name: "extra/bias", Rows: 1, Cols: 1, Data: []float64{0}})
	assert.True(t, errors.As(dst.SetParams(ts), &sme))

	ts = src.Tensors()
	assert.True(t, errors.As(dst.SetParams(ts[1:]), &sme))

	ts = src.Tensors()
	assert.True(t, errors.As(dst.SetParams(append(ts, ts[0])), &sme))

	// failed loads leave the weights alone
	assert.Equal(t, src.Tensors(), dst.Tensors())
}

func TestSeedForecastBias(t *testing.T) {
	n := MustNew(small(), 1)
	n.SeedForecastBias([climate.Variables]float64{20, 28, 0.5, 10, 70})
	for _, p := range n.Params() {
		if p.Name == "forecast_dense/bias" {
			assert.Equal(t, []float64{20, 28, 0.5, 10, 70}, p.W.RawRowView(0))
		}
	}
}

func TestBackwardRequiresEveryOutput(t *testing.T) {
	n := MustNew(small(), 1)
	s := batch(t, 3, 1)
	_, err := n.Forward(s.Inputs, false)
	require.NoError(t, err)

	assert.Error(t, n.Backward(Result{Forecast: mat.NewDense(3, 35, nil)}))
	assert.Error(t, n.Backward(Result{Forecast: mat.NewDense(3, 35, nil), Risk: mat.NewDense(2, 7, nil)}))
	assert.NoError(t, n.Backward(Result{Forecast: mat.NewDense(3, 35, nil), Risk: mat.NewDense(3, 7, nil)}))
}

// probe is a weighted sum of both heads; its gradient with respect to each head is the weight.
func probe(res Result, w Result) (s float64) {
	for _, o := range Outputs() {
		var m mat.Dense
		m.MulElem(res[o], w[o])
		s += mat.Sum(&m)
	}
	return
}

func TestNetworkGradients(t *testing.T) {
	n := MustNew(small(), 5)
	s := batch(t, 3, 4)
	rng := rand.New(rand.NewSource(11))
	w := Result{
		Forecast: mat.NewDense(3, climate.ForecastWidth, nil),
		Risk:     mat.NewDense(3, climate.Horizon, nil),
	}
	for _, o := range Outputs() {
		r, c := w[o].Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				w[o].Set(i, j, rng.NormFloat64())
			}
		}
	}

	n.ZeroGrad()
	_, err := n.Forward(s.Inputs, false)
	require.NoError(t, err)
	require.NoError(t, n.Backward(w))

	loss := func() float64 {
		res, err := n.Infer(s.Inputs)
		require.NoError(t, err)
		return probe(res, w)
	}
	const eps = 1e-6
	for _, p := range n.Params() {
		r, c := p.W.Dims()
		for k := 0; k < 4; k++ {
			i, j := rng.Intn(r), rng.Intn(c)
			old := p.W.At(i, j)
			p.W.Set(i, j, old+eps)
			plus := loss()
			p.W.Set(i, j, old-eps)
			minus := loss()
			p.W.Set(i, j, old)

			want := (plus - minus) / (2 * eps)
			assert.InDelta(t, want, p.Grad.At(i, j), 1e-4+1e-3*math.Abs(want), "%s[%d][%d]", p.Name, i, j)
		}
	}
}
