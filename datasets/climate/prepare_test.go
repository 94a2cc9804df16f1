package climate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareSamplesSizes(t *testing.T) {
	for _, n := range []int{2, 3, 10, 101, 1000} {
		p, err := PrepareSamples(Synthetic(n, 42), 42)
		require.NoError(t, err)

		val := int(math.Ceil(0.2 * float64(n)))
		assert.Equal(t, val, p.Validation.Len(), "n=%d", n)
		assert.Equal(t, n-val, p.Train.Len(), "n=%d", n)
		assert.NoError(t, p.Train.Validate())
		assert.NoError(t, p.Validation.Validate())
	}
}

func TestPrepareSamplesDeterministic(t *testing.T) {
	samples := Synthetic(50, 7)
	a, err := PrepareSamples(samples, 42)
	require.NoError(t, err)
	b, err := PrepareSamples(samples, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Validation.Targets.Forecast.RawMatrix().Data, b.Validation.Targets.Forecast.RawMatrix().Data)

	c, err := PrepareSamples(samples, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a.Validation.Targets.Forecast.RawMatrix().Data, c.Validation.Targets.Forecast.RawMatrix().Data)
}

func TestPrepareSamplesTooFew(t *testing.T) {
	for _, n := range []int{0, 1} {
		_, err := PrepareSamples(Synthetic(n, 0), 42)
		assert.ErrorIs(t, err, ErrTooFewSamples)
	}
}

func TestSourceLoad(t *testing.T) {
	_, err := Source{}.Load()
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = Source{Path: "x.csv", Synthetic: 10}.Load()
	var dfe *DataFormatError
	assert.True(t, errors.As(err, &dfe))

	_, err = Source{Path: "does-not-exist.csv"}.Load()
	assert.Error(t, err)

	samples, err := Source{Synthetic: 12, SyntheticSeed: 1}.Load()
	require.NoError(t, err)
	assert.Len(t, samples, 12)
}

func TestScalerStandardises(t *testing.T) {
	samples := Synthetic(200, 5)
	for i := range samples {
		samples[i].Static[0] = 3 // constant feature
		for t := range samples[i].Sensor {
			samples[i].Sensor[t][1] = samples[i].Sensor[t][1]*4 + 10
		}
	}
	s := FitScaler(samples)
	require.NoError(t, s.Validate())
	assert.Equal(t, 1.0, s.Static.Std[0])
	assert.InDelta(t, 3.0, s.Static.Mean[0], 1e-12)

	split, err := Stack(samples, s)
	require.NoError(t, err)

	var sum, sq float64
	var count int
	for _, m := range split.Inputs.Sensor {
		r, _ := m.Dims()
		for i := 0; i < r; i++ {
			v := m.At(i, 1)
			sum += v
			sq += v * v
			count++
		}
	}
	mean := sum / float64(count)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, sq/float64(count)-mean*mean, 1e-9)

	r, _ := split.Inputs.Static.Dims()
	for i := 0; i < r; i++ {
		assert.Equal(t, 0.0, split.Inputs.Static.At(i, 0))
	}
}

func TestScalerUnfittedIsIdentity(t *testing.T) {
	samples := Synthetic(1, 9)
	assert.Equal(t, samples[0], Scaler{}.Apply(samples[0]))
	assert.NoError(t, Scaler{}.Validate())
}

func TestScalerValidateRejectsBadShape(t *testing.T) {
	s := FitScaler(Synthetic(4, 1))
	s.Sensor.Mean = s.Sensor.Mean[:2]
	var sme *ShapeMismatchError
	assert.True(t, errors.As(s.Validate(), &sme))
}

func TestSplitBatch(t *testing.T) {
	samples := Synthetic(6, 2)
	split, err := Stack(samples, Scaler{})
	require.NoError(t, err)

	b := split.Batch([]int{4, 1})
	require.NoError(t, b.Validate())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, samples[4].FlatForecast(), b.Targets.Forecast.RawRowView(0))
	assert.Equal(t, samples[1].Risk[:], b.Targets.Risk.RawRowView(1))
	assert.Equal(t, samples[1].Satellite[7][:], b.Inputs.Satellite[7].RawRowView(1))
}

func TestInputsValidate(t *testing.T) {
	split, err := Stack(Synthetic(3, 2), Scaler{})
	require.NoError(t, err)

	in := split.Inputs
	in.Sensor = in.Sensor[:7]
	_, err = in.Validate()
	var sme *ShapeMismatchError
	require.True(t, errors.As(err, &sme))
	assert.Equal(t, "sensor", sme.Name)

	_, err = Inputs{}.Validate()
	assert.True(t, errors.As(err, &sme))
}

func TestSyntheticRanges(t *testing.T) {
	samples := Synthetic(100, 42)
	for _, s := range samples {
		for d := 0; d < Horizon; d++ {
			assert.True(t, s.Forecast[d][2] > 0 && s.Forecast[d][2] < 1)
			assert.GreaterOrEqual(t, s.Forecast[d][3], 5.0)
			assert.GreaterOrEqual(t, s.Forecast[d][4], 60.0)
			assert.True(t, s.Risk[d] > 0 && s.Risk[d] < 1)
		}
	}
	assert.Equal(t, samples, Synthetic(100, 42))
}

func TestForecastMean(t *testing.T) {
	var a, b Sample
	for d := 0; d < Horizon; d++ {
		a.Forecast[d] = [Variables]float64{1, 2, 3, 4, 5}
		b.Forecast[d] = [Variables]float64{3, 4, 5, 6, 7}
	}
	assert.Equal(t, [Variables]float64{2, 3, 4, 5, 6}, ForecastMean([]Sample{a, b}))
	assert.Equal(t, [Variables]float64{}, ForecastMean(nil))
}

func TestPreparedWithScaler(t *testing.T) {
	p, err := PrepareSamples(Synthetic(20, 3), 42)
	require.NoError(t, err)
	before := p.Train.Inputs.Static.At(0, 0)

	require.NoError(t, p.WithScaler(Scaler{}))
	assert.Equal(t, Scaler{}, p.Scaler)
	assert.NotEqual(t, before, p.Train.Inputs.Static.At(0, 0))
	assert.Equal(t, 16, p.Train.Len())
	assert.Equal(t, 4, p.Validation.Len())
}
