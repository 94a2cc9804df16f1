package inference

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/climapredict/datasets/climate"
	"github.com/neurlang/climapredict/net/forecast"
	"github.com/neurlang/climapredict/parallel"
	"github.com/neurlang/climapredict/quantize"
)

func exported(t *testing.T) (*forecast.Network, climate.Scaler, string) {
	t.Helper()
	samples := climate.Synthetic(30, 5)
	scaler := climate.FitScaler(samples)
	net := forecast.MustNew(forecast.Default(), 11)
	path := filepath.Join(t.TempDir(), "model.cpq")
	_, err := quantize.Export(net, scaler, path, quantize.DefaultBudget)
	require.NoError(t, err)
	return net, scaler, path
}

func TestLoadAndPredict(t *testing.T) {
	net, scaler, path := exported(t)
	m, err := Load(path)
	require.NoError(t, err)

	samples := climate.Synthetic(6, 9)
	grids, risks, err := m.Predict(samples)
	require.NoError(t, err)
	require.Len(t, grids, 6)
	require.Len(t, risks, 6)

	// the quantized model stays close to the full-precision one
	full := FromNetwork(net, scaler)
	wantGrids, wantRisks, err := full.Predict(samples)
	require.NoError(t, err)
	for i := range grids {
		for d := 0; d < climate.Horizon; d++ {
			assert.True(t, risks[i][d] >= 0 && risks[i][d] <= 1)
			assert.InDelta(t, wantRisks[i][d], risks[i][d], 0.05)
			for v := 0; v < climate.Variables; v++ {
				assert.InDelta(t, wantGrids[i][d][v], grids[i][d][v], 0.1)
			}
		}
	}
}

func TestPredictOneMatchesBatch(t *testing.T) {
	_, _, path := exported(t)
	m, err := Load(path)
	require.NoError(t, err)

	samples := climate.Synthetic(4, 2)
	grids, risks, err := m.Predict(samples)
	require.NoError(t, err)
	for i, s := range samples {
		g, r, err := m.PredictOne(s)
		require.NoError(t, err)
		for d := 0; d < climate.Horizon; d++ {
			assert.InDelta(t, risks[i][d], r[d], 1e-12)
			for v := 0; v < climate.Variables; v++ {
				assert.InDelta(t, grids[i][d][v], g[d][v], 1e-12)
			}
		}
	}
}

func TestPredictConcurrent(t *testing.T) {
	_, _, path := exported(t)
	m, err := Load(path)
	require.NoError(t, err)

	samples := climate.Synthetic(16, 4)
	want, _, err := m.Predict(samples)
	require.NoError(t, err)

	got := parallel.Map(len(samples), 8, func(i int) [climate.Horizon][climate.Variables]float64 {
		g, _, err := m.PredictOne(samples[i])
		if err != nil {
			panic(err)
		}
		return g
	})
	for i := range got {
		for d := 0; d < climate.Horizon; d++ {
			for v := 0; v < climate.Variables; v++ {
				assert.InDelta(t, want[i][d][v], got[i][d][v], 1e-12)
			}
		}
	}
}

func TestPredictEmpty(t *testing.T) {
	_, _, path := exported(t)
	m, err := Load(path)
	require.NoError(t, err)
	grids, risks, err := m.Predict(nil)
	assert.NoError(t, err)
	assert.Empty(t, grids)
	assert.Empty(t, risks)
	assert.Equal(t, 6, len(m.Scaler().Static.Mean))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cpq"))
	assert.Error(t, err)
}
