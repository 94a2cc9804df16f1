package quantize

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/climapredict/datasets/climate"
	"github.com/neurlang/climapredict/layer"
	"github.com/neurlang/climapredict/net/forecast"
)

func fitted() climate.Scaler {
	return climate.FitScaler(climate.Synthetic(10, 1))
}

func TestQuantizeKernel(t *testing.T) {
	tensor := layer.Tensor{Name: "k", Rows: 2, Cols: 2, Kernel: true, Data: []float64{-1.27, 0.5, 0.01, 0.635}}
	q := Quantize(tensor)
	require.True(t, q.Int8)
	assert.InDelta(t, 0.01, q.Scale, 1e-7)
	assert.Equal(t, []int8{-127, 50, 1, 64}, q.Q)

	back := q.Tensor()
	for i, v := range tensor.Data {
		assert.InDelta(t, v, back.Data[i], q.MaxError()+1e-9)
	}
}

func TestQuantizeZeroKernel(t *testing.T) {
	q := Quantize(layer.Tensor{Name: "k", Rows: 1, Cols: 3, Kernel: true, Data: []float64{0, 0, 0}})
	assert.Equal(t, float32(1), q.Scale)
	assert.Equal(t, []int8{0, 0, 0}, q.Q)
}

func TestQuantizeBiasStaysFloat32(t *testing.T) {
	q := Quantize(layer.Tensor{Name: "b", Rows: 1, Cols: 2, Data: []float64{0.1, -3}})
	assert.False(t, q.Int8)
	assert.Equal(t, []float32{0.1, -3}, q.F)
	assert.Equal(t, 0.0, q.MaxError())
}

func TestEncodeDeterministic(t *testing.T) {
	a := forecast.MustNew(forecast.Default(), 42)
	b := forecast.MustNew(forecast.Default(), 42)
	scaler := fitted()

	var x, y bytes.Buffer
	require.NoError(t, Encode(&x, a.Arch(), scaler, a.Tensors()))
	require.NoError(t, Encode(&y, b.Arch(), scaler, b.Tensors()))
	assert.Equal(t, x.Bytes(), y.Bytes())

	// tensor order does not matter
	ts := a.Tensors()
	ts[0], ts[len(ts)-1] = ts[len(ts)-1], ts[0]
	var z bytes.Buffer
	require.NoError(t, Encode(&z, a.Arch(), scaler, ts))
	assert.Equal(t, x.Bytes(), z.Bytes())

	c := forecast.MustNew(forecast.Default(), 43)
	var w bytes.Buffer
	require.NoError(t, Encode(&w, c.Arch(), scaler, c.Tensors()))
	assert.NotEqual(t, x.Bytes(), w.Bytes())
}

func TestRoundTrip(t *testing.T) {
	net := forecast.MustNew(forecast.Default(), 7)
	scaler := fitted()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, net.Arch(), scaler, net.Tensors()))

	m, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, net.Arch(), m.Architecture)
	require.Len(t, m.Scaler.Sensor.Mean, climate.SensorFeatures)
	for i, v := range scaler.Sensor.Mean {
		assert.InDelta(t, v, m.Scaler.Sensor.Mean[i], 1e-6*math.Max(1, math.Abs(v)))
	}

	want := net.Tensors()
	require.Len(t, m.Tensors, len(want))
	for i, tensor := range want {
		got := m.Tensors[i]
		assert.Equal(t, tensor.Name, got.Name)
		tolerance := Quantize(tensor).MaxError() + 1e-6
		for j := range tensor.Data {
			assert.InDelta(t, tensor.Data[j], got.Data[j], tolerance, "%s[%d]", tensor.Name, j)
		}
	}

	rebuilt, err := m.Network()
	require.NoError(t, err)
	assert.Equal(t, m.Tensors, rebuilt.Tensors())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not zstd")))
	assert.Error(t, err)

	var buf bytes.Buffer
	net := forecast.MustNew(forecast.Default(), 1)
	require.NoError(t, Encode(&buf, net.Arch(), climate.Scaler{}, net.Tensors()))
	truncated := buf.Bytes()[:buf.Len()/2]
	_, err = Decode(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestCheckSize(t *testing.T) {
	w := CheckSize(60<<20, DefaultBudget)
	require.NotNil(t, w)
	assert.Equal(t, int64(60<<20), w.Size)
	assert.Contains(t, w.Error(), "60.00 MB")
	assert.Contains(t, w.Error(), "50.00 MB")

	assert.Nil(t, CheckSize(50<<20, DefaultBudget))
	assert.Nil(t, CheckSize(1, 0))
}

func TestExport(t *testing.T) {
	net := forecast.MustNew(forecast.Default(), 3)
	path := filepath.Join(t.TempDir(), "models", "climapredict_v1.cpq")

	a, err := Export(net, fitted(), path, DefaultBudget)
	require.NoError(t, err)
	assert.Nil(t, a.Warning)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), a.Size)

	m, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, net.Arch(), m.Architecture)

	// the compact artifact is smaller than the float64 weights
	assert.Less(t, a.Size, int64(net.Size()*8))
}

func TestExportOverBudgetWarnsAndWrites(t *testing.T) {
	net := forecast.MustNew(forecast.Default(), 3)
	path := filepath.Join(t.TempDir(), "model.cpq")

	a, err := Export(net, fitted(), path, 1024)
	require.NoError(t, err)
	require.NotNil(t, a.Warning)
	assert.Equal(t, int64(1024), a.Warning.Budget)

	var w *ExportSizeWarning
	assert.True(t, errors.As(error(a.Warning), &w))

	_, err = Read(path)
	assert.NoError(t, err)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.cpq"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
