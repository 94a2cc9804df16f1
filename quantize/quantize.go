// Package quantize exports a trained network as a compact artifact: kernels
// become int8 with one float32 scale per tensor, biases and the input scaler
// stay float32, and the little-endian payload is zstd compressed.
package quantize

import "fmt"
import "math"

import "gonum.org/v1/gonum/floats"

import "github.com/neurlang/climapredict/layer"

// Quantized is a tensor in artifact precision.
type Quantized struct {
	Name       string
	Rows, Cols int

	// Int8 kernels carry Scale and Q; float32 tensors carry F.
	Int8  bool
	Scale float32
	Q     []int8
	F     []float32
}

// Quantize reduces t: kernels to symmetric int8 with scale max|w|/127 (1 for an
// all-zero tensor), everything else to float32.
func Quantize(t layer.Tensor) Quantized {
	q := Quantized{Name: t.Name, Rows: t.Rows, Cols: t.Cols, Int8: t.Kernel}
	if !t.Kernel {
		q.F = make([]float32, len(t.Data))
		for i, v := range t.Data {
			q.F[i] = float32(v)
		}
		return q
	}
	var maxAbs float64
	if len(t.Data) > 0 {
		maxAbs = math.Max(floats.Max(t.Data), -floats.Min(t.Data))
	}
	q.Scale = 1
	if maxAbs > 0 {
		q.Scale = float32(maxAbs / 127)
	}
	scale := float64(q.Scale)
	q.Q = make([]int8, len(t.Data))
	for i, v := range t.Data {
		r := math.Round(v / scale)
		q.Q[i] = int8(math.Max(-127, math.Min(127, r)))
	}
	return q
}

// Tensor expands q back to full precision.
func (q Quantized) Tensor() layer.Tensor {
	t := layer.Tensor{Name: q.Name, Rows: q.Rows, Cols: q.Cols, Kernel: q.Int8, Data: make([]float64, q.Rows*q.Cols)}
	if q.Int8 {
		scale := float64(q.Scale)
		for i, v := range q.Q {
			t.Data[i] = float64(v) * scale
		}
		return t
	}
	for i, v := range q.F {
		t.Data[i] = float64(v)
	}
	return t
}

// MaxError bounds the absolute dequantization error of the tensor.
func (q Quantized) MaxError() float64 {
	if q.Int8 {
		return float64(q.Scale) / 2
	}
	return 0
}

func (q Quantized) validate() error {
	n := q.Rows * q.Cols
	if q.Rows <= 0 || q.Cols <= 0 || (q.Int8 && len(q.Q) != n) || (!q.Int8 && len(q.F) != n) {
		return fmt.Errorf("quantize: tensor %s has inconsistent shape %dx%d", q.Name, q.Rows, q.Cols)
	}
	return nil
}
