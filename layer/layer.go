// Package layer defines the trainable parameter type, activations and weight
// initialisers shared by the concrete layers under layer/.
package layer

import "gonum.org/v1/gonum/mat"

// Layer is a block of the network holding trainable parameters.
type Layer interface {

	// Params lists the trainable tensors of the layer.
	Params() []*Param
}

// Param is a named trainable tensor together with its accumulated gradient.
type Param struct {
	Name string
	W    *mat.Dense
	Grad *mat.Dense

	// Kernel reports whether the tensor is a weight matrix (as opposed to a bias row).
	// Only kernels are reduced in precision on export.
	Kernel bool
}

// NewParam allocates a zeroed r×c parameter with a zeroed gradient.
func NewParam(name string, r, c int, kernel bool) *Param {
	return &Param{
		Name:   name,
		W:      mat.NewDense(r, c, nil),
		Grad:   mat.NewDense(r, c, nil),
		Kernel: kernel,
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// Accumulate adds g into the gradient.
func (p *Param) Accumulate(g mat.Matrix) {
	p.Grad.Add(p.Grad, g)
}

// Size returns the number of scalar weights held by the parameter.
func (p *Param) Size() int {
	r, c := p.W.Dims()
	return r * c
}

// Tensor is a detached, serialisable copy of a parameter value.
type Tensor struct {
	Name   string    `json:"name"`
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Kernel bool      `json:"kernel"`
	Data   []float64 `json:"data"`
}

// TensorOf copies the current value of p.
func TensorOf(p *Param) Tensor {
	r, c := p.W.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, p.W.RawRowView(i)...)
	}
	return Tensor{Name: p.Name, Rows: r, Cols: c, Kernel: p.Kernel, Data: data}
}

// Dense returns the tensor as a freshly allocated matrix.
func (t Tensor) Dense() *mat.Dense {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return mat.NewDense(t.Rows, t.Cols, data)
}

// RowSum adds the column sums of m into a 1×c matrix.
func RowSum(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(1, c, nil)
	row := out.RawRowView(0)
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			row[j] += v
		}
	}
	return out
}

// AddRow adds the 1×c row b to every row of m in place.
func AddRow(m, b *mat.Dense) {
	r, _ := m.Dims()
	bias := b.RawRowView(0)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
}
