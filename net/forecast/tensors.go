package forecast

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/layer"

// Tensors copies every parameter, in name order.
func (n *Network) Tensors() []layer.Tensor {
	o := make([]layer.Tensor, len(n.params))
	for i, p := range n.params {
		o[i] = layer.TensorOf(p)
	}
	return o
}

// SetParams loads weights by name. Every parameter of the network must be
// present exactly once with its exact shape; nothing is modified otherwise.
func (n *Network) SetParams(ts []layer.Tensor) error {
	byName := make(map[string]layer.Tensor, len(ts))
	for _, t := range ts {
		if _, dup := byName[t.Name]; dup {
			return &climate.ShapeMismatchError{Name: t.Name + " (duplicate)", Want: nil, Got: []int{t.Rows, t.Cols}}
		}
		byName[t.Name] = t
	}
	for _, p := range n.params {
		r, c := p.W.Dims()
		t, ok := byName[p.Name]
		if !ok {
			return &climate.ShapeMismatchError{Name: p.Name, Want: []int{r, c}, Got: nil}
		}
		if t.Rows != r || t.Cols != c || len(t.Data) != r*c {
			return &climate.ShapeMismatchError{Name: p.Name, Want: []int{r, c}, Got: []int{t.Rows, t.Cols}}
		}
	}
	if len(byName) != len(n.params) {
		for _, t := range ts {
			if !n.has(t.Name) {
				return &climate.ShapeMismatchError{Name: t.Name + " (unknown)", Want: nil, Got: []int{t.Rows, t.Cols}}
			}
		}
	}
	for _, p := range n.params {
		p.W.Copy(byName[p.Name].Dense())
	}
	return nil
}

func (n *Network) has(name string) bool {
	for _, p := range n.params {
		if p.Name == name {
			return true
		}
	}
	return false
}
