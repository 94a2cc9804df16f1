// Package inference implements the read-only prediction stage over an exported artifact
package inference

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/net/forecast"
import "github.com/neurlang/climapredict/quantize"

// Model predicts with fixed weights. It is safe for concurrent use.
type Model struct {
	net    *forecast.Network
	scaler climate.Scaler
}

// Load reads the artifact at path.
func Load(path string) (*Model, error) {
	a, err := quantize.Read(path)
	if err != nil {
		return nil, err
	}
	return New(a)
}

// New builds a model from a decoded artifact.
func New(a *quantize.Model) (*Model, error) {
	net, err := a.Network()
	if err != nil {
		return nil, err
	}
	return &Model{net: net, scaler: a.Scaler}, nil
}

// FromNetwork wraps a network that is no longer trained.
func FromNetwork(net *forecast.Network, scaler climate.Scaler) *Model {
	return &Model{net: net, scaler: scaler}
}

// Scaler returns the input standardisation applied before every prediction.
func (m *Model) Scaler() climate.Scaler {
	return m.scaler
}

// Predict standardises the inputs of samples and returns one forecast grid and
// one risk vector per sample, in sample order. Targets are ignored.
func (m *Model) Predict(samples []climate.Sample) ([][climate.Horizon][climate.Variables]float64, [][climate.Horizon]float64, error) {
	if len(samples) == 0 {
		return nil, nil, nil
	}
	split, err := climate.Stack(samples, m.scaler)
	if err != nil {
		return nil, nil, err
	}
	return m.net.Predict(split.Inputs)
}

// PredictOne predicts a single sample.
func (m *Model) PredictOne(s climate.Sample) (grid [climate.Horizon][climate.Variables]float64, risk [climate.Horizon]float64, err error) {
	grids, risks, err := m.Predict([]climate.Sample{s})
	if err != nil {
		return grid, risk, err
	}
	return grids[0], risks[0], nil
}
