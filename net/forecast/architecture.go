package forecast

import "fmt"

import "github.com/neurlang/climapredict/datasets/climate"

// Architecture fixes the widths of every block of the network. It is stored
// next to the weights so a reader can rebuild the same graph.
type Architecture struct {
	SatelliteUnits [2]int  `json:"satellite_units"`
	SensorUnits    [2]int  `json:"sensor_units"`
	StaticUnits    int     `json:"static_units"`
	FusionUnits    int     `json:"fusion_units"`
	DecoderUnits   int     `json:"decoder_units"`
	RiskUnits      int     `json:"risk_units"`
	Dropout        float64 `json:"dropout"`
	Horizon        int     `json:"horizon"`
	Variables      int     `json:"variables"`
}

// Default returns the production architecture.
func Default() Architecture {
	return Architecture{
		SatelliteUnits: [2]int{32, 16},
		SensorUnits:    [2]int{16, 8},
		StaticUnits:    8,
		FusionUnits:    32,
		DecoderUnits:   32,
		RiskUnits:      16,
		Dropout:        0.2,
		Horizon:        climate.Horizon,
		Variables:      climate.Variables,
	}
}

// Concat reports the width of the concatenated encoder outputs.
func (a Architecture) Concat() int {
	return a.SatelliteUnits[1] + a.SensorUnits[1] + a.StaticUnits
}

// Validate checks that every width is positive and the output grid matches the data contract.
func (a Architecture) Validate() error {
	widths := []struct {
		name string
		v    int
	}{
		{"satellite_units[0]", a.SatelliteUnits[0]},
		{"satellite_units[1]", a.SatelliteUnits[1]},
		{"sensor_units[0]", a.SensorUnits[0]},
		{"sensor_units[1]", a.SensorUnits[1]},
		{"static_units", a.StaticUnits},
		{"fusion_units", a.FusionUnits},
		{"decoder_units", a.DecoderUnits},
		{"risk_units", a.RiskUnits},
	}
	for _, w := range widths {
		if w.v <= 0 {
			return fmt.Errorf("architecture: %s must be positive, got %d", w.name, w.v)
		}
	}
	if a.Dropout < 0 || a.Dropout >= 1 {
		return fmt.Errorf("architecture: dropout %v outside [0, 1)", a.Dropout)
	}
	if a.Horizon != climate.Horizon || a.Variables != climate.Variables {
		return &climate.ShapeMismatchError{
			Name: "forecast grid",
			Want: []int{climate.Horizon, climate.Variables},
			Got:  []int{a.Horizon, a.Variables},
		}
	}
	return nil
}
