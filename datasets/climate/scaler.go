package climate

import "fmt"

import "gonum.org/v1/gonum/stat"

// minStd keeps constant features from dividing by zero.
const minStd = 1e-12

// Standard holds per-feature mean and standard deviation.
type Standard struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Apply standardises x in place. An unfitted Standard leaves x unchanged.
func (s Standard) Apply(x []float64) {
	if len(s.Mean) == 0 {
		return
	}
	for i := range x {
		x[i] = (x[i] - s.Mean[i]) / s.Std[i]
	}
}

func (s Standard) validate(name string, width int) error {
	if len(s.Mean) == 0 && len(s.Std) == 0 {
		return nil
	}
	if len(s.Mean) != width || len(s.Std) != width {
		return &ShapeMismatchError{Name: name + " scaler", Want: []int{width}, Got: []int{len(s.Mean), len(s.Std)}}
	}
	for i, v := range s.Std {
		if !(v > 0) {
			return fmt.Errorf("%s scaler: std[%d] = %v must be positive", name, i, v)
		}
	}
	return nil
}

func fitStandard(width int, column func(f int) []float64) Standard {
	s := Standard{Mean: make([]float64, width), Std: make([]float64, width)}
	for f := 0; f < width; f++ {
		mean, std := stat.PopMeanStdDev(column(f), nil)
		if std < minStd {
			std = 1
		}
		s.Mean[f], s.Std[f] = mean, std
	}
	return s
}

// Scaler standardises every input modality per feature. It is fitted on the
// training partition only and travels with the model.
type Scaler struct {
	Satellite Standard `json:"satellite"`
	Sensor    Standard `json:"sensor"`
	Static    Standard `json:"static"`
}

// FitScaler computes population mean and standard deviation of every input
// feature over samples (sequence features pool all timesteps).
func FitScaler(samples []Sample) Scaler {
	return Scaler{
		Satellite: fitStandard(SatelliteFeatures, func(f int) []float64 {
			col := make([]float64, 0, len(samples)*SatelliteSteps)
			for i := range samples {
				for t := range samples[i].Satellite {
					col = append(col, samples[i].Satellite[t][f])
				}
			}
			return col
		}),
		Sensor: fitStandard(SensorFeatures, func(f int) []float64 {
			col := make([]float64, 0, len(samples)*SensorSteps)
			for i := range samples {
				for t := range samples[i].Sensor {
					col = append(col, samples[i].Sensor[t][f])
				}
			}
			return col
		}),
		Static: fitStandard(StaticFeatures, func(f int) []float64 {
			col := make([]float64, 0, len(samples))
			for i := range samples {
				col = append(col, samples[i].Static[f])
			}
			return col
		}),
	}
}

// Validate checks every fitted modality has one statistic per feature.
func (s Scaler) Validate() error {
	if err := s.Satellite.validate("satellite", SatelliteFeatures); err != nil {
		return err
	}
	if err := s.Sensor.validate("sensor", SensorFeatures); err != nil {
		return err
	}
	return s.Static.validate("static", StaticFeatures)
}

// Apply returns a copy of sample with standardised inputs. Targets are untouched.
func (s Scaler) Apply(sample Sample) Sample {
	for t := range sample.Satellite {
		s.Satellite.Apply(sample.Satellite[t][:])
	}
	for t := range sample.Sensor {
		s.Sensor.Apply(sample.Sensor[t][:])
	}
	s.Static.Apply(sample.Static[:])
	return sample
}
