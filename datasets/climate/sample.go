package climate

// Shape contract shared by the network, the trainer and the evaluator.
const (
	SatelliteSteps    = 8
	SatelliteFeatures = 16
	SensorSteps       = 8
	SensorFeatures    = 3
	StaticFeatures    = 6
	Horizon           = 7
	Variables         = 5
)

// ForecastWidth is the length of a flattened (day-major) forecast grid.
const ForecastWidth = Horizon * Variables

// VariableNames names the forecast variables in column order.
var VariableNames = [Variables]string{"temp_min", "temp_max", "precip_prob", "wind", "humidity"}

// Sample is one matched observation of all three modalities with its targets.
type Sample struct {
	Satellite [SatelliteSteps][SatelliteFeatures]float64
	Sensor    [SensorSteps][SensorFeatures]float64
	Static    [StaticFeatures]float64

	Forecast [Horizon][Variables]float64

	// Risk holds one probability per forecast day.
	Risk [Horizon]float64
}

// FlatForecast returns the forecast grid day-major: day 0 variables first.
func (s *Sample) FlatForecast() []float64 {
	return Flatten(s.Forecast)
}

// Flatten returns a forecast grid day-major.
func Flatten(grid [Horizon][Variables]float64) []float64 {
	o := make([]float64, 0, ForecastWidth)
	for d := range grid {
		o = append(o, grid[d][:]...)
	}
	return o
}

// ForecastMean returns the mean of every forecast variable over all days and samples.
func ForecastMean(samples []Sample) (mean [Variables]float64) {
	if len(samples) == 0 {
		return
	}
	for i := range samples {
		for d := 0; d < Horizon; d++ {
			for v := 0; v < Variables; v++ {
				mean[v] += samples[i].Forecast[d][v]
			}
		}
	}
	for v := range mean {
		mean[v] /= float64(len(samples) * Horizon)
	}
	return
}
