package climate

import "math"
import "math/rand"

// Synthetic generates n random samples with plausible target ranges. It exists
// for smoke runs and tests and is only used when explicitly requested.
//
// Inputs are standard normal. Targets per day: temp_min ~ N(20, 5),
// temp_max ~ N(28, 5), precip_prob = sigmoid(N(0,1)), wind = |N(0,1)|·10+5,
// humidity = |N(0,1)|·20+60, risk = sigmoid(N(0,1)).
func Synthetic(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, n)
	for i := range samples {
		s := &samples[i]
		for t := range s.Satellite {
			for f := range s.Satellite[t] {
				s.Satellite[t][f] = rng.NormFloat64()
			}
		}
		for t := range s.Sensor {
			for f := range s.Sensor[t] {
				s.Sensor[t][f] = rng.NormFloat64()
			}
		}
		for f := range s.Static {
			s.Static[f] = rng.NormFloat64()
		}
		for d := range s.Forecast {
			s.Forecast[d][0] = rng.NormFloat64()*5 + 20
			s.Forecast[d][1] = rng.NormFloat64()*5 + 28
			s.Forecast[d][2] = sigmoid(rng.NormFloat64())
			s.Forecast[d][3] = math.Abs(rng.NormFloat64())*10 + 5
			s.Forecast[d][4] = math.Abs(rng.NormFloat64())*20 + 60
		}
		for d := range s.Risk {
			s.Risk[d] = sigmoid(rng.NormFloat64())
		}
	}
	return samples
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
