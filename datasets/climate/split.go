package climate

import "gonum.org/v1/gonum/mat"

// Inputs groups a batch per modality. Sequences hold one matrix per timestep
// with one row per sample.
type Inputs struct {
	Satellite []*mat.Dense
	Sensor    []*mat.Dense
	Static    *mat.Dense
}

// Targets groups the ground truth of a batch: the day-major flattened forecast
// grid (rows × Horizon·Variables) and the risk probabilities (rows × Horizon).
type Targets struct {
	Forecast *mat.Dense
	Risk     *mat.Dense
}

// Split is one partition of a dataset in model-ready form.
type Split struct {
	Inputs  Inputs
	Targets Targets
}

// Stack converts samples into a Split, standardising the inputs with scaler.
func Stack(samples []Sample, scaler Scaler) (Split, error) {
	n := len(samples)
	if n == 0 {
		return Split{}, &DataFormatError{Err: ErrEmptyDataset}
	}
	s := Split{
		Inputs: Inputs{
			Satellite: make([]*mat.Dense, SatelliteSteps),
			Sensor:    make([]*mat.Dense, SensorSteps),
			Static:    mat.NewDense(n, StaticFeatures, nil),
		},
		Targets: Targets{
			Forecast: mat.NewDense(n, ForecastWidth, nil),
			Risk:     mat.NewDense(n, Horizon, nil),
		},
	}
	for t := range s.Inputs.Satellite {
		s.Inputs.Satellite[t] = mat.NewDense(n, SatelliteFeatures, nil)
	}
	for t := range s.Inputs.Sensor {
		s.Inputs.Sensor[t] = mat.NewDense(n, SensorFeatures, nil)
	}
	for i := range samples {
		x := scaler.Apply(samples[i])
		for t := range x.Satellite {
			s.Inputs.Satellite[t].SetRow(i, x.Satellite[t][:])
		}
		for t := range x.Sensor {
			s.Inputs.Sensor[t].SetRow(i, x.Sensor[t][:])
		}
		s.Inputs.Static.SetRow(i, x.Static[:])
		s.Targets.Forecast.SetRow(i, x.FlatForecast())
		s.Targets.Risk.SetRow(i, x.Risk[:])
	}
	return s, nil
}

// Len reports the number of samples.
func (s Split) Len() int {
	if s.Inputs.Static == nil {
		return 0
	}
	r, _ := s.Inputs.Static.Dims()
	return r
}

// Validate checks inputs and targets against the shape contract and that
// every modality carries the same number of samples.
func (s Split) Validate() error {
	n, err := s.Inputs.Validate()
	if err != nil {
		return err
	}
	if err := checkDense("forecast target", s.Targets.Forecast, n, ForecastWidth); err != nil {
		return err
	}
	return checkDense("risk target", s.Targets.Risk, n, Horizon)
}

// Validate checks the inputs against the shape contract and returns the sample count.
func (in Inputs) Validate() (int, error) {
	if in.Static == nil {
		return 0, &ShapeMismatchError{Name: "static", Want: []int{-1, StaticFeatures}, Got: nil}
	}
	n, _ := in.Static.Dims()
	if err := checkDense("static", in.Static, n, StaticFeatures); err != nil {
		return 0, err
	}
	if err := checkSequence("satellite", in.Satellite, n, SatelliteSteps, SatelliteFeatures); err != nil {
		return 0, err
	}
	if err := checkSequence("sensor", in.Sensor, n, SensorSteps, SensorFeatures); err != nil {
		return 0, err
	}
	return n, nil
}

// Batch gathers the rows idx into a new Split.
func (s Split) Batch(idx []int) Split {
	o := Split{
		Inputs: Inputs{
			Satellite: make([]*mat.Dense, len(s.Inputs.Satellite)),
			Sensor:    make([]*mat.Dense, len(s.Inputs.Sensor)),
			Static:    gather(s.Inputs.Static, idx),
		},
		Targets: Targets{
			Forecast: gather(s.Targets.Forecast, idx),
			Risk:     gather(s.Targets.Risk, idx),
		},
	}
	for t, m := range s.Inputs.Satellite {
		o.Inputs.Satellite[t] = gather(m, idx)
	}
	for t, m := range s.Inputs.Sensor {
		o.Inputs.Sensor[t] = gather(m, idx)
	}
	return o
}

func gather(m *mat.Dense, idx []int) *mat.Dense {
	_, c := m.Dims()
	o := mat.NewDense(len(idx), c, nil)
	for i, row := range idx {
		o.SetRow(i, m.RawRowView(row))
	}
	return o
}

func checkDense(name string, m *mat.Dense, rows, cols int) error {
	if m == nil {
		return &ShapeMismatchError{Name: name, Want: []int{rows, cols}, Got: nil}
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return &ShapeMismatchError{Name: name, Want: []int{rows, cols}, Got: []int{r, c}}
	}
	return nil
}

func checkSequence(name string, seq []*mat.Dense, rows, steps, cols int) error {
	if len(seq) != steps {
		return &ShapeMismatchError{Name: name, Want: []int{steps, rows, cols}, Got: []int{len(seq)}}
	}
	for _, m := range seq {
		if m == nil {
			return &ShapeMismatchError{Name: name, Want: []int{steps, rows, cols}, Got: nil}
		}
		r, c := m.Dims()
		if r != rows || c != cols {
			return &ShapeMismatchError{Name: name, Want: []int{steps, rows, cols}, Got: []int{steps, r, c}}
		}
	}
	return nil
}
