package climate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Columns returns the required CSV column names in canonical order:
// satellite, sensor, static, forecast, risk.
func Columns() []string {
	cols := make([]string, 0, SatelliteSteps*SatelliteFeatures+SensorSteps*SensorFeatures+StaticFeatures+ForecastWidth+Horizon)
	for t := 0; t < SatelliteSteps; t++ {
		for f := 0; f < SatelliteFeatures; f++ {
			cols = append(cols, fmt.Sprintf("sat_%d_%d", t, f))
		}
	}
	for t := 0; t < SensorSteps; t++ {
		for f := 0; f < SensorFeatures; f++ {
			cols = append(cols, fmt.Sprintf("sensor_%d_%d", t, f))
		}
	}
	for i := 0; i < StaticFeatures; i++ {
		cols = append(cols, fmt.Sprintf("static_%d", i))
	}
	for d := 0; d < Horizon; d++ {
		for v := 0; v < Variables; v++ {
			cols = append(cols, fmt.Sprintf("forecast_%d_%d", d, v))
		}
	}
	for d := 0; d < Horizon; d++ {
		cols = append(cols, fmt.Sprintf("risk_%d", d))
	}
	return cols
}

// slots returns pointers into s in the order of Columns.
func (s *Sample) slots() []*float64 {
	o := make([]*float64, 0, len(Columns()))
	for t := range s.Satellite {
		for f := range s.Satellite[t] {
			o = append(o, &s.Satellite[t][f])
		}
	}
	for t := range s.Sensor {
		for f := range s.Sensor[t] {
			o = append(o, &s.Sensor[t][f])
		}
	}
	for i := range s.Static {
		o = append(o, &s.Static[i])
	}
	for d := range s.Forecast {
		for v := range s.Forecast[d] {
			o = append(o, &s.Forecast[d][v])
		}
	}
	for d := range s.Risk {
		o = append(o, &s.Risk[d])
	}
	return o
}

// LoadCSV reads samples from a CSV file.
func LoadCSV(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads samples from comma-separated input with a header row.
// Columns are matched by name, so their order is free and extra columns are ignored.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &DataFormatError{Line: 1, Err: ErrEmptyDataset}
	}
	if err != nil {
		return nil, csvError(err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	names := Columns()
	positions := make([]int, len(names))
	for i, name := range names {
		pos, ok := index[name]
		if !ok {
			return nil, &DataFormatError{Line: 1, Column: name, Err: ErrMissingColumn}
		}
		positions[i] = pos
	}

	var samples []Sample
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		var s Sample
		for i, slot := range s.slots() {
			v, err := strconv.ParseFloat(record[positions[i]], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &DataFormatError{Line: line, Column: names[i], Err: ErrNotANumber}
			}
			*slot = v
		}
		for d, p := range s.Risk {
			if p < 0 || p > 1 {
				return nil, &DataFormatError{Line: line, Column: fmt.Sprintf("risk_%d", d), Err: ErrOutOfRange}
			}
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, &DataFormatError{Err: ErrEmptyDataset}
	}
	return samples, nil
}

// WriteCSV writes samples with the canonical header, the inverse of ReadCSV.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return err
	}
	record := make([]string, len(Columns()))
	for i := range samples {
		for j, slot := range samples[i].slots() {
			record[j] = strconv.FormatFloat(*slot, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes samples to a CSV file.
func SaveCSV(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	if err := WriteCSV(f, samples); err != nil {
		f.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	return f.Close()
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &DataFormatError{Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("read dataset: %w", err)
}
