package evaluate

import "encoding/csv"
import "errors"
import "fmt"
import "io"
import "math"
import "os"
import "strconv"

import "github.com/neurlang/climapredict/datasets/climate"

// Grid is one forecast: days by variables.
type Grid = [climate.Horizon][climate.Variables]float64

// LoadBaseline reads baseline predictions from a CSV file.
func LoadBaseline(path string, n int) ([]Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open baseline: %w", err)
	}
	defer f.Close()
	return ReadBaseline(f, n)
}

// ReadBaseline reads baseline predictions: a header row, then one row per test
// sample with exactly Horizon·Variables numeric columns, day-major. The row
// count must equal n.
func ReadBaseline(r io.Reader, n int) ([]Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = climate.ForecastWidth

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &climate.DataFormatError{Line: 1, Err: climate.ErrEmptyDataset}
		}
		return nil, baselineError(err)
	}
	var grids []Grid
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, baselineError(err)
		}
		var g Grid
		for j, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &climate.DataFormatError{Line: line, Column: "column " + strconv.Itoa(j), Err: climate.ErrNotANumber}
			}
			g[j/climate.Variables][j%climate.Variables] = v
		}
		grids = append(grids, g)
	}
	if len(grids) != n {
		return nil, &climate.DataFormatError{Err: fmt.Errorf("baseline has %d rows for %d test samples", len(grids), n)}
	}
	return grids, nil
}

func baselineError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &climate.DataFormatError{Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("read baseline: %w", err)
}
