package climate

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns(t *testing.T) {
	cols := Columns()
	assert.Len(t, cols, SatelliteSteps*SatelliteFeatures+SensorSteps*SensorFeatures+StaticFeatures+ForecastWidth+Horizon)
	assert.Equal(t, "sat_0_0", cols[0])
	assert.Equal(t, "risk_6", cols[len(cols)-1])

	seen := map[string]bool{}
	for _, c := range cols {
		assert.False(t, seen[c], c)
		seen[c] = true
	}
}

func TestCSVRoundTrip(t *testing.T) {
	samples := Synthetic(5, 1)
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, SaveCSV(path, samples))

	got, err := LoadCSV(path)
	require.NoError(t, err)
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSVColumnOrderFree(t *testing.T) {
	samples := Synthetic(2, 3)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samples))

	// Reverse every record, header included, and add an unrelated column.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i, line := range lines {
		fields := strings.Split(line, ",")
		for l, r := 0, len(fields)-1; l < r; l, r = l+1, r-1 {
			fields[l], fields[r] = fields[r], fields[l]
		}
		extra := "7"
		if i == 0 {
			extra = "station"
		}
		lines[i] = strings.Join(append(fields, extra), ",")
	}
	got, err := ReadCSV(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestReadCSVErrors(t *testing.T) {
	header := strings.Join(Columns(), ",")
	row := func(edit func([]string)) string {
		vals := make([]string, len(Columns()))
		for i := range vals {
			vals[i] = "0.5"
		}
		if edit != nil {
			edit(vals)
		}
		return strings.Join(vals, ",")
	}

	tests := []struct {
		name   string
		input  string
		err    error
		column string
		line   int
	}{
		{"empty", "", ErrEmptyDataset, "", 1},
		{"header only", header + "\n", ErrEmptyDataset, "", 0},
		{"missing column", strings.Replace(header, "static_3", "static_x", 1) + "\n" + row(nil), ErrMissingColumn, "static_3", 1},
		{"not a number", header + "\n" + row(nil) + "\n" + row(func(v []string) { v[3] = "abc" }), ErrNotANumber, "sat_0_3", 3},
		{"nan", header + "\n" + row(func(v []string) { v[0] = "NaN" }), ErrNotANumber, "sat_0_0", 2},
		{"risk above one", header + "\n" + row(func(v []string) { v[len(v)-1] = "1.5" }), ErrOutOfRange, "risk_6", 2},
		{"risk below zero", header + "\n" + row(func(v []string) { v[len(v)-7] = "-0.1" }), ErrOutOfRange, "risk_0", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			var dfe *DataFormatError
			require.True(t, errors.As(err, &dfe))
			assert.Equal(t, tt.column, dfe.Column)
			assert.Equal(t, tt.line, dfe.Line)
		})
	}
}

func TestReadCSVShortRecord(t *testing.T) {
	input := strings.Join(Columns(), ",") + "\n1,2,3\n"
	_, err := ReadCSV(strings.NewReader(input))

	var dfe *DataFormatError
	require.True(t, errors.As(err, &dfe))
	assert.Equal(t, 2, dfe.Line)
}

func FuzzReadCSV(f *testing.F) {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, Synthetic(1, 0))
	f.Add(buf.String())
	f.Add("")
	f.Add("a,b\n1,2\n")
	f.Fuzz(func(t *testing.T, input string) {
		samples, err := ReadCSV(strings.NewReader(input))
		if err != nil {
			var dfe *DataFormatError
			if !errors.As(err, &dfe) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			return
		}
		for _, s := range samples {
			for _, p := range s.Risk {
				if p < 0 || p > 1 {
					t.Fatalf("risk %v escaped validation", p)
				}
			}
		}
	})
}
