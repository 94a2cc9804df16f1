package forecast

import "fmt"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/climapredict/datasets/climate"

// Output names a head of the network. Losses and targets bind to outputs by
// name, never by position.
type Output int

const (
	// Forecast is the flattened day-major 7×5 weather grid.
	Forecast Output = iota

	// Risk is the per-day risk probability.
	Risk
)

// Outputs lists every head in a fixed order.
func Outputs() []Output {
	return []Output{Forecast, Risk}
}

func (o Output) String() string {
	switch o {
	case Forecast:
		return "forecast"
	case Risk:
		return "risk"
	}
	return fmt.Sprintf("output(%d)", int(o))
}

// ParseOutput resolves an output by name.
func ParseOutput(name string) (Output, error) {
	for _, o := range Outputs() {
		if o.String() == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown output %q", name)
}

// Width reports the number of columns the head produces per sample.
func (o Output) Width() int {
	if o == Risk {
		return climate.Horizon
	}
	return climate.ForecastWidth
}

// Target selects the ground truth matching the head.
func (o Output) Target(t climate.Targets) *mat.Dense {
	if o == Risk {
		return t.Risk
	}
	return t.Forecast
}

// Result maps every head to its batch output, or to a gradient with respect to it.
type Result map[Output]*mat.Dense
