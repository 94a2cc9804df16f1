package evaluate

import "bytes"
import "fmt"
import "io"
import "strings"

// ThresholdNotMet is the non-fatal outcome of a model that misses the improvement target.
type ThresholdNotMet struct {
	Improvement float64
	Threshold   float64
}

func (t *ThresholdNotMet) Error() string {
	return fmt.Sprintf("target not met: MAPE improvement %.2f%% below %.1f%%", t.Improvement, t.Threshold)
}

// VariableReport holds the metrics of one forecast variable.
type VariableReport struct {
	Name     string
	Baseline Metrics
	Model    Metrics
}

// Report is the outcome of an evaluation.
type Report struct {
	Samples     int
	Baseline    Metrics
	Model       Metrics
	Improvement Metrics // percent, per metric kind
	Threshold   float64
	Passed      bool
	Warning     *ThresholdNotMet

	Variables []VariableReport
	RiskMAE   float64
}

// WriteTo renders the report as text.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	rule := strings.Repeat("=", 50)
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\nEVALUATION RESULTS (%d samples)\n%s\n", rule, r.Samples, rule)

	fmt.Fprintf(&b, "\nBaseline Metrics:\n  MAPE: %.2f%%\n  RMSE: %.2f\n", r.Baseline.MAPE, r.Baseline.RMSE)
	fmt.Fprintf(&b, "\nModel Metrics:\n  MAPE: %.2f%%\n  RMSE: %.2f\n", r.Model.MAPE, r.Model.RMSE)
	fmt.Fprintf(&b, "\nImprovement:\n  MAPE: %.2f%%\n  RMSE: %.2f%%\n", r.Improvement.MAPE, r.Improvement.RMSE)

	if len(r.Variables) > 0 {
		fmt.Fprintf(&b, "\nPer variable (baseline -> model):\n")
		for _, v := range r.Variables {
			fmt.Fprintf(&b, "  %-12s MAPE %8.2f%% -> %8.2f%%   RMSE %8.2f -> %8.2f\n",
				v.Name, v.Baseline.MAPE, v.Model.MAPE, v.Baseline.RMSE, v.Model.RMSE)
		}
	}
	fmt.Fprintf(&b, "\nRisk MAE: %.4f\n", r.RiskMAE)

	if r.Passed {
		fmt.Fprintf(&b, "\nTarget met: >=%.1f%% MAPE improvement\n", r.Threshold)
	} else {
		fmt.Fprintf(&b, "\nTarget not met: need >=%.1f%% MAPE improvement, got %.2f%%\n", r.Threshold, r.Improvement.MAPE)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.WriteTo(w)
}
