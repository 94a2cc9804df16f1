package evaluate

import "context"
import "fmt"

import "golang.org/x/sync/errgroup"

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/observability"
import "github.com/neurlang/climapredict/parallel"

// DefaultThreshold is the MAPE improvement in percent the model must reach.
const DefaultThreshold = 20.0

// batchSize is the number of samples per inference call.
const batchSize = 64

// Predictor produces forecasts and risks for samples. It must be safe for concurrent use.
type Predictor interface {
	Predict(samples []climate.Sample) ([]Grid, [][climate.Horizon]float64, error)
}

// Evaluator compares a Predictor against baseline predictions.
type Evaluator struct {
	Predictor Predictor
	Threshold float64 // percent MAPE improvement, DefaultThreshold when 0
	Workers   int     // concurrent inference calls, detected when 0

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Evaluate predicts every test sample and scores model and baseline against
// the ground truth. Missing the threshold is not an error: it is reported in
// Report.Warning.
func (e *Evaluator) Evaluate(ctx context.Context, test []climate.Sample, baseline []Grid) (*Report, error) {
	if len(test) == 0 {
		return nil, &climate.DataFormatError{Err: climate.ErrEmptyDataset}
	}
	if len(baseline) != len(test) {
		return nil, &climate.ShapeMismatchError{Name: "baseline", Want: []int{len(test), climate.Horizon, climate.Variables}, Got: []int{len(baseline), climate.Horizon, climate.Variables}}
	}
	threshold := e.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	workers := e.Workers
	if workers <= 0 {
		workers = parallel.Threads()
	}
	log := e.Logger
	if log == nil {
		log = observability.NopLogger()
	}

	grids, risks, err := e.predict(ctx, test, workers)
	if err != nil {
		return nil, err
	}

	truth := make([]float64, 0, len(test)*climate.ForecastWidth)
	model := make([]float64, 0, len(test)*climate.ForecastWidth)
	base := make([]float64, 0, len(test)*climate.ForecastWidth)
	trueRisk := make([]float64, 0, len(test)*climate.Horizon)
	predRisk := make([]float64, 0, len(test)*climate.Horizon)
	for i := range test {
		truth = append(truth, test[i].FlatForecast()...)
		model = append(model, climate.Flatten(grids[i])...)
		base = append(base, climate.Flatten(baseline[i])...)
		trueRisk = append(trueRisk, test[i].Risk[:]...)
		predRisk = append(predRisk, risks[i][:]...)
	}

	r := &Report{Samples: len(test), Threshold: threshold}
	if r.Baseline, err = Compute(truth, base); err != nil {
		return nil, err
	}
	if r.Model, err = Compute(truth, model); err != nil {
		return nil, err
	}
	r.Improvement = Improvements(r.Baseline, r.Model)
	if r.RiskMAE, err = MAE(trueRisk, predRisk); err != nil {
		return nil, err
	}
	for v, name := range climate.VariableNames {
		vr := VariableReport{Name: name}
		if vr.Baseline, err = Compute(column(truth, v), column(base, v)); err != nil {
			return nil, err
		}
		if vr.Model, err = Compute(column(truth, v), column(model, v)); err != nil {
			return nil, err
		}
		r.Variables = append(r.Variables, vr)
	}

	r.Passed = r.Improvement.MAPE >= threshold
	if !r.Passed {
		r.Warning = &ThresholdNotMet{Improvement: r.Improvement.MAPE, Threshold: threshold}
		log.Warn("target not met", "mape_improvement", r.Improvement.MAPE, "threshold", threshold)
	}
	if e.Metrics != nil {
		e.Metrics.EvaluationMAPE.WithLabelValues("baseline").Set(r.Baseline.MAPE)
		e.Metrics.EvaluationMAPE.WithLabelValues("model").Set(r.Model.MAPE)
		e.Metrics.EvaluationRMSE.WithLabelValues("baseline").Set(r.Baseline.RMSE)
		e.Metrics.EvaluationRMSE.WithLabelValues("model").Set(r.Model.RMSE)
	}
	log.Info("evaluation done", "samples", r.Samples, "model_mape", r.Model.MAPE, "baseline_mape", r.Baseline.MAPE)
	return r, nil
}

// predict fans batches out to at most workers concurrent Predict calls and
// places every result at its sample index.
func (e *Evaluator) predict(ctx context.Context, test []climate.Sample, workers int) ([]Grid, [][climate.Horizon]float64, error) {
	grids := make([]Grid, len(test))
	risks := make([][climate.Horizon]float64, len(test))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(test); start += batchSize {
		start := start
		end := min(start+batchSize, len(test))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bg, br, err := e.Predictor.Predict(test[start:end])
			if err != nil {
				return fmt.Errorf("predict samples %d..%d: %w", start, end-1, err)
			}
			if len(bg) != end-start || len(br) != end-start {
				return fmt.Errorf("predict samples %d..%d: got %d forecasts", start, end-1, len(bg))
			}
			copy(grids[start:end], bg)
			copy(risks[start:end], br)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return grids, risks, nil
}

// column picks variable v from day-major flattened grids.
func column(flat []float64, v int) []float64 {
	o := make([]float64, 0, len(flat)/climate.Variables)
	for i := v; i < len(flat); i += climate.Variables {
		o = append(o, flat[i])
	}
	return o
}
