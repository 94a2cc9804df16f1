package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climapredict"

// Metrics holds the Prometheus collectors of a training or evaluation run.
// Each Metrics owns its registry, so runs and tests never collide.
type Metrics struct {
	Registry *prometheus.Registry

	// Training.
	Epochs           prometheus.Counter
	TrainLoss        prometheus.Gauge
	ValidationLoss   prometheus.Gauge
	LearningRate     prometheus.Gauge
	CheckpointWrites prometheus.Counter
	LRReductions     prometheus.Counter
	EpochDuration    prometheus.Histogram

	// Export.
	ArtifactBytes prometheus.Gauge

	// Evaluation.
	EvaluationMAPE *prometheus.GaugeVec // labels: predictor={baseline,model}
	EvaluationRMSE *prometheus.GaugeVec // labels: predictor={baseline,model}
}

// NewMetrics creates every collector and registers it with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epochs_total",
			Help:      "Training epochs completed.",
		}),
		TrainLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "train_loss",
			Help:      "Mean composite training loss of the last epoch.",
		}),
		ValidationLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_loss",
			Help:      "Composite validation loss of the last epoch.",
		}),
		LearningRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "learning_rate",
			Help:      "Current optimiser step size.",
		}),
		CheckpointWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_writes_total",
			Help:      "Best-model checkpoints written.",
		}),
		LRReductions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lr_reductions_total",
			Help:      "Plateau learning-rate reductions.",
		}),
		EpochDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "epoch_duration_seconds",
			Help:      "Wall time of one training epoch including validation.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ArtifactBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of the exported model artifact.",
		}),
		EvaluationMAPE: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_mape",
			Help:      "Mean absolute percentage error by predictor.",
		}, []string{"predictor"}),
		EvaluationRMSE: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_rmse",
			Help:      "Root mean squared error by predictor.",
		}, []string{"predictor"}),
	}

	m.Registry.MustRegister(
		m.Epochs,
		m.TrainLoss,
		m.ValidationLoss,
		m.LearningRate,
		m.CheckpointWrites,
		m.LRReductions,
		m.EpochDuration,
		m.ArtifactBytes,
		m.EvaluationMAPE,
		m.EvaluationRMSE,
	)
	return m
}

// WriteTextfile writes every metric in the node-exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
