package trainer

import "context"
import "errors"
import "fmt"
import "math"
import "math/rand"

import "github.com/google/uuid"
import "github.com/jonboulle/clockwork"

import "github.com/neurlang/climapredict/datasets"
import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/layer"
import "github.com/neurlang/climapredict/learning"
import "github.com/neurlang/climapredict/net/forecast"
import "github.com/neurlang/climapredict/observability"
import "github.com/neurlang/climapredict/parallel"

// ErrDivergence aborts a run whose training or validation loss is not finite.
var ErrDivergence = errors.New("training diverged: non-finite loss")

// Options configures a Trainer. Zero values pick the defaults.
type Options struct {
	HyperParameters learning.HyperParameters
	Objectives      []Objective

	// CheckpointDir receives the best model; empty disables checkpoint files.
	CheckpointDir string

	// Resume, when set, seeds the weights and the best loss from an earlier run.
	Resume *Checkpoint

	RunID   string
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
}

// Trainer drives one training run of a network.
type Trainer struct {
	net        *forecast.Network
	scaler     climate.Scaler
	h          learning.HyperParameters
	objectives []Objective
	dir        string
	runID      string

	adam    *learning.Adam
	monitor *Monitor
	rng     *rand.Rand
	best    []layer.Tensor

	log     *observability.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	// validate computes the validation loss of an epoch.
	validate func(climate.Split) (float64, error)
}

// New prepares a run of net on data standardised with scaler.
func New(net *forecast.Network, scaler climate.Scaler, opts Options) (*Trainer, error) {
	h := opts.HyperParameters
	if err := h.Validate(); err != nil {
		return nil, err
	}
	objectives := opts.Objectives
	if objectives == nil {
		objectives = DefaultObjectives()
	}
	if err := checkObjectives(objectives); err != nil {
		return nil, err
	}
	t := &Trainer{
		net:        net,
		scaler:     scaler,
		h:          h,
		objectives: objectives,
		dir:        opts.CheckpointDir,
		runID:      opts.RunID,
		adam:       learning.NewAdam(h),
		monitor:    NewMonitor(h.ReducePatience, h.StopPatience),
		rng:        rand.New(rand.NewSource(h.Seed)),
		log:        opts.Logger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
	}
	if t.runID == "" {
		t.runID = uuid.NewString()
	}
	if t.log == nil {
		t.log = observability.NopLogger()
	}
	if t.metrics == nil {
		t.metrics = observability.NewMetrics()
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}
	t.log = t.log.With("run_id", t.runID)
	t.validate = t.validationLoss

	if ck := opts.Resume; ck != nil {
		if ck.Architecture != net.Arch() {
			return nil, fmt.Errorf("resume: checkpoint architecture %+v differs from %+v", ck.Architecture, net.Arch())
		}
		if err := net.SetParams(ck.Tensors); err != nil {
			return nil, fmt.Errorf("resume: %w", err)
		}
		t.monitor.Resume(0, ck.ValidationLoss)
		t.best = ck.Tensors
		t.log.Info("resumed from checkpoint", "from_run", ck.RunID, "validation_loss", ck.ValidationLoss)
	}
	return t, nil
}

// RunID identifies the run in logs and checkpoints.
func (t *Trainer) RunID() string { return t.runID }

// Run trains until the monitor stops it, the epoch budget is spent or ctx is
// done, and leaves the best weights in the network.
func (t *Trainer) Run(ctx context.Context, train, validation climate.Split) (Summary, error) {
	if err := train.Validate(); err != nil {
		return Summary{}, fmt.Errorf("train split: %w", err)
	}
	if err := validation.Validate(); err != nil {
		return Summary{}, fmt.Errorf("validation split: %w", err)
	}

	start := t.clock.Now()
	s := Summary{RunID: t.runID, StopReason: StopBudget}
	if t.dir != "" {
		s.Checkpoint = CheckpointPath(t.dir)
	}
	t.metrics.LearningRate.Set(t.adam.LearningRate())

	order := make([]int, train.Len())
	for i := range order {
		order[i] = i
	}

	var err error
	for epoch := 1; epoch <= t.h.Epochs; epoch++ {
		if ctx.Err() != nil {
			s.StopReason = StopCanceled
			err = ctx.Err()
			break
		}
		epochStart := t.clock.Now()

		t.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var trainLoss float64
		trainLoss, err = t.trainEpoch(train, order)
		if err != nil {
			err = fmt.Errorf("epoch %d: %w", epoch, err)
			s.StopReason = StopDiverged
			break
		}
		var valLoss float64
		valLoss, err = t.validate(validation)
		if err == nil && !finite(valLoss) {
			err = fmt.Errorf("%w: validation loss %v", ErrDivergence, valLoss)
		}
		if err != nil {
			err = fmt.Errorf("epoch %d: %w", epoch, err)
			s.StopReason = StopDiverged
			break
		}

		state := t.monitor.Observe(epoch, valLoss)
		lr := t.adam.LearningRate()
		switch state {
		case Improving:
			err = t.keep(epoch, valLoss)
		case Plateauing:
			next := math.Max(lr*t.h.ReduceFactor, t.h.MinLearningRate)
			t.adam.SetLearningRate(next)
			t.metrics.LRReductions.Inc()
			t.log.Info("reducing learning rate", "epoch", epoch, "from", lr, "to", next)
		}
		if err != nil {
			s.StopReason = StopDiverged
			break
		}

		took := t.clock.Since(epochStart)
		s.History = append(s.History, Epoch{
			Epoch:          epoch,
			TrainLoss:      trainLoss,
			ValidationLoss: valLoss,
			LearningRate:   lr,
			State:          state,
			Duration:       took,
		})
		s.Epochs = epoch
		t.metrics.Epochs.Inc()
		t.metrics.TrainLoss.Set(trainLoss)
		t.metrics.ValidationLoss.Set(valLoss)
		t.metrics.LearningRate.Set(t.adam.LearningRate())
		t.metrics.EpochDuration.Observe(took.Seconds())
		t.log.Debug("epoch done", "epoch", epoch, "train_loss", trainLoss, "validation_loss", valLoss, "learning_rate", lr, "state", state.String())

		if state == Exhausted {
			s.StopReason = StopEarly
			t.log.Info("early stopping", "epoch", epoch)
			break
		}
	}

	t.monitor.Stop()
	if t.best != nil {
		if rerr := t.net.SetParams(t.best); rerr != nil && err == nil {
			err = rerr
		}
	}
	s.BestEpoch, s.BestValidationLoss = t.monitor.Best()
	s.LearningRate = t.adam.LearningRate()
	s.Duration = t.clock.Since(start)
	t.log.Info("training finished", "epochs", s.Epochs, "best_epoch", s.BestEpoch, "best_validation_loss", s.BestValidationLoss, "stop", string(s.StopReason))
	return s, err
}

// trainEpoch runs every mini-batch of order once and returns the mean loss.
func (t *Trainer) trainEpoch(train climate.Split, order []int) (float64, error) {
	var sum float64
	for i, idx := range datasets.Batches(order, t.h.BatchSize) {
		b := train.Batch(idx)
		t.net.ZeroGrad()
		res, err := t.net.Forward(b.Inputs, true)
		if err != nil {
			return 0, err
		}
		loss, grads, err := composite(t.objectives, res, b.Targets, true)
		if err != nil {
			return 0, err
		}
		if !finite(loss) {
			return 0, fmt.Errorf("%w: batch %d loss %v", ErrDivergence, i, loss)
		}
		if err := t.net.Backward(grads); err != nil {
			return 0, err
		}
		t.adam.Step(t.net.Params())
		sum += loss * float64(len(idx))
	}
	return sum / float64(len(order)), nil
}

// validationLoss evaluates the validation split in parallel batches through the
// cache-free inference path and reduces them in batch order.
func (t *Trainer) validationLoss(v climate.Split) (float64, error) {
	n := v.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	batches := datasets.Batches(idx, t.h.BatchSize)

	type part struct {
		loss float64
		err  error
	}
	parts := parallel.Map(len(batches), t.h.Threads, func(i int) part {
		b := v.Batch(batches[i])
		res, err := t.net.Infer(b.Inputs)
		if err != nil {
			return part{err: err}
		}
		loss, _, err := composite(t.objectives, res, b.Targets, false)
		return part{loss: loss * float64(len(batches[i])), err: err}
	})
	var sum float64
	for _, p := range parts {
		if p.err != nil {
			return 0, p.err
		}
		sum += p.loss
	}
	return sum / float64(n), nil
}

// keep snapshots the current weights as the best and writes the checkpoint.
func (t *Trainer) keep(epoch int, loss float64) error {
	t.best = t.net.Tensors()
	if t.dir == "" {
		return nil
	}
	err := SaveCheckpoint(CheckpointPath(t.dir), &Checkpoint{
		RunID:          t.runID,
		Epoch:          epoch,
		ValidationLoss: loss,
		LearningRate:   t.adam.LearningRate(),
		Architecture:   t.net.Arch(),
		Scaler:         t.scaler,
		Tensors:        t.best,
	})
	if err != nil {
		return err
	}
	t.metrics.CheckpointWrites.Inc()
	t.log.Info("checkpoint saved", "epoch", epoch, "validation_loss", loss)
	return nil
}
