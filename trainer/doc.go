// Package trainer provides the training orchestration for the forecasting
// network: mini-batch Adam over a composite loss bound to outputs by name, a
// per-epoch convergence monitor that reduces the learning rate on plateaus and
// stops early, best-model checkpoints and resuming from them.
package trainer
