// Package main trains the climate forecasting network: it prepares the samples,
// runs the trainer with early stopping and learning rate reduction, keeps the
// best checkpoint and exports the quantized model artifact.
package main
