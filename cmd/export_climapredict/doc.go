// Package main re-exports the best training checkpoint as a quantized model
// artifact without training again.
package main
