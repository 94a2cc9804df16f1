// Package main evaluates an exported climate model against a baseline forecaster
// on held-out samples and prints the MAPE and RMSE report.
package main
