// Package config loads run settings: defaults, then an optional YAML file,
// then CLIMA_* environment overrides, then validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neurlang/climapredict/datasets/climate"
	"github.com/neurlang/climapredict/learning"
	"github.com/neurlang/climapredict/net/forecast"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLIMA_"

// Config holds all settings of the training and evaluation binaries.
type Config struct {
	DataPath         string `yaml:"data_path"`
	SyntheticSamples int    `yaml:"synthetic_samples"`
	Seed             int64  `yaml:"seed"`

	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	LearningRate    float64 `yaml:"learning_rate"`
	LRPatience      int     `yaml:"lr_patience"`
	LRFactor        float64 `yaml:"lr_factor"`
	MinLearningRate float64 `yaml:"min_learning_rate"`
	StopPatience    int     `yaml:"stop_patience"`
	Dropout         float64 `yaml:"dropout"`

	// Composite loss weights.
	ForecastWeight float64 `yaml:"forecast_weight"`
	RiskWeight     float64 `yaml:"risk_weight"`

	CheckpointDir string  `yaml:"checkpoint_dir"`
	OutputPath    string  `yaml:"output_path"`
	SizeBudgetMB  float64 `yaml:"size_budget_mb"`
	Resume        bool    `yaml:"resume"`
	Threads       int     `yaml:"threads"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Quiet       bool   `yaml:"quiet"`
	MetricsPath string `yaml:"metrics_path"`

	TargetImprovement float64 `yaml:"target_improvement"`
}

// Default returns the built-in settings.
func Default() *Config {
	h := learning.Default()
	return &Config{
		Seed:              h.Seed,
		Epochs:            h.Epochs,
		BatchSize:         h.BatchSize,
		LearningRate:      h.LearningRate,
		LRPatience:        h.ReducePatience,
		LRFactor:          h.ReduceFactor,
		MinLearningRate:   h.MinLearningRate,
		StopPatience:      h.StopPatience,
		Dropout:           forecast.Default().Dropout,
		ForecastWeight:    1.0,
		RiskWeight:        0.5,
		CheckpointDir:     "checkpoints",
		OutputPath:        "models/climapredict_v1.cpq",
		SizeBudgetMB:      50,
		LogLevel:          "info",
		LogFormat:         "console",
		TargetImprovement: 20,
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DATA_PATH":      &c.DataPath,
		"CHECKPOINT_DIR": &c.CheckpointDir,
		"OUTPUT_PATH":    &c.OutputPath,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FORMAT":     &c.LogFormat,
		"METRICS_PATH":   &c.MetricsPath,
	}
	for name, p := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*p = v
		}
	}

	ints := map[string]*int{
		"SYNTHETIC_SAMPLES": &c.SyntheticSamples,
		"EPOCHS":            &c.Epochs,
		"BATCH_SIZE":        &c.BatchSize,
		"LR_PATIENCE":       &c.LRPatience,
		"STOP_PATIENCE":     &c.StopPatience,
		"THREADS":           &c.Threads,
	}
	for name, p := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*p = n
		}
	}

	floats := map[string]*float64{
		"LEARNING_RATE":      &c.LearningRate,
		"LR_FACTOR":          &c.LRFactor,
		"MIN_LEARNING_RATE":  &c.MinLearningRate,
		"DROPOUT":            &c.Dropout,
		"FORECAST_WEIGHT":    &c.ForecastWeight,
		"RISK_WEIGHT":        &c.RiskWeight,
		"SIZE_BUDGET_MB":     &c.SizeBudgetMB,
		"TARGET_IMPROVEMENT": &c.TargetImprovement,
	}
	for name, p := range floats {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*p = f
		}
	}

	bools := map[string]*bool{
		"RESUME": &c.Resume,
		"QUIET":  &c.Quiet,
	}
	for name, p := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*p = b
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "SEED"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSEED: %w", EnvPrefix, err)
		}
		c.Seed = n
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > 4096 {
		return fmt.Errorf("batch_size %d outside [1, 4096]", c.BatchSize)
	}
	if c.SyntheticSamples < 0 {
		return fmt.Errorf("synthetic_samples must not be negative")
	}
	if c.DataPath != "" && c.SyntheticSamples > 0 {
		return errors.New("data_path and synthetic_samples are mutually exclusive")
	}
	if c.ForecastWeight < 0 || c.RiskWeight < 0 || c.ForecastWeight+c.RiskWeight == 0 {
		return errors.New("loss weights must be non-negative and not both zero")
	}
	if c.CheckpointDir == "" {
		return errors.New("checkpoint_dir is required")
	}
	if c.OutputPath == "" {
		return errors.New("output_path is required")
	}
	if !(c.SizeBudgetMB > 0) {
		return fmt.Errorf("size_budget_mb must be positive, got %v", c.SizeBudgetMB)
	}
	if c.TargetImprovement < 0 {
		return fmt.Errorf("target_improvement must not be negative")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format %q: want console or json", c.LogFormat)
	}
	arch := c.Architecture()
	if err := arch.Validate(); err != nil {
		return err
	}
	h := c.HyperParameters()
	return h.Validate()
}

// HyperParameters extracts the optimiser and schedule settings.
func (c *Config) HyperParameters() learning.HyperParameters {
	h := learning.Default()
	h.Epochs = c.Epochs
	h.BatchSize = c.BatchSize
	h.LearningRate = c.LearningRate
	h.MinLearningRate = c.MinLearningRate
	h.ReducePatience = c.LRPatience
	h.ReduceFactor = c.LRFactor
	h.StopPatience = c.StopPatience
	h.Threads = c.Threads
	h.Seed = c.Seed
	return h
}

// Architecture returns the network shape with the configured dropout.
func (c *Config) Architecture() forecast.Architecture {
	a := forecast.Default()
	a.Dropout = c.Dropout
	return a
}

// Source names where training samples come from.
func (c *Config) Source() climate.Source {
	return climate.Source{Path: c.DataPath, Synthetic: c.SyntheticSamples, SyntheticSeed: c.Seed}
}

// SizeBudget returns the artifact soft budget in bytes.
func (c *Config) SizeBudget() int64 {
	return int64(c.SizeBudgetMB * (1 << 20))
}
