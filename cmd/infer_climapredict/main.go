package main

import "context"
import "flag"
import "fmt"
import "os"
import "os/signal"
import "syscall"

import "github.com/neurlang/climapredict/config"
import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/evaluate"
import "github.com/neurlang/climapredict/inference"
import "github.com/neurlang/climapredict/observability"

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	modelPath := flag.String("model", "", "model artifact, defaults to output_path")
	testData := flag.String("test-data", "", "test CSV with ground truth")
	baselinePath := flag.String("baseline", "", "baseline predictions CSV")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *modelPath == "" {
		*modelPath = cfg.OutputPath
	}
	if *testData == "" || *baselinePath == "" {
		log.Error("missing flags", "error", "-test-data and -baseline are required")
		log.Sync()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics()
	err = run(ctx, cfg, *modelPath, *testData, *baselinePath, log, metrics)
	if werr := metrics.WriteTextfile(cfg.MetricsPath); werr != nil {
		log.Warn("write metrics", "error", werr)
	}
	if err != nil {
		log.Error("evaluation failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, modelPath, testData, baselinePath string, log *observability.Logger, metrics *observability.Metrics) error {
	model, err := inference.Load(modelPath)
	if err != nil {
		return err
	}
	test, err := climate.LoadCSV(testData)
	if err != nil {
		return err
	}
	baseline, err := evaluate.LoadBaseline(baselinePath, len(test))
	if err != nil {
		return err
	}
	log.Info("evaluating", "model", modelPath, "samples", len(test))

	e := evaluate.Evaluator{
		Predictor: model,
		Threshold: cfg.TargetImprovement,
		Workers:   cfg.Threads,
		Logger:    log,
		Metrics:   metrics,
	}
	report, err := e.Evaluate(ctx, test, baseline)
	if err != nil {
		return err
	}
	_, err = report.WriteTo(os.Stdout)
	return err
}
