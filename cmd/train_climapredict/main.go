package main

import "context"
import "errors"
import "flag"
import "fmt"
import "os"
import "os/signal"
import "syscall"

import "github.com/neurlang/climapredict/config"
import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/net/forecast"
import "github.com/neurlang/climapredict/observability"
import "github.com/neurlang/climapredict/parallel"
import "github.com/neurlang/climapredict/quantize"
import "github.com/neurlang/climapredict/trainer"

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	data := flag.String("data", "", "training CSV, overrides data_path")
	synthetic := flag.Int("synthetic", 0, "train on this many generated samples instead of a CSV")
	dump := flag.String("dump", "", "write the loaded samples as CSV to this path")
	resume := flag.Bool("resume", false, "continue from the best checkpoint in checkpoint_dir")
	pgo := flag.Bool("pgo", false, "collect a CPU profile into default.pgo")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(nil, "load config", err)
	}
	if *data != "" {
		cfg.DataPath = *data
		cfg.SyntheticSamples = 0
	}
	if *synthetic > 0 {
		cfg.SyntheticSamples = *synthetic
		if *data == "" {
			cfg.DataPath = ""
		}
	}
	if *resume {
		cfg.Resume = true
	}
	if err := cfg.Validate(); err != nil {
		fatal(nil, "invalid flags", err)
	}

	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
	if err != nil {
		fatal(nil, "create logger", err)
	}
	defer log.Sync()

	if *pgo {
		stop, err := profile("default.pgo")
		if err != nil {
			fatal(log, "profile", err)
		}
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics()
	err = run(ctx, cfg, *dump, log, metrics)
	if werr := metrics.WriteTextfile(cfg.MetricsPath); werr != nil {
		log.Warn("write metrics", "error", werr)
	}
	if err != nil {
		cancel()
		fatal(log, "training failed", err)
	}
}

func run(ctx context.Context, cfg *config.Config, dump string, log *observability.Logger, metrics *observability.Metrics) error {
	samples, err := cfg.Source().Load()
	if err != nil {
		return err
	}
	if dump != "" {
		if err := climate.SaveCSV(dump, samples); err != nil {
			return err
		}
		log.Info("samples written", "path", dump, "samples", len(samples))
	}
	prep, err := climate.PrepareSamples(samples, uint32(cfg.Seed))
	if err != nil {
		return err
	}
	log.Info("data prepared", "train", prep.Train.Len(), "validation", prep.Validation.Len())

	net, err := forecast.New(cfg.Architecture(), cfg.Seed)
	if err != nil {
		return err
	}
	var ck *trainer.Checkpoint
	if cfg.Resume {
		if ck, err = trainer.Resume(cfg.CheckpointDir); err != nil {
			return err
		}
		if ck == nil {
			log.Info("no checkpoint to resume, starting fresh", "dir", cfg.CheckpointDir)
		} else if err := prep.WithScaler(ck.Scaler); err != nil {
			return err
		}
	}
	if ck == nil {
		net.SeedForecastBias(prep.ForecastMean)
	}
	log.Info("model built", "parameters", net.Size(), "cpu", parallel.Describe())

	t, err := trainer.New(net, prep.Scaler, trainer.Options{
		HyperParameters: cfg.HyperParameters(),
		Objectives:      trainer.Objectives(cfg.ForecastWeight, cfg.RiskWeight),
		CheckpointDir:   cfg.CheckpointDir,
		Resume:          ck,
		Logger:          log,
		Metrics:         metrics,
	})
	if err != nil {
		return err
	}
	summary, err := t.Run(ctx, prep.Train, prep.Validation)
	summary.WriteTo(os.Stdout)
	if errors.Is(err, context.Canceled) && (summary.Epochs > 0 || ck != nil) {
		log.Warn("interrupted, exporting the best weights so far", "epochs", summary.Epochs)
	} else if err != nil {
		return err
	}

	art, err := quantize.Export(net, prep.Scaler, cfg.OutputPath, cfg.SizeBudget())
	if err != nil {
		return err
	}
	metrics.ArtifactBytes.Set(float64(art.Size))
	fmt.Printf("Model saved to %s (%.2f MB)\n", art.Path, float64(art.Size)/(1<<20))
	if art.Warning != nil {
		log.Warn("artifact over size budget", "size", art.Warning.Size, "budget", art.Warning.Budget)
		fmt.Println("Warning:", art.Warning)
	}
	log.Info("artifact written", "path", art.Path, "bytes", art.Size)
	return nil
}

func fatal(log *observability.Logger, msg string, err error) {
	if log == nil {
		var lerr error
		if log, lerr = observability.NewLogger("info", "console", false); lerr != nil {
			fmt.Fprintln(os.Stderr, msg+":", err)
			os.Exit(1)
		}
	}
	log.Error(msg, "error", err)
	log.Sync()
	os.Exit(1)
}
