package main

import "flag"
import "fmt"
import "os"

import "github.com/neurlang/climapredict/config"
import "github.com/neurlang/climapredict/observability"
import "github.com/neurlang/climapredict/quantize"
import "github.com/neurlang/climapredict/trainer"

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	checkpoint := flag.String("checkpoint", "", "checkpoint file, defaults to the one in checkpoint_dir")
	output := flag.String("output", "", "artifact path, defaults to output_path")
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

	if *checkpoint == "" {
		*checkpoint = trainer.CheckpointPath(cfg.CheckpointDir)
	}
	if *output == "" {
		*output = cfg.OutputPath
	}
	if err := run(*checkpoint, *output, cfg.SizeBudget(), log); err != nil {
		log.Error("export failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(checkpoint, output string, budget int64, log *observability.Logger) error {
	ck, err := trainer.LoadCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	if err := ck.Scaler.Validate(); err != nil {
		return err
	}
	net, err := ck.Network()
	if err != nil {
		return err
	}
	log.Info("checkpoint loaded", "run_id", ck.RunID, "epoch", ck.Epoch, "validation_loss", ck.ValidationLoss)

	art, err := quantize.Export(net, ck.Scaler, output, budget)
	if err != nil {
		return err
	}
	fmt.Printf("Model saved to %s (%.2f MB)\n", art.Path, float64(art.Size)/(1<<20))
	if art.Warning != nil {
		log.Warn("artifact over size budget", "size", art.Warning.Size, "budget", art.Warning.Budget)
		fmt.Println("Warning:", art.Warning)
	}
	return nil
}
