package trainer

import "compress/zlib"
import "encoding/json"
import "fmt"
import "os"
import "path/filepath"

import "github.com/neurlang/climapredict/datasets/climate"
import "github.com/neurlang/climapredict/layer"
import "github.com/neurlang/climapredict/net/forecast"

// CheckpointName is the file name of the best model inside the checkpoint directory.
const CheckpointName = "best_model.json.zlib"

// Checkpoint is a full-precision snapshot of the best model of a run.
type Checkpoint struct {
	RunID          string                `json:"run_id"`
	Epoch          int                   `json:"epoch"`
	ValidationLoss float64               `json:"validation_loss"`
	LearningRate   float64               `json:"learning_rate"`
	Architecture   forecast.Architecture `json:"architecture"`
	Scaler         climate.Scaler        `json:"scaler"`
	Tensors        []layer.Tensor        `json:"tensors"`
}

// CheckpointPath returns the best model path inside dir.
func CheckpointPath(dir string) string {
	return filepath.Join(dir, CheckpointName)
}

// SaveCheckpoint writes c as zlib-compressed JSON. The data goes to a
// temporary file in the same directory which is synced and renamed over path,
// so readers see either the previous or the new checkpoint.
func SaveCheckpoint(path string, c *Checkpoint) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zlib.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("compress checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress checkpoint %s: %w", path, err)
	}
	defer zr.Close()

	var c Checkpoint
	if err := json.NewDecoder(zr).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return &c, nil
}

// Network rebuilds the checkpointed network.
func (c *Checkpoint) Network() (*forecast.Network, error) {
	n, err := forecast.New(c.Architecture, 0)
	if err != nil {
		return nil, err
	}
	if err := n.SetParams(c.Tensors); err != nil {
		return nil, err
	}
	return n, nil
}
