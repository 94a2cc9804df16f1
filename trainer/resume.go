package trainer

import "errors"
import "io/fs"

// Resume loads the best checkpoint in dir. A missing checkpoint is not an
// error: it returns nil and the run starts from scratch.
func Resume(dir string) (*Checkpoint, error) {
	c, err := LoadCheckpoint(CheckpointPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := c.Scaler.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
