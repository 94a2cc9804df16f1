package trainer

import "bytes"
import "fmt"
import "io"
import "time"

// StopReason says why a run ended.
type StopReason string

const (
	StopEarly    StopReason = "early stopping"
	StopBudget   StopReason = "epoch budget"
	StopCanceled StopReason = "canceled"
	StopDiverged StopReason = "error"
)

// Epoch is one row of the training history.
type Epoch struct {
	Epoch          int
	TrainLoss      float64
	ValidationLoss float64
	LearningRate   float64 // rate the epoch trained with
	State          State
	Duration       time.Duration
}

// Summary describes a finished run.
type Summary struct {
	RunID              string
	Epochs             int
	BestEpoch          int // 0 when the resumed checkpoint was never beaten
	BestValidationLoss float64
	LearningRate       float64
	StopReason         StopReason
	History            []Epoch
	Duration           time.Duration
	Checkpoint         string
}

// WriteTo renders the summary as text.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Training summary (run %s)\n", s.RunID)
	fmt.Fprintf(&b, "  epochs run:           %d\n", s.Epochs)
	fmt.Fprintf(&b, "  stopped by:           %s\n", s.StopReason)
	fmt.Fprintf(&b, "  best epoch:           %d\n", s.BestEpoch)
	fmt.Fprintf(&b, "  best validation loss: %.6f\n", s.BestValidationLoss)
	fmt.Fprintf(&b, "  final learning rate:  %g\n", s.LearningRate)
	fmt.Fprintf(&b, "  duration:             %s\n", s.Duration.Round(time.Millisecond))
	if s.Checkpoint != "" {
		fmt.Fprintf(&b, "  checkpoint:           %s\n", s.Checkpoint)
	}
	return b.WriteTo(w)
}
