package climate

import "errors"
import "fmt"

var (
	ErrMissingColumn = errors.New("missing column")
	ErrNotANumber    = errors.New("not a finite number")
	ErrOutOfRange    = errors.New("value out of range")
	ErrTooFewSamples = errors.New("too few samples")
	ErrNoSource      = errors.New("no data source: set a data path or request synthetic samples")
	ErrEmptyDataset  = errors.New("dataset is empty")
)

// DataFormatError reports input that does not satisfy the column contract.
// It is fatal: nothing is trained or evaluated on malformed input.
type DataFormatError struct {
	Line   int    // 1-based line of the offending record, 0 when not tied to a line
	Column string // column name, empty when not tied to a column
	Err    error
}

func (e *DataFormatError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("data format: line %d, column %q: %v", e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("data format: line %d: %v", e.Line, e.Err)
	case e.Column != "":
		return fmt.Sprintf("data format: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("data format: %v", e.Err)
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// ShapeMismatchError reports an array whose shape disagrees with the fixed contract.
type ShapeMismatchError struct {
	Name string
	Want []int
	Got  []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: want %v, got %v", e.Name, e.Want, e.Got)
}

var errAmbiguousSource = errors.New("both a data path and synthetic samples requested")
