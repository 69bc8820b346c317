package pipeline

import "fmt"

// Render stages named by StageError.
const (
	StageChart     = "chart"
	StageRasterize = "rasterize"
	StageWrite     = "write"
)

// StageError reports which render stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("render stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage string, err error) *StageError {
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}
