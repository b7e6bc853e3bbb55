package simulator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotInitialized = errors.New("driver is not initialized")
	ErrTornDown       = errors.New("driver is torn down")
)

// WiringError lists every model input state that neither an upstream model
// nor an input channel provides.
type WiringError struct {
	// Missing holds "model: signal" entries.
	Missing []string
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("unsatisfied model inputs: %s", strings.Join(e.Missing, ", "))
}

// StepError wraps a model failure during the step loop.
type StepError struct {
	Model string
	Step  int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d: %v", e.Model, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
