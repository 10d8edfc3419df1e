package workflow

import (
	"context"
	"fmt"

	"github.com/heytrack/purchasing_backend/config"
)

// Step is one unit of a multi-record mutation. Compensate undoes Run and may
// be nil for steps with nothing to undo.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// SagaError reports which step failed and whether compensation of the earlier
// steps succeeded.
type SagaError struct {
	Step        string
	Err         error
	Compensated bool
}

func (e *SagaError) Error() string {
	if e.Compensated {
		return fmt.Sprintf("step %s failed (earlier steps compensated): %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *SagaError) Unwrap() error { return e.Err }

// Saga executes steps in order. When a step fails, the compensations of every
// completed step run in reverse order. There is no cross-entity transaction
// here; compensation is the consistency mechanism, so compensation failures
// are logged loudly instead of silently dropped.
type Saga struct {
	Name  string
	Steps []Step
}

func (s *Saga) Execute(ctx context.Context) error {
	logger := config.GetLogger()

	var done []Step
	for _, step := range s.Steps {
		if err := step.Run(ctx); err != nil {
			compensated := true
			for i := len(done) - 1; i >= 0; i-- {
				prev := done[i]
				if prev.Compensate == nil {
					continue
				}
				if cerr := prev.Compensate(ctx); cerr != nil {
					compensated = false
					config.LogError(logger, "saga.go", "Execute", fmt.Sprintf("%s > compensate %s", s.Name, prev.Name), nil, cerr)
				}
			}
			return &SagaError{Step: step.Name, Err: err, Compensated: compensated}
		}
		done = append(done, step)
	}
	return nil
}
