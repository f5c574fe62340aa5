// Package saga runs ordered steps and undoes completed ones when a later step fails.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrNoAction is returned by Run when a step has no action.
var ErrNoAction = errors.New("saga step has no action")

// Step is one unit of work with an optional compensation.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step whose action failed and any compensation failures.
type StepError struct {
	Step string
	Err  error
	// Compensation is nil when every compensation succeeded.
	Compensation error
}

func (e *StepError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("step %s: %v (compensation: %v)", e.Step, e.Err, e.Compensation)
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensated reports whether all compensations ran cleanly.
func (e *StepError) Compensated() bool {
	return e.Compensation == nil
}

// Saga is an ordered list of steps.
type Saga struct {
	steps []Step
}

// New creates a saga from the given steps.
func New(steps ...Step) *Saga {
	return &Saga{steps: steps}
}

// Add appends a step.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes actions in order. When an action fails, compensations of the
// steps that completed run in reverse order. The failing step itself is not
// compensated. Every compensation runs even if an earlier one fails.
func (s *Saga) Run(ctx context.Context) error {
	done := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		if step.Action == nil {
			return &StepError{Step: step.Name, Err: ErrNoAction, Compensation: compensate(ctx, done)}
		}
		if err := step.Action(ctx); err != nil {
			return &StepError{Step: step.Name, Err: err, Compensation: compensate(ctx, done)}
		}
		done = append(done, step)
	}
	return nil
}

func compensate(ctx context.Context, done []Step) error {
	var result *multierror.Error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return result.ErrorOrNil()
}
