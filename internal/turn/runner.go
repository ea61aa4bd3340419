package turn

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StepError reports which state a turn stopped in
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes the steps of a turn in order on the caller's goroutine and
// stops at the first failure. Steps after a failure are marked skipped.
type Runner struct {
	logger *zap.Logger
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

func (r *Runner) Run(ctx context.Context, id string, steps []Step) (*Trace, error) {
	trace := &Trace{
		ID:        id,
		Steps:     make([]StepExecution, len(steps)),
		StartedAt: time.Now(),
	}
	for i, step := range steps {
		trace.Steps[i] = StepExecution{State: step.State, Status: StepStatePending}
	}

	var failure error
	for i, step := range steps {
		exec := &trace.Steps[i]
		if failure != nil {
			exec.Status = StepStateSkipped
			continue
		}

		started := time.Now()
		exec.StartedAt = &started
		exec.Status = StepStateRunning

		err := step.Run(ctx)

		completed := time.Now()
		exec.CompletedAt = &completed

		if err != nil {
			exec.Status = StepStateFailed
			exec.Error = err.Error()
			failure = &StepError{State: step.State, Err: err}

			r.logger.Warn("Turn step failed",
				zap.String("turnID", id),
				zap.String("state", string(step.State)),
				zap.Duration("elapsed", completed.Sub(started)),
				zap.Error(err))
			continue
		}

		exec.Status = StepStateCompleted
		r.logger.Debug("Turn step completed",
			zap.String("turnID", id),
			zap.String("state", string(step.State)),
			zap.Duration("elapsed", completed.Sub(started)))
	}

	trace.CompletedAt = time.Now()
	if failure != nil {
		trace.Error = failure.Error()
		return trace, failure
	}
	return trace, nil
}
