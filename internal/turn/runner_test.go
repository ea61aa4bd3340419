package turn

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestRunner_RunsStepsInOrder(t *testing.T) {
	runner := NewRunner(zaptest.NewLogger(t))

	var order []State
	record := func(s State) Step {
		return Step{State: s, Run: func(ctx context.Context) error {
			order = append(order, s)
			return nil
		}}
	}

	trace, err := runner.Run(context.Background(), "turn-1", []Step{
		record(StateTranslatingIn),
		record(StateAppending),
		record(StateCompleting),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []State{StateTranslatingIn, StateAppending, StateCompleting}
	if len(order) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Step %d: expected %s, got %s", i, expected[i], order[i])
		}
		if trace.Steps[i].Status != StepStateCompleted {
			t.Errorf("Step %d: expected completed, got %s", i, trace.Steps[i].Status)
		}
		if trace.Steps[i].StartedAt == nil || trace.Steps[i].CompletedAt == nil {
			t.Errorf("Step %d: missing timestamps", i)
		}
	}

	if trace.FailedAt() != StateIdle {
		t.Errorf("Expected no failed state, got %s", trace.FailedAt())
	}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	runner := NewRunner(zaptest.NewLogger(t))
	boom := errors.New("completion exhausted")

	ranAfter := false
	trace, err := runner.Run(context.Background(), "turn-2", []Step{
		{State: StateAppending, Run: func(ctx context.Context) error { return nil }},
		{State: StateCompleting, Run: func(ctx context.Context) error { return boom }},
		{State: StateTranslatingOut, Run: func(ctx context.Context) error {
			ranAfter = true
			return nil
		}},
	})

	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped step error, got %v", err)
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.State != StateCompleting {
		t.Errorf("Expected StepError at completing, got %v", err)
	}

	if ranAfter {
		t.Error("Expected steps after the failure not to run")
	}

	statuses := []StepState{StepStateCompleted, StepStateFailed, StepStateSkipped}
	for i, s := range statuses {
		if trace.Steps[i].Status != s {
			t.Errorf("Step %d: expected %s, got %s", i, s, trace.Steps[i].Status)
		}
	}

	if trace.FailedAt() != StateCompleting || trace.Error == "" {
		t.Errorf("Unexpected trace %+v", trace)
	}
}
