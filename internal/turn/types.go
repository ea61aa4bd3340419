package turn

import (
	"context"
	"time"
)

// State is a stage of one user turn
type State string

const (
	StateIdle            State = "idle"
	StateTranslatingIn   State = "translating_in"
	StateAppending       State = "appending"
	StateCompleting      State = "completing"
	StateTranslatingOut  State = "translating_out"
	StateAudioPopulating State = "audio_populating"
)

// StepState represents the state of an individual step
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateRunning   StepState = "running"
	StepStateCompleted StepState = "completed"
	StepStateFailed    StepState = "failed"
	StepStateSkipped   StepState = "skipped"
)

// Step is one transition of the turn state machine
type Step struct {
	State State
	Run   func(ctx context.Context) error
}

// StepExecution records how a step went
type StepExecution struct {
	State       State      `json:"state"`
	Status      StepState  `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Trace is the record of one turn
type Trace struct {
	ID          string          `json:"id"`
	Steps       []StepExecution `json:"steps"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Error       string          `json:"error,omitempty"`
}

// FailedAt returns the state whose step failed, or StateIdle if none did
func (t *Trace) FailedAt() State {
	for _, s := range t.Steps {
		if s.Status == StepStateFailed {
			return s.State
		}
	}
	return StateIdle
}
