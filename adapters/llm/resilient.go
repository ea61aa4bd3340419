package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/repositories"
)

// AttemptStatus classifies the outcome of one completion attempt
type AttemptStatus int

const (
	AttemptOK AttemptStatus = iota
	AttemptRetryable
	AttemptTerminal
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptOK:
		return "ok"
	case AttemptRetryable:
		return "retryable"
	case AttemptTerminal:
		return "terminal"
	}
	return "unknown"
}

// AttemptResult is either Text (AttemptOK) or Err
type AttemptResult struct {
	Status AttemptStatus
	Text   string
	Err    error
}

func OK(text string) AttemptResult      { return AttemptResult{Status: AttemptOK, Text: text} }
func Retryable(err error) AttemptResult { return AttemptResult{Status: AttemptRetryable, Err: err} }
func Terminal(err error) AttemptResult  { return AttemptResult{Status: AttemptTerminal, Err: err} }

// Transport performs a single completion attempt without retrying
type Transport interface {
	Attempt(ctx context.Context, req repositories.CompletionRequest) AttemptResult
}

// ErrCompletionFailed matches every *TerminalError via errors.Is
var ErrCompletionFailed = errors.New("completion failed")

// TerminalError is returned once all attempts are used up
type TerminalError struct {
	Attempts int
	Last     error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("completion failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *TerminalError) Unwrap() error { return e.Last }

func (e *TerminalError) Is(target error) bool { return target == ErrCompletionFailed }

// ResilientConfig bounds the retry loop. Retries is the total number of attempts.
type ResilientConfig struct {
	Retries   int
	BaseDelay time.Duration
}

// ResilientCaller retries a Transport with linear backoff
type ResilientCaller struct {
	transport Transport
	logger    *zap.Logger
	attempts  int
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

var _ repositories.ChatCompleter = (*ResilientCaller)(nil)

// NewResilientCaller wraps transport with the configured retry bound
func NewResilientCaller(transport Transport, config ResilientConfig, logger *zap.Logger) *ResilientCaller {
	attempts := config.Retries
	if attempts < 1 {
		attempts = 2
		logger.Info("Using default retries", zap.Int("retries", attempts))
	}

	baseDelay := config.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
		logger.Info("Using default retry base delay", zap.Duration("baseDelay", baseDelay))
	}

	return &ResilientCaller{
		transport: transport,
		logger:    logger,
		attempts:  attempts,
		baseDelay: baseDelay,
		sleep:     sleepContext,
	}
}

// Complete runs up to the configured number of attempts. After failed attempt k
// it waits k*baseDelay before the next one; no wait follows the last attempt.
func (c *ResilientCaller) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	var last error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		result := c.transport.Attempt(ctx, req)

		switch result.Status {
		case AttemptOK:
			if attempt > 1 {
				c.logger.Info("Completion succeeded after retry", zap.Int("attempt", attempt))
			}
			return result.Text, nil
		case AttemptTerminal:
			c.logger.Error("Completion attempt failed terminally",
				zap.Int("attempt", attempt),
				zap.Error(result.Err))
			return "", &TerminalError{Attempts: attempt, Last: result.Err}
		}

		last = result.Err
		c.logger.Warn("Completion attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", c.attempts),
			zap.Error(result.Err))

		if attempt < c.attempts {
			if err := c.sleep(ctx, time.Duration(attempt)*c.baseDelay); err != nil {
				return "", &TerminalError{Attempts: attempt, Last: err}
			}
		}
	}

	c.logger.Error("Completion retries exhausted",
		zap.Int("attempts", c.attempts),
		zap.Error(last))
	return "", &TerminalError{Attempts: c.attempts, Last: last}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
