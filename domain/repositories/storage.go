package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/satriahrh/agribot/domain/entities"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps live sessions. Sessions are never persisted.
type SessionRepository interface {
	Create(ctx context.Context, language entities.LanguageTag) (*entities.Session, error)
	Get(ctx context.Context, id string) (*entities.Session, error)
	Delete(ctx context.Context, id string) error
	// ExpireIdle removes sessions inactive for longer than ttl and returns how many were removed
	ExpireIdle(ctx context.Context, ttl time.Duration) (int, error)
	Count() int
}
