package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/repositories"
)

// SessionCleanupService drops sessions that have been idle for too long
type SessionCleanupService struct {
	sessionRepo repositories.SessionRepository
	idleTTL     time.Duration
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
	done        chan struct{}
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(sessionRepo repositories.SessionRepository, idleTTL, interval time.Duration, logger *zap.Logger) *SessionCleanupService {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
		logger.Info("Using default session idle TTL", zap.Duration("idleTTL", idleTTL))
	}
	if interval <= 0 {
		interval = 10 * time.Minute
		logger.Info("Using default session cleanup interval", zap.Duration("interval", interval))
	}
	return &SessionCleanupService{
		sessionRepo: sessionRepo,
		idleTTL:     idleTTL,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started",
		zap.Duration("idleTTL", s.idleTTL),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service and waits for the loop to exit
func (s *SessionCleanupService) Stop() {
	close(s.stopChan)
	<-s.done
	s.logger.Info("Session cleanup service stopped")
}

// cleanupLoop runs the cleanup process periodically
func (s *SessionCleanupService) cleanupLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup performs the actual cleanup of expired sessions
func (s *SessionCleanupService) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessionRepo.ExpireIdle(ctx, s.idleTTL)
	if err != nil {
		s.logger.Error("Failed to expire sessions", zap.Error(err))
		return
	}

	if removed > 0 {
		s.logger.Info("Expired idle sessions",
			zap.Int("removed", removed),
			zap.Int("remaining", s.sessionRepo.Count()))
	}
}
