package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionEvictor удаляет сессии, простаивающие с момента cutoff
type SessionEvictor interface {
	EvictIdle(cutoff time.Time) int
}

// SessionCleanupConfig настройки очистки сессий
type SessionCleanupConfig struct {
	// IdleTimeout время простоя, после которого сессия удаляется
	IdleTimeout time.Duration
	// CleanupInterval период очистки
	CleanupInterval time.Duration
}

// SessionCleanupService периодически удаляет простаивающие сессии тренеров.
// Коллекция и баланс уже сохранены, теряется только список ожидания.
type SessionCleanupService struct {
	sessions SessionEvictor
	logger   *zap.Logger
	config   SessionCleanupConfig
	now      func() time.Time
}

func NewSessionCleanupService(sessions SessionEvictor, logger *zap.Logger, config SessionCleanupConfig) *SessionCleanupService {
	return &SessionCleanupService{
		sessions: sessions,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// Start запускает очистку до отмены ctx
func (s *SessionCleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	s.logger.Info("Starting session cleanup service",
		zap.Duration("interval", s.config.CleanupInterval),
		zap.Duration("idle_timeout", s.config.IdleTimeout))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping session cleanup service")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup выполняет один проход очистки
func (s *SessionCleanupService) runCleanup() int {
	cutoff := s.now().Add(-s.config.IdleTimeout)

	evicted := s.sessions.EvictIdle(cutoff)
	if evicted > 0 {
		s.logger.Info("Evicted idle trainer sessions",
			zap.Int("count", evicted),
			zap.Time("cutoff_time", cutoff))
	} else {
		s.logger.Debug("No idle trainer sessions")
	}

	return evicted
}
