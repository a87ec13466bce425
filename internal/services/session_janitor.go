package services

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// VerdictCache is the sweep surface of the token validation service.
type VerdictCache interface {
	SweepExpired() int
	CacheSize() int
}

// SessionJanitor periodically evicts stale token verdicts and logs
// cache health. Task failures are logged and swallowed; a broken
// sweep must never take the scheduler down.
type SessionJanitor struct {
	cache  VerdictCache
	logger *zap.Logger
	cron   *cron.Cron
}

func NewSessionJanitor(cache VerdictCache, logger *zap.Logger) *SessionJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &SessionJanitor{
		cache:  cache,
		logger: logger,
		cron:   cron.New(),
	}

	_, _ = j.cron.AddFunc("@every 30m", j.sweep)
	_, _ = j.cron.AddFunc("@every 1h", j.logMetrics)

	return j
}

// Start launches the cron scheduler.
func (j *SessionJanitor) Start() {
	if j == nil || j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("session janitor started")
}

// Stop gracefully stops the scheduler.
func (j *SessionJanitor) Stop(ctx context.Context) {
	if j == nil || j.cron == nil {
		return
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	j.logger.Info("session janitor stopped")
}

func (j *SessionJanitor) sweep() {
	defer j.recover("cache sweep")

	removed := j.cache.SweepExpired()
	if removed > 0 {
		j.logger.Info("cleaned up expired validation cache entries",
			zap.Int("removed", removed),
			zap.Int("remaining", j.cache.CacheSize()))
	}
}

func (j *SessionJanitor) logMetrics() {
	defer j.recover("metrics log")

	j.logger.Info("session health metrics",
		zap.Int("validation_cache_size", j.cache.CacheSize()))
}

func (j *SessionJanitor) recover(task string) {
	if r := recover(); r != nil {
		j.logger.Error("session janitor task panicked",
			zap.String("task", task),
			zap.Any("panic", r))
	}
}
