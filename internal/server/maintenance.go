package server

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/repomanager"
	"github.com/robfig/cron/v3"
)

const (
	tokenCleanupSpec   = "@every 1h"
	authLogCleanupSpec = "@daily"
)

// maintenance runs periodic cleanup of expired refresh tokens and old
// auth log entries.
type maintenance struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	authLogRetention time.Duration
	logger           logging.Logger
	now              func() time.Time
}

func newMaintenance(db *sql.DB, m repomanager.RepositoryManager, authLogRetention time.Duration, logger logging.Logger) *maintenance {
	return &maintenance{
		db:               db,
		repomanager:      m,
		authLogRetention: authLogRetention,
		logger:           logger.With("module", "maintenance"),
		now:              time.Now,
	}
}

func (m *maintenance) deleteExpiredTokens(ctx context.Context) {
	n, err := m.repomanager.RefreshTokens(m.db).DeleteExpired(ctx, m.now())
	if err != nil {
		m.logger.Error(ctx, "refresh token cleanup failed", "error", err)
		return
	}
	m.logger.Info(ctx, "refresh token cleanup", "deleted", n)
}

func (m *maintenance) deleteOldAuthLogs(ctx context.Context) {
	if m.authLogRetention <= 0 {
		return
	}
	n, err := m.repomanager.AuthLogs(m.db).DeleteOlderThan(ctx, m.now().Add(-m.authLogRetention))
	if err != nil {
		m.logger.Error(ctx, "auth log cleanup failed", "error", err)
		return
	}
	m.logger.Info(ctx, "auth log cleanup", "deleted", n)
}

// start schedules the jobs. The returned cron must be stopped by the caller.
func (m *maintenance) start(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(tokenCleanupSpec, func() { m.deleteExpiredTokens(ctx) }); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(authLogCleanupSpec, func() { m.deleteOldAuthLogs(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
