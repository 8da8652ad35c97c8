package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// Janitor periodically deletes tokens that can no longer be used: revoked or
// expired refresh tokens and voided or expired verification tokens, once
// they are older than the retention window.
type Janitor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	interval    time.Duration
	retention   time.Duration
	log         logging.Logger
	now         func() time.Time
}

func NewJanitor(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *Janitor {
	return &Janitor{
		db:          db,
		repomanager: m,
		interval:    cfg.CleanupInterval,
		retention:   cfg.CleanupRetention,
		log:         log.With("service", "janitor"),
		now:         time.Now,
	}
}

// RunOnce performs a single purge pass and reports how many rows went.
func (j *Janitor) RunOnce(ctx context.Context) (refresh, verification int64, err error) {
	cutoff := j.now().Add(-j.retention)

	refresh, err = j.repomanager.RefreshTokens(j.db).PurgeStale(ctx, cutoff)
	if err != nil {
		return 0, 0, common.Unavailable(err)
	}
	verification, err = j.repomanager.VerificationTokens(j.db).PurgeStale(ctx, cutoff)
	if err != nil {
		return refresh, 0, common.Unavailable(err)
	}
	return refresh, verification, nil
}

// Run purges every interval until ctx is done. A non-positive interval
// disables the janitor.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.log.Info(ctx, "token cleanup disabled")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r, v, err := j.RunOnce(ctx)
			if err != nil {
				j.log.Error(ctx, "token cleanup failed", "error", err)
				continue
			}
			j.log.Info(ctx, "token cleanup finished", "refresh_tokens", r, "verification_tokens", v)
		}
	}
}
