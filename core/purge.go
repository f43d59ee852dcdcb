package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Purger hard-deletes records that were soft-deleted more than retention ago.
// It satisfies cron.Job.
type Purger struct {
	ctx       context.Context //nolint:containedctx
	repo      Repository
	retention time.Duration
	now       func() time.Time
}

func NewPurger(ctx context.Context, repo Repository, retention time.Duration) *Purger {
	return &Purger{ctx: ctx, repo: repo, retention: retention, now: time.Now}
}

func (p *Purger) Run() {
	_, _ = p.Purge(p.ctx)
}

func (p *Purger) Purge(ctx context.Context) (int64, error) {
	logger := log.Ctx(ctx).With().Str("component", "purger").Logger()

	before := p.now().Add(-p.retention)

	n, err := p.repo.PurgeDeleted(ctx, before)
	if err != nil {
		logger.Error().Err(err).Time("before", before).Msg("failed to purge deleted entries")
		return 0, err
	}

	logger.Info().Int64("purged", n).Time("before", before).Msg("deleted entries purged")

	return n, nil
}
