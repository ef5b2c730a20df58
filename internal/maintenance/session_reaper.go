package maintenance

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const sessionReaperName = "session-reaper"

type idleEvictor interface {
	EvictIdle(ctx context.Context, idle time.Duration) (int, error)
}

// SessionReaper flushes and drops sessions that have not been used for IdleTTL.
type SessionReaper struct {
	sessions idleEvictor
	idle     time.Duration
	metrics  *metrics.JobMetrics
	logg     *logger.Logger
}

func NewSessionReaper(sessions idleEvictor, idle time.Duration, m *metrics.JobMetrics, logg *logger.Logger) *SessionReaper {
	if logg == nil {
		logg = logger.Nop()
	}
	return &SessionReaper{sessions: sessions, idle: idle, metrics: m, logg: logg}
}

func (r *SessionReaper) Name() string { return sessionReaperName }

func (r *SessionReaper) Run(ctx context.Context) error {
	n, err := r.sessions.EvictIdle(ctx, r.idle)
	r.metrics.AddEvicted(n)
	if n > 0 {
		r.logg.Info(r.logg.WithField(ctx, "evicted", n), "idle sessions evicted")
	}
	return err
}
