package storefront

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// Backend builds the persistence adapters and savers for sessions.
type Backend struct {
	// Namespace prefixes every local slot key.
	Namespace string
	// Slot holds anonymous and fallback collections.
	Slot persistence.Slot
	// Documents holds signed-in users' collections. Nil disables remote
	// persistence and every session stays local.
	Documents persistence.DocumentStore

	RemoteTimeout time.Duration
	SaveAttempts  int
	SaveBaseDelay time.Duration
	SaveMaxDelay  time.Duration

	Metrics *metrics.PersistenceMetrics
	Logger  *logger.Logger
}

func (b *Backend) logger() *logger.Logger {
	if b.Logger == nil {
		return logger.Nop()
	}
	return b.Logger
}

func (b *Backend) localAdapter(kind lineitem.Kind, owner string) *persistence.LocalAdapter {
	return persistence.NewLocalAdapter(b.Slot, persistence.SlotKey(b.Namespace, kind, owner), b.logger())
}

// adapter picks the persistence for one collection: remote when an identity
// is present and a document store is configured, the local slot otherwise.
func (b *Backend) adapter(ctx context.Context, kind lineitem.Kind, owner string, identity persistence.Identity, sink notify.Sink) (persistence.Adapter, *persistence.RemoteAdapter, error) {
	local := b.localAdapter(kind, owner)
	if b.Documents == nil {
		return local, nil, nil
	}
	source := persistence.StaticIdentity(identity)
	remote, err := persistence.NewRemoteAdapter(persistence.RemoteConfig{
		Kind:     kind,
		Docs:     b.Documents,
		Identity: source,
		Local:    local,
		Sink:     sink,
		Logger:   b.logger(),
		Metrics:  b.Metrics,
		Timeout:  b.RemoteTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	if persistence.Select(ctx, source, remote, local) == persistence.Adapter(remote) {
		return remote, remote, nil
	}
	return local, nil, nil
}

func (b *Backend) saver(ctx context.Context, kind lineitem.Kind, adapter persistence.Adapter) *persistence.Saver {
	return persistence.NewSaver(ctx, persistence.SaverConfig{
		Name:        string(kind),
		Adapter:     adapter,
		Logger:      b.logger(),
		Metrics:     b.Metrics,
		MaxAttempts: b.SaveAttempts,
		BaseDelay:   b.SaveBaseDelay,
		MaxDelay:    b.SaveMaxDelay,
	})
}
