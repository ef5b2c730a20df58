package main

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	fsstore "github.com/angelmondragon/storefront-backend/internal/persistence/firestore"
	pgstore "github.com/angelmondragon/storefront-backend/internal/persistence/postgres"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/firestore"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// resources tracks what main has opened so shutdown can release it in reverse.
type resources struct {
	logg    *logger.Logger
	closers []func() error
	pingers map[string]controllers.Pinger
}

func newResources(logg *logger.Logger) *resources {
	return &resources{logg: logg, pingers: map[string]controllers.Pinger{}}
}

func (r *resources) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

func (r *resources) closeAll(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logg.Error(ctx, "error releasing resource", err)
		}
	}
}

func buildSlot(ctx context.Context, cfg *config.Config, res *resources) (persistence.Slot, error) {
	switch cfg.Persistence.LocalDriver {
	case config.LocalDriverFile:
		return persistence.NewFileSlot(cfg.Persistence.FileDir)
	case config.LocalDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, res.logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		res.onClose(client.Close)
		res.pingers["redis"] = client
		return persistence.NewRedisSlot(client, cfg.Redis.SlotTTL), nil
	default:
		return persistence.NewMemorySlot(), nil
	}
}

func buildDocuments(ctx context.Context, cfg *config.Config, res *resources) (persistence.DocumentStore, error) {
	switch cfg.Persistence.RemoteDriver {
	case config.RemoteDriverPostgres:
		client, err := db.New(ctx, cfg.DB, res.logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		res.onClose(client.Close)
		res.pingers["db"] = client
		if err := migrate.MaybeRunDev(ctx, cfg, res.logg, client); err != nil {
			return nil, fmt.Errorf("dev migrations: %w", err)
		}
		return pgstore.NewStore(client)
	case config.RemoteDriverFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCP, res.logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap firestore: %w", err)
		}
		res.onClose(client.Close)
		return fsstore.NewStore(client, cfg.Firestore)
	default:
		return persistence.NewMemoryDocuments(), nil
	}
}

func buildVerifier(ctx context.Context, cfg *config.Config) (pkgAuth.Verifier, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderJWT:
		return pkgAuth.NewJWTVerifier(cfg.JWT)
	case config.AuthProviderFirebase:
		return pkgAuth.NewFirebaseVerifier(ctx, cfg.GCP)
	default:
		return nil, nil
	}
}

// buildSink always logs notifications and also publishes them when a topic is configured.
func buildSink(ctx context.Context, cfg *config.Config, res *resources) (notify.Sink, error) {
	sinks := notify.Multi{notify.NewLogSink(res.logg)}
	if cfg.Notifications.PubSubTopic == "" {
		return sinks, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.Notifications, res.logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	res.onClose(client.Close)
	res.pingers["pubsub"] = client
	published := notify.NewPubSubSink(client.NotificationPublisher(), res.logg)
	res.onClose(func() error {
		ackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return published.Close(ackCtx)
	})
	return append(sinks, published), nil
}
