package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultPublishTimeout = 5 * time.Second
	// maxPendingAcks bounds the goroutines waiting on publish results.
	maxPendingAcks = 256
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubSink publishes notifications as JSON messages so other services can
// mirror storefront activity. Emit hands the message to the publisher and
// returns; acknowledgements are awaited in the background.
type PubSubSink struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time

	acks    sync.WaitGroup
	pending chan struct{}
}

// NewPubSubSink wraps a topic publisher. A nil publisher yields nil.
func NewPubSubSink(p *gcppubsub.Publisher, logg *logger.Logger) *PubSubSink {
	if p == nil {
		return nil
	}
	return newPubSubSink(&gcpPublisher{Publisher: p}, logg)
}

func newPubSubSink(pub publisher, logg *logger.Logger) *PubSubSink {
	if logg == nil {
		logg = logger.Nop()
	}
	return &PubSubSink{
		pub:     pub,
		logg:    logg,
		timeout: defaultPublishTimeout,
		now:     func() time.Time { return time.Now().UTC() },
		pending: make(chan struct{}, maxPendingAcks),
	}
}

func (s *PubSubSink) Emit(ctx context.Context, n Notification) {
	if s == nil || s.pub == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logg.Error(ctx, "marshal notification", err)
		return
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind":       string(n.Kind),
			"level":      string(n.Level),
			"emitted_at": s.now().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		cancel()
		s.logg.Warn(ctx, "notification publisher returned no result")
		return
	}

	select {
	case s.pending <- struct{}{}:
	default:
		cancel()
		s.logg.Warn(ctx, "too many unacknowledged notifications, not awaiting result")
		return
	}
	s.acks.Add(1)
	go func() {
		defer s.acks.Done()
		defer func() { <-s.pending }()
		defer cancel()
		if _, err := result.Get(publishCtx); err != nil {
			s.logg.WarnErr(publishCtx, "publish notification", err)
		}
	}()
}

// Close waits for outstanding acknowledgements or until ctx is done.
func (s *PubSubSink) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.acks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
