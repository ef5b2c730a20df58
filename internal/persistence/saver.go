package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/sethvargo/go-retry"
)

const (
	defaultSaveAttempts  = 3
	defaultSaveBaseDelay = 200 * time.Millisecond
	defaultSaveMaxDelay  = 5 * time.Second
)

var (
	// ErrSaverClosed is returned by Submit after Close.
	ErrSaverClosed = errors.New("saver closed")

	errSuperseded = errors.New("snapshot superseded")
)

// SaverConfig wires a Saver.
type SaverConfig struct {
	Name        string
	Adapter     Adapter
	Logger      *logger.Logger
	Metrics     *metrics.PersistenceMetrics
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Saver writes snapshots of one collection in the background. At most one
// write is in flight; snapshots submitted meanwhile are coalesced so only the
// newest is written next. The last snapshot submitted is always the last one
// written.
type Saver struct {
	name        string
	adapter     Adapter
	logg        *logger.Logger
	metrics     *metrics.PersistenceMetrics
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    []lineitem.LineItem
	hasPending bool
	inflight   bool
	closed     bool
	idle       chan struct{}
	lastErr    error

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewSaver starts the background writer. ctx supplies values such as logger
// fields; cancelling it does not stop the saver, Close does.
func NewSaver(ctx context.Context, cfg SaverConfig) *Saver {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultSaveAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultSaveBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultSaveMaxDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	idle := make(chan struct{})
	close(idle)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Saver{
		name:        cfg.Name,
		adapter:     cfg.Adapter,
		logg:        cfg.Logger,
		metrics:     cfg.Metrics,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		ctx:         runCtx,
		cancel:      cancel,
		idle:        idle,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit queues a snapshot and returns immediately.
func (s *Saver) Submit(items []lineitem.LineItem) error {
	snapshot := append([]lineitem.LineItem(nil), items...)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSaverClosed
	}
	if s.hasPending {
		s.metrics.IncCoalesced(s.name)
	}
	if !s.hasPending && !s.inflight {
		s.idle = make(chan struct{})
	}
	s.pending = snapshot
	s.hasPending = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush waits until every submitted snapshot has been written or abandoned
// and returns the error of the last write.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close flushes outstanding work and stops the writer. When ctx expires first
// the in-flight write is cancelled.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	flushErr := s.Flush(ctx)
	close(s.stop)
	if ctx.Err() != nil {
		s.cancel()
	}
	<-s.done
	s.cancel()
	return flushErr
}

func (s *Saver) run() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
		case <-s.stop:
			return
		}
		for {
			snapshot, ok := s.take()
			if !ok {
				break
			}
			s.write(snapshot)
		}
	}
}

func (s *Saver) take() ([]lineitem.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPending {
		s.inflight = false
		select {
		case <-s.idle:
		default:
			close(s.idle)
		}
		return nil, false
	}
	snapshot := s.pending
	s.pending = nil
	s.hasPending = false
	s.inflight = true
	return snapshot, true
}

func (s *Saver) newerPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

func (s *Saver) write(snapshot []lineitem.LineItem) {
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1),
		retry.WithCappedDuration(s.maxDelay, retry.NewExponential(s.baseDelay)))

	attempt := 0
	start := time.Now()
	err := retry.Do(s.ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			if s.newerPending() {
				return errSuperseded
			}
			s.metrics.IncRetry(s.name)
		}
		attempt++
		if err := s.adapter.Save(ctx, snapshot); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if errors.Is(err, errSuperseded) {
		s.logg.Debug(s.ctx, "save superseded by newer snapshot")
		err = nil
	}
	s.metrics.ObserveSave(s.name, time.Since(start), err)
	if err != nil {
		s.logg.Error(s.ctx, "saving "+s.name+" collection", err)
	}

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
