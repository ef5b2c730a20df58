package notify

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Sink receives notifications. Implementations must not block the caller for long.
type Sink interface {
	Emit(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Emit(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(context.Context, Notification) {})

// Multi fans a notification out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, n)
		}
	}
}

// Timed stamps the dismiss timeout on notifications that do not carry one.
func Timed(next Sink, dismissAfter time.Duration) Sink {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return SinkFunc(func(ctx context.Context, n Notification) {
		if n.DismissAfter <= 0 {
			n.DismissAfter = dismissAfter
		}
		next.Emit(ctx, n)
	})
}

// LogSink writes notifications through the structured logger.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSink{logg: logg}
}

func (s *LogSink) Emit(ctx context.Context, n Notification) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"notification_kind":  string(n.Kind),
		"notification_level": string(n.Level),
	})
	switch n.Level {
	case LevelError, LevelSoft:
		s.logg.Warn(ctx, n.Message)
	default:
		s.logg.Debug(ctx, n.Message)
	}
}

// Recorder keeps notifications in memory until drained.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Emit(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Drain returns the recorded notifications and resets the recorder.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Snapshot returns a copy without resetting.
func (r *Recorder) Snapshot() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

type recorderKey struct{}

// WithRecorder attaches a fresh recorder to ctx so ContextSink can capture
// notifications emitted while serving one call.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// RecorderFrom returns the recorder attached to ctx, if any.
func RecorderFrom(ctx context.Context) (*Recorder, bool) {
	if ctx == nil {
		return nil, false
	}
	rec, ok := ctx.Value(recorderKey{}).(*Recorder)
	return rec, ok && rec != nil
}

// ContextSink forwards to the recorder attached to the call context.
var ContextSink Sink = SinkFunc(func(ctx context.Context, n Notification) {
	if rec, ok := RecorderFrom(ctx); ok {
		rec.Emit(ctx, n)
	}
})
