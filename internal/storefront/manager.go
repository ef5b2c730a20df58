package storefront

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/internal/view"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// Config wires a Manager.
type Config struct {
	Backend   *Backend
	Projector *view.Projector
	Renderer  view.Renderer
	// Sink receives every notification in addition to the per-call recorder.
	Sink         notify.Sink
	DismissAfter time.Duration
	Logger       *logger.Logger
	// StoreOptions apply to every cart and wishlist store.
	StoreOptions []lineitem.Option
	// Now is the clock used for idle tracking.
	Now func() time.Time
}

// Manager keeps live sessions, keyed by anonymous session id and by user id
// once a session signs in. The registry lock only guards the maps; loading,
// merging and flushing happen outside it, with concurrent opens of the same
// key collapsed into one.
type Manager struct {
	backend   *Backend
	projector *view.Projector
	renderer  view.Renderer
	sink      notify.Sink
	logg      *logger.Logger
	storeOpts []lineitem.Option
	now       func() time.Time

	opens singleflight.Group

	mu        sync.Mutex
	anonymous map[string]*Session
	users     map[string]*Session
	lastUsed  map[*Session]time.Time
	closed    bool
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Backend == nil || cfg.Backend.Slot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "persistence backend with a local slot is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Backend.Logger == nil {
		cfg.Backend.Logger = cfg.Logger
	}
	if cfg.Projector == nil {
		cfg.Projector = view.NewProjector()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = view.NopRenderer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		backend:   cfg.Backend,
		projector: cfg.Projector,
		renderer:  cfg.Renderer,
		sink:      notify.Timed(notify.Multi{cfg.Sink, notify.ContextSink}, cfg.DismissAfter),
		logg:      cfg.Logger,
		storeOpts: cfg.StoreOptions,
		now:       cfg.Now,
		anonymous: make(map[string]*Session),
		users:     make(map[string]*Session),
		lastUsed:  make(map[*Session]time.Time),
	}, nil
}

// Session returns the live session for the caller, creating and loading it on
// first use. A signed-in caller gets the user's session, and whatever the
// anonymous session sessionID holds, live or only on the device slot, is
// merged into it once.
func (m *Manager) Session(ctx context.Context, sessionID string, identity persistence.Identity) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" && identity.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if identity.IsZero() {
		return m.anonymousSession(ctx, sessionID)
	}

	s, err := m.userSession(ctx, sessionID, identity)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return s, nil
	}
	anon := m.takeAnonymous(sessionID, s)
	if anon == nil && s.hasAbsorbed(sessionID) {
		return s, nil
	}
	if err := s.absorb(m.logg.WithUserID(ctx, identity.UserID), sessionID, anon); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) anonymousSession(ctx context.Context, sessionID string) (*Session, error) {
	if s, ok, err := m.lookup(m.anonymous, sessionID); ok || err != nil {
		return s, err
	}

	v, err, _ := m.opens.Do("anon:"+sessionID, func() (any, error) {
		if s, ok, err := m.lookup(m.anonymous, sessionID); ok || err != nil {
			return s, err
		}
		s, err := m.open(ctx, sessionID, persistence.Identity{})
		if err != nil {
			return nil, err
		}
		return m.register(ctx, m.anonymous, sessionID, s)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// userSession returns the user's live session. A live anonymous session
// with sessionID is signed in and becomes it; otherwise the user's
// collections are loaded into a new session.
func (m *Manager) userSession(ctx context.Context, sessionID string, identity persistence.Identity) (*Session, error) {
	uid := identity.UserID
	if s, ok, err := m.lookup(m.users, uid); ok || err != nil {
		return s, err
	}

	v, err, _ := m.opens.Do("user:"+uid, func() (any, error) {
		if s, ok, err := m.lookup(m.users, uid); ok || err != nil {
			return s, err
		}

		m.mu.Lock()
		anon := m.anonymous[sessionID]
		m.mu.Unlock()
		if anon != nil && sessionID != "" {
			if err := anon.Authenticate(context.WithoutCancel(ctx), identity); err != nil {
				return nil, err
			}
			m.mu.Lock()
			if m.anonymous[sessionID] == anon {
				delete(m.anonymous, sessionID)
			}
			m.mu.Unlock()
			return m.register(ctx, m.users, uid, anon)
		}

		s, err := m.open(ctx, uid, identity)
		if err != nil {
			return nil, err
		}
		return m.register(ctx, m.users, uid, s)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// lookup returns a live session under key and touches it.
func (m *Manager) lookup(index map[string]*Session, key string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrSessionClosed
	}
	s, ok := index[key]
	if !ok {
		return nil, false, nil
	}
	return m.touch(s), true, nil
}

// takeAnonymous unregisters and returns the live anonymous session with
// sessionID unless it is owner itself.
func (m *Manager) takeAnonymous(sessionID string, owner *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	anon, ok := m.anonymous[sessionID]
	if !ok || anon == owner {
		return nil
	}
	delete(m.anonymous, sessionID)
	delete(m.lastUsed, anon)
	return anon
}

func (m *Manager) open(ctx context.Context, owner string, identity persistence.Identity) (*Session, error) {
	return openSession(m.logg.WithSessionID(context.WithoutCancel(ctx), owner), sessionConfig{
		id:        owner,
		identity:  identity,
		backend:   m.backend,
		projector: m.projector,
		renderer:  m.renderer,
		sink:      m.sink,
		logg:      m.logg,
		storeOpts: m.storeOpts,
	})
}

// register publishes s under key. A manager closed in the meantime closes s.
func (m *Manager) register(ctx context.Context, index map[string]*Session, key string, s *Session) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = s.Close(ctx)
		return nil, ErrSessionClosed
	}
	index[key] = s
	m.touch(s)
	m.mu.Unlock()
	return s, nil
}

// touch records use of s; callers hold m.mu.
func (m *Manager) touch(s *Session) *Session {
	m.lastUsed[s] = m.now()
	return s
}

// Login signs in the anonymous session with sessionID, merging its contents
// into the user's collections.
func (m *Manager) Login(ctx context.Context, sessionID string, identity persistence.Identity) (*Session, error) {
	if identity.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return m.Session(ctx, sessionID, identity)
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.anonymous) + len(m.users)
}

// EvictIdle flushes and closes sessions unused for longer than idle. Their
// collections stay in persistence and are reloaded on the next request.
func (m *Manager) EvictIdle(ctx context.Context, idle time.Duration) (int, error) {
	m.mu.Lock()
	if m.closed || idle <= 0 {
		m.mu.Unlock()
		return 0, nil
	}
	cutoff := m.now().Add(-idle)
	var stale []*Session
	for _, index := range []map[string]*Session{m.anonymous, m.users} {
		for key, s := range index {
			if m.lastUsed[s].Before(cutoff) {
				delete(index, key)
				delete(m.lastUsed, s)
				stale = append(stale, s)
			}
		}
	}
	m.mu.Unlock()

	var errs error
	for _, s := range stale {
		errs = multierr.Append(errs, s.Close(ctx))
	}
	return len(stale), errs
}

// Close flushes and closes every session. Errors from all sessions are combined.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.anonymous)+len(m.users))
	for _, s := range m.anonymous {
		sessions = append(sessions, s)
	}
	for _, s := range m.users {
		sessions = append(sessions, s)
	}
	clear(m.anonymous)
	clear(m.users)
	clear(m.lastUsed)
	m.mu.Unlock()

	var errs error
	for _, s := range sessions {
		errs = multierr.Append(errs, s.Close(ctx))
	}
	if errs != nil {
		m.logg.Error(ctx, "closing sessions", errs)
	}
	return errs
}
