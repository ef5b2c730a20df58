package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
)

// ErrDocumentNotFound is returned by a DocumentStore when the user has no
// document yet.
var ErrDocumentNotFound = errors.New("document not found")

// Document is the remote record for one user's collection.
type Document struct {
	UserID    string
	Kind      lineitem.Kind
	Items     []Record
	UpdatedAt time.Time
}

// DocumentStore reads and writes one document per user and kind.
type DocumentStore interface {
	ReadDocument(ctx context.Context, kind lineitem.Kind, userID string) (Document, error)
	WriteDocument(ctx context.Context, doc Document) error
}

// RemoteConfig wires a RemoteAdapter.
type RemoteConfig struct {
	Kind     lineitem.Kind
	Docs     DocumentStore
	Identity IdentitySource
	Local    *LocalAdapter
	Sink     notify.Sink
	Logger   *logger.Logger
	Metrics  *metrics.PersistenceMetrics
	Timeout  time.Duration
	Now      func() time.Time
}

// RemoteAdapter keeps a collection in the signed-in user's remote document
// and falls back to the local slot whenever the remote side fails.
type RemoteAdapter struct {
	kind     lineitem.Kind
	docs     DocumentStore
	identity IdentitySource
	local    *LocalAdapter
	sink     notify.Sink
	logg     *logger.Logger
	metrics  *metrics.PersistenceMetrics
	timeout  time.Duration
	now      func() time.Time
}

func NewRemoteAdapter(cfg RemoteConfig) (*RemoteAdapter, error) {
	if cfg.Docs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if cfg.Identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity source required")
	}
	if cfg.Local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "local fallback adapter required")
	}
	a := &RemoteAdapter{
		kind:     cfg.Kind,
		docs:     cfg.Docs,
		identity: cfg.Identity,
		local:    cfg.Local,
		sink:     cfg.Sink,
		logg:     cfg.Logger,
		metrics:  cfg.Metrics,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
	}
	if a.sink == nil {
		a.sink = notify.Discard
	}
	if a.logg == nil {
		a.logg = logger.Nop()
	}
	if a.now == nil {
		a.now = func() time.Time { return time.Now().UTC() }
	}
	return a, nil
}

// Load reads the user's document. Not-found falls back to the local slot
// silently; any other failure falls back with a soft notification.
func (a *RemoteAdapter) Load(ctx context.Context) ([]lineitem.LineItem, error) {
	items, err := a.readRemote(ctx)
	if errors.Is(err, ErrDocumentNotFound) {
		items, _ := a.local.Load(ctx)
		return items, nil
	}
	if err != nil {
		return a.fallbackLoad(ctx, err)
	}
	return items, nil
}

func (a *RemoteAdapter) readRemote(ctx context.Context) ([]lineitem.LineItem, error) {
	id, ok := a.identity.CurrentIdentity(ctx)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no signed-in identity")
	}

	rctx, cancel := a.withTimeout(ctx)
	defer cancel()
	doc, err := a.docs.ReadDocument(rctx, a.kind, id.UserID)
	if pkgerrors.HasCode(err, pkgerrors.CodeDeserialization) {
		a.logg.WarnErr(a.logg.WithUserID(ctx, id.UserID), "discarding unreadable remote document", err)
		return []lineitem.LineItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := FromRecords(doc.Items)
	if err != nil {
		a.logg.WarnErr(a.logg.WithUserID(ctx, id.UserID), "discarding unreadable remote collection", err)
		return []lineitem.LineItem{}, nil
	}
	return items, nil
}

func (a *RemoteAdapter) fallbackLoad(ctx context.Context, cause error) ([]lineitem.LineItem, error) {
	a.logg.WarnErr(a.logg.WithStoreKind(ctx, string(a.kind)), "remote load failed, using local collection", cause)
	a.metrics.IncFallback(string(a.kind), "load")
	a.sink.Emit(ctx, notify.RemoteUnavailable())
	items, err := a.local.Load(ctx)
	if err != nil {
		a.logg.WarnErr(ctx, "local fallback load failed", err)
	}
	return items, nil
}

// Save writes the user's document. On failure the collection is written to
// the local slot instead; an error is returned only when both writes fail.
func (a *RemoteAdapter) Save(ctx context.Context, items []lineitem.LineItem) error {
	if err := a.writeRemote(ctx, items); err != nil {
		return a.fallbackSave(ctx, items, err)
	}
	return nil
}

func (a *RemoteAdapter) writeRemote(ctx context.Context, items []lineitem.LineItem) error {
	id, ok := a.identity.CurrentIdentity(ctx)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "no signed-in identity")
	}

	rctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.docs.WriteDocument(rctx, Document{
		UserID:    id.UserID,
		Kind:      a.kind,
		Items:     ToRecords(items),
		UpdatedAt: a.now(),
	})
}

func (a *RemoteAdapter) fallbackSave(ctx context.Context, items []lineitem.LineItem, cause error) error {
	a.metrics.IncFallback(string(a.kind), "save")
	if err := a.local.Save(ctx, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, multierr.Append(cause, err), "save collection")
	}
	a.logg.WarnErr(a.logg.WithStoreKind(ctx, string(a.kind)), "remote save failed, saved locally", cause)
	a.sink.Emit(ctx, notify.RemoteUnavailable())
	return nil
}

func (a *RemoteAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Select picks the adapter for a session: remote when an identity is
// present, local otherwise.
func Select(ctx context.Context, identity IdentitySource, remote, local Adapter) Adapter {
	if identity != nil && remote != nil {
		if _, ok := identity.CurrentIdentity(ctx); ok {
			return remote
		}
	}
	return local
}

// MemoryDocuments is an in-process DocumentStore.
type MemoryDocuments struct {
	mu   sync.RWMutex
	docs map[string]Document
	fail error
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: make(map[string]Document)}
}

func memoryKey(kind lineitem.Kind, userID string) string {
	return string(kind) + "/" + userID
}

func (m *MemoryDocuments) ReadDocument(_ context.Context, kind lineitem.Kind, userID string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return Document{}, m.fail
	}
	doc, ok := m.docs[memoryKey(kind, userID)]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	doc.Items = append([]Record(nil), doc.Items...)
	return doc, nil
}

func (m *MemoryDocuments) WriteDocument(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	doc.Items = append([]Record(nil), doc.Items...)
	m.docs[memoryKey(doc.Kind, doc.UserID)] = doc
	return nil
}

// SetFailure makes every subsequent call return err; nil restores service.
func (m *MemoryDocuments) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}
