package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/internal/view"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"go.uber.org/multierr"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = pkgerrors.New(pkgerrors.CodeConflict, "session closed")

// collection is one store plus the saver persisting it.
type collection struct {
	store  *lineitem.Store
	saver  *persistence.Saver
	remote *persistence.RemoteAdapter
}

// Session owns one shopper's cart and wishlist. Every operation mutates the
// in-memory store, queues a save, renders the new view and then notifies.
// Operations on one session are serialized so saves are queued in mutation
// order.
type Session struct {
	id        string
	backend   *Backend
	projector *view.Projector
	renderer  view.Renderer
	sink      notify.Sink
	logg      *logger.Logger

	// bg carries logger fields for the savers and outlives any request.
	bg context.Context

	mu       sync.Mutex
	identity persistence.Identity
	cart     collection
	wishlist collection
	closed   bool
	// absorbed holds the anonymous session ids already merged into this one.
	absorbed map[string]struct{}

	// absorbMu serializes merges of other sessions into this one.
	absorbMu sync.Mutex
}

type sessionConfig struct {
	id        string
	identity  persistence.Identity
	backend   *Backend
	projector *view.Projector
	renderer  view.Renderer
	sink      notify.Sink
	logg      *logger.Logger
	storeOpts []lineitem.Option
}

func openSession(ctx context.Context, cfg sessionConfig) (*Session, error) {
	if cfg.logg == nil {
		cfg.logg = logger.Nop()
	}
	if cfg.projector == nil {
		cfg.projector = view.NewProjector()
	}
	if cfg.renderer == nil {
		cfg.renderer = view.NopRenderer
	}
	if cfg.sink == nil {
		cfg.sink = notify.Discard
	}

	bg := cfg.logg.WithSessionID(context.Background(), cfg.id)
	if !cfg.identity.IsZero() {
		bg = cfg.logg.WithUserID(bg, cfg.identity.UserID)
	}

	s := &Session{
		id:        cfg.id,
		backend:   cfg.backend,
		projector: cfg.projector,
		renderer:  cfg.renderer,
		sink:      cfg.sink,
		logg:      cfg.logg,
		bg:        bg,
		identity:  cfg.identity,
		cart:      collection{store: lineitem.New(lineitem.KindCart, cfg.storeOpts...)},
		wishlist:  collection{store: lineitem.New(lineitem.KindWishlist, cfg.storeOpts...)},
		absorbed:  make(map[string]struct{}),
	}

	for _, c := range []*collection{&s.cart, &s.wishlist} {
		if err := s.attach(ctx, c, false); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
	}
	return s, nil
}

// attach loads c from the adapter matching the session identity and starts
// its saver. With merge set the local slot is folded into the remote one.
func (s *Session) attach(ctx context.Context, c *collection, merge bool) error {
	kind := c.store.Kind()
	kctx := s.logg.WithStoreKind(ctx, string(kind))

	adapter, remote, err := s.backend.adapter(kctx, kind, s.id, s.identity, s.sink)
	if err != nil {
		return err
	}

	var items []lineitem.LineItem
	if merge && remote != nil {
		items, err = remote.MergeLocal(kctx)
	} else {
		items, err = adapter.Load(kctx)
	}
	if err != nil {
		s.logg.WarnErr(kctx, "loading collection failed, starting empty", err)
	}
	c.store.Replace(items)
	c.remote = remote
	c.saver = s.backend.saver(s.logg.WithStoreKind(s.bg, string(kind)), kind, adapter)
	return nil
}

func (s *Session) ID() string { return s.id }

// Identity returns the signed-in shopper, if any.
func (s *Session) Identity() (persistence.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, !s.identity.IsZero()
}

// Authenticate switches the session to the shopper's remote collections and
// merges whatever the anonymous session held into them.
func (s *Session) Authenticate(ctx context.Context, identity persistence.Identity) error {
	if identity.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.identity.IsZero() {
		if s.identity.UserID == identity.UserID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "session already belongs to another user")
	}

	ctx = s.logg.WithUserID(ctx, identity.UserID)
	for _, c := range []*collection{&s.cart, &s.wishlist} {
		if err := c.saver.Close(ctx); err != nil {
			s.logg.WarnErr(ctx, "flushing anonymous collection before login", err)
		}
	}

	s.identity = identity
	s.bg = s.logg.WithUserID(s.bg, identity.UserID)
	var errs error
	for _, c := range []*collection{&s.cart, &s.wishlist} {
		if err := s.attach(ctx, c, true); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	s.absorbed[s.id] = struct{}{}

	s.renderer.Render(ctx, s.projector.ProjectStore(s.cart.store))
	s.renderer.Render(ctx, s.projector.ProjectStore(s.wishlist.store))
	s.logg.Info(ctx, "session authenticated")
	return nil
}

// hasAbsorbed reports whether the anonymous session id was already merged in.
func (s *Session) hasAbsorbed(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.absorbed[sessionID]
	return ok
}

// absorb merges another anonymous session into this signed-in one. When anon
// is live it is closed and its in-memory collections are used; otherwise the
// collections are read from its device slot. The anonymous slot is cleared
// once the merged collections have been written.
func (s *Session) absorb(ctx context.Context, sessionID string, anon *Session) error {
	s.absorbMu.Lock()
	defer s.absorbMu.Unlock()
	if anon == nil && s.hasAbsorbed(sessionID) {
		return nil
	}

	// The session's own id names its fallback slot, which is never cleared here.
	ownSlot := sessionID == s.id
	incoming := make(map[lineitem.Kind][]lineitem.LineItem, 2)
	switch {
	case anon != nil:
		if err := anon.Close(ctx); err != nil {
			s.logg.WarnErr(ctx, "closing anonymous session before merge", err)
		}
		incoming[lineitem.KindCart] = anon.cart.store.Items()
		incoming[lineitem.KindWishlist] = anon.wishlist.store.Items()
	case !ownSlot:
		for _, kind := range []lineitem.Kind{lineitem.KindCart, lineitem.KindWishlist} {
			items, err := s.backend.localAdapter(kind, sessionID).Load(ctx)
			if err != nil {
				return err
			}
			incoming[kind] = items
		}
	}

	merged, err := s.mergeIn(ctx, incoming)
	if err != nil {
		return err
	}
	if merged {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}
	if !ownSlot && (merged || anon != nil) {
		for _, kind := range []lineitem.Kind{lineitem.KindCart, lineitem.KindWishlist} {
			if err := s.backend.localAdapter(kind, sessionID).Clear(ctx); err != nil {
				s.logg.WarnErr(ctx, "clearing anonymous collection after merge", err)
			}
		}
	}

	// Ids with nothing to merge are not remembered; their slot is re-read.
	if merged || ownSlot {
		s.mu.Lock()
		s.absorbed[sessionID] = struct{}{}
		s.mu.Unlock()
	}
	if merged {
		s.logg.Info(s.logg.WithField(ctx, "merged_session_id", sessionID), "anonymous session merged")
	}
	return nil
}

// mergeIn folds incoming rows into the live collections and queues saves.
func (s *Session) mergeIn(ctx context.Context, incoming map[lineitem.Kind][]lineitem.LineItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}

	var (
		merged bool
		errs   error
	)
	for _, c := range []*collection{&s.cart, &s.wishlist} {
		items := incoming[c.store.Kind()]
		if len(items) == 0 {
			continue
		}
		c.store.Replace(persistence.Merge(c.store.Items(), items))
		_, err := s.commit(ctx, c, true)
		errs = multierr.Append(errs, err)
		merged = true
	}
	return merged, errs
}

// AddToCart adds quantity units of item. Quantities below one add a single unit.
func (s *Session) AddToCart(ctx context.Context, item lineitem.LineItem, quantity int) (view.View, error) {
	if err := validateItem(item); err != nil {
		return view.View{}, err
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	change := s.cart.store.Add(item, quantity)
	v, err := s.commit(ctx, &s.cart, change.Changed())
	switch change.Type {
	case lineitem.ChangeAdded:
		s.emit(ctx, notify.ItemAdded(change.Item.Name))
	case lineitem.ChangeIncremented:
		s.emit(ctx, notify.CartQuantityUpdated(change.Item.Name))
	}
	return v, err
}

// ChangeQuantity applies delta to a cart row; dropping below one removes it.
func (s *Session) ChangeQuantity(ctx context.Context, key lineitem.Key, delta int) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	current, ok := s.cart.store.Get(key)
	if !ok {
		return view.View{}, notInCart(key)
	}
	change := s.cart.store.Add(current, delta)
	v, err := s.commit(ctx, &s.cart, change.Changed())
	s.emitQuantityChange(ctx, change)
	return v, err
}

// SetQuantity overwrites a cart row's quantity; values below one remove it.
func (s *Session) SetQuantity(ctx context.Context, key lineitem.Key, quantity int) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	if !s.cart.store.Contains(key) {
		if quantity < 1 {
			return s.projector.ProjectStore(s.cart.store), nil
		}
		return view.View{}, notInCart(key)
	}
	change := s.cart.store.SetQuantity(key, quantity)
	v, err := s.commit(ctx, &s.cart, change.Changed())
	s.emitQuantityChange(ctx, change)
	return v, err
}

// RemoveFromCart deletes a cart row. Removing an absent row changes nothing.
func (s *Session) RemoveFromCart(ctx context.Context, key lineitem.Key) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	change := s.cart.store.Remove(key)
	v, err := s.commit(ctx, &s.cart, change.Changed())
	if change.Changed() {
		s.emit(ctx, notify.ItemRemoved(change.Item.Name))
	}
	return v, err
}

// ToggleWishlist adds item to the wishlist, or removes it if already there.
func (s *Session) ToggleWishlist(ctx context.Context, item lineitem.LineItem) (view.View, error) {
	if err := validateItem(item); err != nil {
		return view.View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	if s.wishlist.store.Contains(item.Key()) {
		change := s.wishlist.store.Remove(item.Key())
		v, err := s.commit(ctx, &s.wishlist, change.Changed())
		s.emit(ctx, notify.WishlistRemoved())
		return v, err
	}
	change := s.wishlist.store.Add(item, 1)
	v, err := s.commit(ctx, &s.wishlist, change.Changed())
	s.emit(ctx, notify.WishlistAdded())
	return v, err
}

// AddToWishlist adds item unless it is already wishlisted.
func (s *Session) AddToWishlist(ctx context.Context, item lineitem.LineItem) (view.View, error) {
	if err := validateItem(item); err != nil {
		return view.View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	change := s.wishlist.store.Add(item, 1)
	v, err := s.commit(ctx, &s.wishlist, change.Changed())
	if change.Type == lineitem.ChangeAdded {
		s.emit(ctx, notify.WishlistAdded())
	}
	return v, err
}

// RemoveFromWishlist deletes a wishlist row if present.
func (s *Session) RemoveFromWishlist(ctx context.Context, key lineitem.Key) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	change := s.wishlist.store.Remove(key)
	v, err := s.commit(ctx, &s.wishlist, change.Changed())
	if change.Changed() {
		s.emit(ctx, notify.WishlistRemoved())
	}
	return v, err
}

// MoveToCart moves one wishlisted row into the cart and returns the cart view.
func (s *Session) MoveToCart(ctx context.Context, key lineitem.Key) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	src, dst := s.wishlist.store.TransferTo(s.cart.store, key)
	if !src.Changed() {
		return view.View{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not in wishlist").
			WithDetails(map[string]string{"product_id": key.ProductID})
	}
	_, wErr := s.commit(ctx, &s.wishlist, true)
	v, cErr := s.commit(ctx, &s.cart, dst.Changed())
	s.emit(ctx, notify.ItemMoved(src.Item.Name))
	return v, multierr.Append(wErr, cErr)
}

// MoveAllToCart moves every wishlisted row into the cart.
func (s *Session) MoveAllToCart(ctx context.Context) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	moved := 0
	for _, key := range s.wishlist.store.Keys() {
		if src, _ := s.wishlist.store.TransferTo(s.cart.store, key); src.Changed() {
			moved++
		}
	}
	_, wErr := s.commit(ctx, &s.wishlist, moved > 0)
	v, cErr := s.commit(ctx, &s.cart, moved > 0)
	if moved > 0 {
		s.emit(ctx, notify.AllMoved())
	}
	return v, multierr.Append(wErr, cErr)
}

// Checkout validates the cart. An empty cart is rejected without any state
// change; otherwise the cart view to check out is returned.
func (s *Session) Checkout(ctx context.Context) (view.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view.View{}, ErrSessionClosed
	}

	v := s.projector.ProjectStore(s.cart.store)
	if v.Empty {
		s.emit(ctx, notify.CheckoutBlocked())
		return v, pkgerrors.New(pkgerrors.CodeValidation, "Your cart is empty!")
	}
	s.emit(ctx, notify.CheckoutReady())
	return v, nil
}

func (s *Session) CartView() view.View {
	return s.projector.ProjectStore(s.cart.store)
}

func (s *Session) WishlistView() view.View {
	return s.projector.ProjectStore(s.wishlist.store)
}

// Flush waits until both collections have been written.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	cart, wishlist := s.cart.saver, s.wishlist.saver
	s.mu.Unlock()

	var errs error
	for _, sv := range []*persistence.Saver{cart, wishlist} {
		if sv != nil {
			errs = multierr.Append(errs, sv.Flush(ctx))
		}
	}
	return errs
}

// Close flushes pending saves and stops the savers. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	for _, c := range []*collection{&s.cart, &s.wishlist} {
		if c.saver != nil {
			errs = multierr.Append(errs, c.saver.Close(ctx))
		}
	}
	return errs
}

// commit queues a save when the store changed and renders its view.
func (s *Session) commit(ctx context.Context, c *collection, changed bool) (view.View, error) {
	v := s.projector.ProjectStore(c.store)
	if !changed {
		return v, nil
	}

	var err error
	if serr := c.saver.Submit(c.store.Items()); serr != nil {
		s.logg.Error(s.logg.WithStoreKind(ctx, string(c.store.Kind())), "queueing save failed", serr)
		s.emit(ctx, notify.OperationFailed())
		if errors.Is(serr, persistence.ErrSaverClosed) {
			err = ErrSessionClosed
		} else {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, serr, "queue save")
		}
	}
	s.renderer.Render(ctx, v)
	return v, err
}

func (s *Session) emit(ctx context.Context, n notify.Notification) {
	s.sink.Emit(ctx, n)
}

func (s *Session) emitQuantityChange(ctx context.Context, change lineitem.Change) {
	switch change.Type {
	case lineitem.ChangeRemoved:
		s.emit(ctx, notify.ItemRemoved(change.Item.Name))
	case lineitem.ChangeIncremented, lineitem.ChangeDecremented, lineitem.ChangeUpdated:
		s.emit(ctx, notify.QuantityChanged(change.Item.Name))
	}
}

func validateItem(item lineitem.LineItem) error {
	if item.Key().IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if item.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if item.OriginalUnitPrice.Valid && item.OriginalUnitPrice.Decimal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "original price must not be negative")
	}
	return nil
}

func notInCart(key lineitem.Key) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").
		WithDetails(map[string]string{"product_id": key.ProductID, "size": key.Size, "color": key.Color})
}
