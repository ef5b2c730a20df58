package lineitem

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChangeType classifies the effect a mutation had on a store.
type ChangeType string

const (
	ChangeNone        ChangeType = "none"
	ChangeAdded       ChangeType = "added"
	ChangeIncremented ChangeType = "incremented"
	ChangeDecremented ChangeType = "decremented"
	ChangeUpdated     ChangeType = "updated"
	ChangeRemoved     ChangeType = "removed"
)

// Change reports what a mutation did. Item is the post-mutation row, or the
// removed row when Type is ChangeRemoved.
type Change struct {
	Type     ChangeType
	Item     LineItem
	Previous int
}

// Changed reports whether the store was modified.
func (c Change) Changed() bool {
	return c.Type != ChangeNone && c.Type != ""
}

// Store is an ordered, key-unique collection of line items. Items keep their
// first-insertion order; quantity updates never move a row.
type Store struct {
	mu     sync.Mutex
	id     uuid.UUID
	kind   Kind
	maxQty int
	items  []LineItem
	now    func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp AddedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithQuantityCap bounds each row's quantity. Zero disables the cap.
func WithQuantityCap(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxQty = n
		}
	}
}

// New builds an empty store. Wishlists hold at most one unit per key.
func New(kind Kind, opts ...Option) *Store {
	s := &Store{
		id:   uuid.New(),
		kind: kind,
		now:  func() time.Time { return time.Now().UTC() },
	}
	if kind == KindWishlist {
		s.maxQty = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ID() uuid.UUID { return s.id }

func (s *Store) Kind() Kind { return s.kind }

// QuantityCap returns the per-row cap, zero when unbounded.
func (s *Store) QuantityCap() int { return s.maxQty }

// Add inserts item or adjusts the quantity of the row sharing its key by delta.
// A row whose quantity drops below one is removed. A non-positive delta for an
// absent key, or re-adding a capped row, is a no-op.
func (s *Store) Add(item LineItem, delta int) Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(item, delta)
}

func (s *Store) addLocked(item LineItem, delta int) Change {
	key := item.Key()
	if key.IsZero() {
		return Change{Type: ChangeNone}
	}

	idx := s.indexOf(key)
	if idx < 0 {
		if delta <= 0 {
			return Change{Type: ChangeNone}
		}
		item.ProductID, item.Size, item.Color = key.ProductID, key.Size, key.Color
		item.Quantity = s.clamp(delta)
		item.AddedAt = s.now()
		s.items = append(s.items, item)
		return Change{Type: ChangeAdded, Item: item}
	}

	current := s.items[idx]
	prev := current.Quantity
	if delta == 0 {
		return Change{Type: ChangeNone, Item: current, Previous: prev}
	}

	next := prev + delta
	if next < 1 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return Change{Type: ChangeRemoved, Item: current, Previous: prev}
	}
	next = s.clamp(next)
	if next == prev {
		return Change{Type: ChangeNone, Item: current, Previous: prev}
	}

	s.items[idx].Quantity = next
	kind := ChangeIncremented
	if next < prev {
		kind = ChangeDecremented
	}
	return Change{Type: kind, Item: s.items[idx], Previous: prev}
}

// SetQuantity sets the quantity of an existing row. Values below one remove it.
func (s *Store) SetQuantity(key Key, quantity int) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(key)
	if idx < 0 {
		return Change{Type: ChangeNone}
	}
	current := s.items[idx]
	if quantity < 1 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return Change{Type: ChangeRemoved, Item: current, Previous: current.Quantity}
	}
	quantity = s.clamp(quantity)
	if quantity == current.Quantity {
		return Change{Type: ChangeNone, Item: current, Previous: current.Quantity}
	}
	s.items[idx].Quantity = quantity
	return Change{Type: ChangeUpdated, Item: s.items[idx], Previous: current.Quantity}
}

// Remove deletes the row for key. Removing an absent key is a no-op.
func (s *Store) Remove(key Key) Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(key)
}

func (s *Store) removeLocked(key Key) Change {
	idx := s.indexOf(key)
	if idx < 0 {
		return Change{Type: ChangeNone}
	}
	removed := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return Change{Type: ChangeRemoved, Item: removed, Previous: removed.Quantity}
}

// TransferTo moves one unit of key from s into dst. Both stores are locked in
// a fixed order so concurrent transfers in opposite directions cannot deadlock.
// Nothing changes when the key is absent from s or dst cannot take another unit.
func (s *Store) TransferTo(dst *Store, key Key) (source Change, destination Change) {
	if dst == nil || dst == s {
		return Change{Type: ChangeNone}, Change{Type: ChangeNone}
	}
	unlock := lockPair(s, dst)
	defer unlock()

	idx := s.indexOf(key)
	if idx < 0 {
		return Change{Type: ChangeNone}, Change{Type: ChangeNone}
	}
	unit := s.items[idx]
	if di := dst.indexOf(key); di >= 0 && dst.maxQty > 0 && dst.items[di].Quantity >= dst.maxQty {
		return Change{Type: ChangeNone}, Change{Type: ChangeNone, Item: dst.items[di], Previous: dst.items[di].Quantity}
	}

	source = s.addLocked(unit, -1)
	unit.Quantity = 0
	destination = dst.addLocked(unit, 1)
	return source, destination
}

func lockPair(a, b *Store) func() {
	first, second := a, b
	if b.id.String() < a.id.String() {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// Replace swaps the contents for items, preserving their order and AddedAt.
// Rows without a product id or with a quantity below one are skipped and
// duplicate keys are folded into the first occurrence.
func (s *Store) Replace(items []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]LineItem, 0, len(items))
	index := make(map[Key]int, len(items))
	for _, item := range items {
		key := item.Key()
		if key.IsZero() || item.Quantity < 1 {
			continue
		}
		if i, ok := index[key]; ok {
			next[i].Quantity = s.clamp(next[i].Quantity + item.Quantity)
			continue
		}
		item.ProductID, item.Size, item.Color = key.ProductID, key.Size, key.Color
		item.Quantity = s.clamp(item.Quantity)
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now()
		}
		index[key] = len(next)
		next = append(next, item)
	}
	s.items = next
}

// Clear empties the store and returns what it held.
func (s *Store) Clear() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items
	s.items = nil
	return out
}

// Items returns a copy of the rows in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Key, len(s.items))
	for i, item := range s.items {
		out[i] = item.Key()
	}
	return out
}

func (s *Store) Get(key Key) (LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(key); idx >= 0 {
		return s.items[idx], true
	}
	return LineItem{}, false
}

func (s *Store) Contains(key Key) bool {
	_, ok := s.Get(key)
	return ok
}

// Len is the number of distinct rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// TotalCount is the sum of quantities.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalValue is the sum of unit price times quantity.
func (s *Store) TotalValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) indexOf(key Key) int {
	for i, item := range s.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) clamp(q int) int {
	if s.maxQty > 0 && q > s.maxQty {
		return s.maxQty
	}
	return q
}
