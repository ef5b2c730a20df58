package persistence

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// LocalAdapter keeps a collection in a device or session scoped slot.
type LocalAdapter struct {
	slot Slot
	key  string
	logg *logger.Logger
}

func NewLocalAdapter(slot Slot, key string, logg *logger.Logger) *LocalAdapter {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LocalAdapter{slot: slot, key: key, logg: logg}
}

func (a *LocalAdapter) Key() string { return a.key }

func (a *LocalAdapter) Save(ctx context.Context, items []lineitem.LineItem) error {
	data, err := Encode(items)
	if err != nil {
		return err
	}
	if err := a.slot.Set(ctx, a.key, string(data)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write local slot")
	}
	return nil
}

// Load returns the stored collection. A missing slot, or data that cannot be
// decoded, yields an empty collection; only a failure to read the slot is
// returned as an error.
func (a *LocalAdapter) Load(ctx context.Context) ([]lineitem.LineItem, error) {
	raw, ok, err := a.slot.Get(ctx, a.key)
	if err != nil {
		return []lineitem.LineItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read local slot")
	}
	if !ok {
		return []lineitem.LineItem{}, nil
	}
	items, err := Decode([]byte(raw))
	if err != nil {
		a.logg.WarnErr(a.logg.WithField(ctx, "slot_key", a.key), "discarding unreadable local collection", err)
		return []lineitem.LineItem{}, nil
	}
	return items, nil
}

// Clear deletes the slot.
func (a *LocalAdapter) Clear(ctx context.Context) error {
	if err := a.slot.Delete(ctx, a.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear local slot")
	}
	return nil
}
