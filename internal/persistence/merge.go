package persistence

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
)

// Merge combines a remote and a local collection. Remote rows keep their
// order, a key present in both keeps the larger quantity, and local-only
// rows are appended in their local order.
func Merge(remote, local []lineitem.LineItem) []lineitem.LineItem {
	out := make([]lineitem.LineItem, 0, len(remote)+len(local))
	index := make(map[lineitem.Key]int, len(remote)+len(local))
	for _, item := range remote {
		key := item.Key()
		if i, ok := index[key]; ok {
			out[i].Quantity = max(out[i].Quantity, item.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	for _, item := range local {
		key := item.Key()
		if i, ok := index[key]; ok {
			out[i].Quantity = max(out[i].Quantity, item.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out
}

// MergeLocal folds the local slot into the signed-in user's document. The
// local slot is cleared only after the merged collection reached the remote
// store; if the remote side is unreachable the local collection is kept and
// returned unchanged.
func (a *RemoteAdapter) MergeLocal(ctx context.Context) ([]lineitem.LineItem, error) {
	local, err := a.local.Load(ctx)
	if err != nil {
		a.logg.WarnErr(ctx, "reading local collection before merge", err)
	}

	remote, err := a.readRemote(ctx)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		remote = nil
	case err != nil:
		return a.fallbackLoad(ctx, err)
	}

	merged := Merge(remote, local)
	if len(local) == 0 {
		return merged, nil
	}
	if err := a.writeRemote(ctx, merged); err != nil {
		return merged, a.fallbackSave(ctx, merged, err)
	}
	if err := a.local.Clear(ctx); err != nil {
		a.logg.WarnErr(ctx, "clearing local collection after merge", err)
	}
	return merged, nil
}
