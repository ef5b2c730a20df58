package persistence

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
)

// Adapter saves and loads one line item collection.
type Adapter interface {
	Save(ctx context.Context, items []lineitem.LineItem) error
	Load(ctx context.Context) ([]lineitem.LineItem, error)
}

// Identity is an authenticated shopper.
type Identity struct {
	UserID   string
	Email    string
	Provider string
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.UserID) == ""
}

// IdentitySource reports who is signed in, if anyone.
type IdentitySource interface {
	CurrentIdentity(ctx context.Context) (Identity, bool)
}

// StaticIdentity always reports the same identity.
type StaticIdentity Identity

func (s StaticIdentity) CurrentIdentity(context.Context) (Identity, bool) {
	id := Identity(s)
	return id, !id.IsZero()
}

// SlotKey builds the namespaced local key, e.g. aabhira:cart:<owner>.
func SlotKey(namespace string, kind lineitem.Kind, owner string) string {
	parts := []string{}
	for _, p := range []string{namespace, string(kind), owner} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}
