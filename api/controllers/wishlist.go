package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func WishlistFetch(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		return s.WishlistView(), nil
	})
}

func WishlistAddItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return wishlistItemAction(sessions, logg, (*storefront.Session).AddToWishlist)
}

// WishlistToggle adds the product, or removes it when it is already wishlisted.
func WishlistToggle(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return wishlistItemAction(sessions, logg, (*storefront.Session).ToggleWishlist)
}

func WishlistRemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		key, err := keyFromQuery(r)
		if err != nil {
			return view.View{}, err
		}
		return s.RemoveFromWishlist(r.Context(), key)
	})
}

// WishlistMoveToCart moves one wishlisted row into the cart and returns the cart view.
func WishlistMoveToCart(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		var payload keyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return view.View{}, err
		}
		return s.MoveToCart(r.Context(), payload.toKey())
	})
}

// WishlistMoveAllToCart empties the wishlist into the cart and returns the cart view.
func WishlistMoveAllToCart(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		return s.MoveAllToCart(r.Context())
	})
}

func wishlistItemAction(sessions Sessions, logg *logger.Logger, op func(*storefront.Session, context.Context, lineitem.LineItem) (view.View, error)) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		var payload itemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return view.View{}, err
		}
		item, err := payload.toItem()
		if err != nil {
			return view.View{}, err
		}
		return op(s, r.Context(), item)
	})
}
