package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartFetch returns the caller's cart view.
func CartFetch(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		return s.CartView(), nil
	})
}

// CartAddItem adds units of a product variant to the cart.
func CartAddItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		var payload addToCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return view.View{}, err
		}
		item, err := payload.toItem()
		if err != nil {
			return view.View{}, err
		}
		return s.AddToCart(r.Context(), item, payload.Quantity)
	})
}

// CartUpdateQuantity applies either a relative delta or an absolute quantity to a cart row.
func CartUpdateQuantity(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return view.View{}, err
		}
		if payload.Delta != nil {
			return s.ChangeQuantity(r.Context(), payload.toKey(), *payload.Delta)
		}
		return s.SetQuantity(r.Context(), payload.toKey(), *payload.Quantity)
	})
}

// CartRemoveItem deletes the row addressed by the product_id, size and color query parameters.
func CartRemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		key, err := keyFromQuery(r)
		if err != nil {
			return view.View{}, err
		}
		return s.RemoveFromCart(r.Context(), key)
	})
}

// CartCheckout validates that the cart can proceed to checkout.
func CartCheckout(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(sessions, logg, func(r *http.Request, s *storefront.Session) (view.View, error) {
		return s.Checkout(r.Context())
	})
}
