package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SessionLogin signs the anonymous session in as the verified caller. Anything
// the shopper collected while anonymous is merged into the account.
func SessionLogin(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, rec := notify.WithRecorder(r.Context())
		if sessions == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable"))
			return
		}

		identity := identityFrom(ctx)
		sessionID := middleware.SessionIDFromContext(ctx)
		s, err := sessions.Login(ctx, sessionID, identity)
		if err != nil {
			responses.WriteErrorWithNotifications(ctx, logg, w, err, rec.Drain())
			return
		}

		if logg != nil {
			logg.Info(logg.WithUserID(ctx, identity.UserID), "session.login")
		}
		responses.WriteSuccess(w, sessionResponse{
			SessionID:     sessionID,
			UserID:        identity.UserID,
			Cart:          s.CartView(),
			Wishlist:      s.WishlistView(),
			Notifications: rec.Drain(),
		})
	}
}

// SessionFetch returns both collections for the caller.
func SessionFetch(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, rec := notify.WithRecorder(r.Context())
		s, err := resolveSession(ctx, sessions)
		if err != nil {
			responses.WriteErrorWithNotifications(ctx, logg, w, err, rec.Drain())
			return
		}
		identity, _ := s.Identity()
		responses.WriteSuccess(w, sessionResponse{
			SessionID:     middleware.SessionIDFromContext(ctx),
			UserID:        identity.UserID,
			Cart:          s.CartView(),
			Wishlist:      s.WishlistView(),
			Notifications: rec.Drain(),
		})
	}
}
