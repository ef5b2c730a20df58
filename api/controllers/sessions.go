package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Sessions hands out the live storefront session for a request.
type Sessions interface {
	Session(ctx context.Context, sessionID string, identity persistence.Identity) (*storefront.Session, error)
	Login(ctx context.Context, sessionID string, identity persistence.Identity) (*storefront.Session, error)
}

type actionResponse struct {
	View          view.View             `json:"view"`
	Notifications []notify.Notification `json:"notifications"`
}

type sessionResponse struct {
	SessionID     string                `json:"session_id"`
	UserID        string                `json:"user_id,omitempty"`
	Cart          view.View             `json:"cart"`
	Wishlist      view.View             `json:"wishlist"`
	Notifications []notify.Notification `json:"notifications"`
}

func identityFrom(ctx context.Context) persistence.Identity {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return persistence.Identity{}
	}
	return persistence.Identity{UserID: id.UserID, Email: id.Email, Provider: id.Provider}
}

func resolveSession(ctx context.Context, sessions Sessions) (*storefront.Session, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable")
	}
	return sessions.Session(ctx, middleware.SessionIDFromContext(ctx), identityFrom(ctx))
}

// sessionAction runs op against the caller's session and writes the resulting
// view together with the notifications the operation raised.
func sessionAction(sessions Sessions, logg *logger.Logger, op func(r *http.Request, s *storefront.Session) (view.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, rec := notify.WithRecorder(r.Context())
		r = r.WithContext(ctx)

		s, err := resolveSession(ctx, sessions)
		if err != nil {
			responses.WriteErrorWithNotifications(ctx, logg, w, err, rec.Drain())
			return
		}

		v, err := op(r, s)
		if err != nil {
			responses.WriteErrorWithNotifications(ctx, logg, w, err, rec.Drain())
			return
		}
		responses.WriteSuccess(w, actionResponse{View: v, Notifications: rec.Drain()})
	}
}
