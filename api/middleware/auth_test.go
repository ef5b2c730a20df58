package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type stubVerifier struct {
	identity auth.Identity
	err      error
}

func (s stubVerifier) Verify(context.Context, string) (auth.Identity, error) {
	return s.identity, s.err
}

func okHandler(captured *auth.Identity, present *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if captured != nil {
			*captured = id
		}
		if present != nil {
			*present = ok
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthPassesAnonymousRequests(t *testing.T) {
	var present bool
	handler := Auth(stubVerifier{err: errors.New("should not be called")}, nil)(okHandler(nil, &present))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if present {
		t.Fatal("anonymous request should carry no identity")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(stubVerifier{err: errors.New("bad signature")}, nil)(okHandler(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	handler := Auth(stubVerifier{identity: auth.Identity{UserID: "u"}}, nil)(okHandler(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidJWT(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60}
	verifier, err := auth.NewJWTVerifier(cfg)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: "u-7"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	var captured auth.Identity
	handler := Auth(verifier, nil)(okHandler(&captured, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != "u-7" || captured.Provider != auth.ProviderJWT {
		t.Fatalf("unexpected identity %+v", captured)
	}
}

func TestAuthWithoutVerifierIgnoresHeader(t *testing.T) {
	var present bool
	handler := Auth(nil, nil)(okHandler(nil, &present))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || present {
		t.Fatalf("expected anonymous pass-through, got %d present=%v", resp.Code, present)
	}
}

func TestRequireIdentity(t *testing.T) {
	handler := RequireIdentity(nil)(okHandler(nil, nil))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), auth.Identity{UserID: "u"}))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
