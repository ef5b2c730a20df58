package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/google/uuid"
)

type testEnv struct {
	manager   *storefront.Manager
	docs      *persistence.MemoryDocuments
	sessionID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	docs := persistence.NewMemoryDocuments()
	m, err := storefront.NewManager(storefront.Config{
		Backend: &storefront.Backend{
			Namespace:     "aabhira",
			Slot:          persistence.NewMemorySlot(),
			Documents:     docs,
			SaveAttempts:  1,
			SaveBaseDelay: time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return &testEnv{manager: m, docs: docs, sessionID: uuid.NewString()}
}

func (e *testEnv) request(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithSessionID(req.Context(), e.sessionID))
}

func signedIn(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), auth.Identity{UserID: userID, Provider: auth.ProviderJWT}))
}

type actionEnvelope struct {
	Data struct {
		View          view.View             `json:"view"`
		Notifications []notify.Notification `json:"notifications"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Notifications []notify.Notification `json:"notifications"`
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeAction(t *testing.T, resp *httptest.ResponseRecorder) actionEnvelope {
	t.Helper()
	var env actionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return env
}

const shirt = `{"product_id":"P1","size":"M","name":"Linen Shirt","price":"1200","original_price":"1500","quantity":2}`

func TestCartAddItem(t *testing.T) {
	env := newTestEnv(t)
	resp := serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	out := decodeAction(t, resp)
	if out.Data.View.TotalItems != 2 || len(out.Data.View.Rows) != 1 {
		t.Fatalf("unexpected view %+v", out.Data.View)
	}
	if row := out.Data.View.Rows[0]; row.DiscountPercent != 20 {
		t.Fatalf("expected 20%% discount got %d", row.DiscountPercent)
	}
	if len(out.Data.Notifications) != 1 || out.Data.Notifications[0].Message != "Linen Shirt added to cart!" {
		t.Fatalf("unexpected notifications %+v", out.Data.Notifications)
	}

	resp = serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))
	out = decodeAction(t, resp)
	if out.Data.View.TotalItems != 4 {
		t.Fatalf("expected merged quantity 4 got %d", out.Data.View.TotalItems)
	}
	if out.Data.Notifications[0].Message != "Linen Shirt quantity updated in cart!" {
		t.Fatalf("unexpected notification %q", out.Data.Notifications[0].Message)
	}
}

func TestCartAddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]string{
		"missing product": `{"name":"Linen Shirt","price":"10"}`,
		"missing name":    `{"product_id":"P1","price":"10"}`,
		"negative price":  `{"product_id":"P1","name":"Linen Shirt","price":"-1"}`,
		"unknown field":   `{"product_id":"P1","name":"Linen Shirt","price":"1","colour":"red"}`,
		"malformed":       `{"product_id":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", body))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestCartUpdateQuantity(t *testing.T) {
	env := newTestEnv(t)
	serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))

	resp := serve(t, CartUpdateQuantity(env.manager, nil), env.request(http.MethodPatch, "/cart/items", `{"product_id":"P1","size":"M","delta":1}`))
	if out := decodeAction(t, resp); out.Data.View.TotalItems != 3 {
		t.Fatalf("expected 3 got %d", out.Data.View.TotalItems)
	}

	resp = serve(t, CartUpdateQuantity(env.manager, nil), env.request(http.MethodPatch, "/cart/items", `{"product_id":"P1","size":"M","quantity":7}`))
	out := decodeAction(t, resp)
	if out.Data.View.TotalItems != 7 {
		t.Fatalf("expected 7 got %d", out.Data.View.TotalItems)
	}
	if out.Data.Notifications[0].Message != "Linen Shirt quantity updated" {
		t.Fatalf("unexpected notification %q", out.Data.Notifications[0].Message)
	}

	resp = serve(t, CartUpdateQuantity(env.manager, nil), env.request(http.MethodPatch, "/cart/items", `{"product_id":"P1","size":"M","quantity":0}`))
	if out := decodeAction(t, resp); !out.Data.View.Empty {
		t.Fatalf("expected empty cart, got %+v", out.Data.View)
	}
}

func TestCartUpdateQuantityRequiresOneOf(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{
		`{"product_id":"P1"}`,
		`{"product_id":"P1","delta":1,"quantity":2}`,
	} {
		resp := serve(t, CartUpdateQuantity(env.manager, nil), env.request(http.MethodPatch, "/cart/items", body))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, resp.Code)
		}
	}
}

func TestCartUpdateQuantityUnknownRow(t *testing.T) {
	env := newTestEnv(t)
	resp := serve(t, CartUpdateQuantity(env.manager, nil), env.request(http.MethodPatch, "/cart/items", `{"product_id":"nope","delta":1}`))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))

	resp := serve(t, CartRemoveItem(env.manager, nil), env.request(http.MethodDelete, "/cart/items?product_id=P1&size=M", ""))
	out := decodeAction(t, resp)
	if !out.Data.View.Empty {
		t.Fatalf("expected empty cart got %+v", out.Data.View)
	}
	if out.Data.Notifications[0].Message != "Linen Shirt removed from cart" {
		t.Fatalf("unexpected notification %q", out.Data.Notifications[0].Message)
	}

	resp = serve(t, CartRemoveItem(env.manager, nil), env.request(http.MethodDelete, "/cart/items", ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without product_id got %d", resp.Code)
	}
}

func TestCartCheckoutEmpty(t *testing.T) {
	env := newTestEnv(t)
	resp := serve(t, CartCheckout(env.manager, nil), env.request(http.MethodPost, "/cart/checkout", ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	out := decodeError(t, resp)
	if out.Error.Message != "Your cart is empty!" {
		t.Fatalf("unexpected message %q", out.Error.Message)
	}
	if len(out.Notifications) != 1 || out.Notifications[0].Kind != notify.KindCheckoutBlocked {
		t.Fatalf("expected checkout-blocked notification, got %+v", out.Notifications)
	}
}

func TestCartCheckoutReady(t *testing.T) {
	env := newTestEnv(t)
	serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))
	resp := serve(t, CartCheckout(env.manager, nil), env.request(http.MethodPost, "/cart/checkout", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if out := decodeAction(t, resp); !out.Data.View.CheckoutEnabled {
		t.Fatal("expected checkout to be enabled")
	}
}

func TestWishlistToggleAndMove(t *testing.T) {
	env := newTestEnv(t)
	item := `{"product_id":"W1","name":"Silk Scarf","price":"800"}`

	resp := serve(t, WishlistToggle(env.manager, nil), env.request(http.MethodPost, "/wishlist/toggle", item))
	out := decodeAction(t, resp)
	if len(out.Data.View.Rows) != 1 || out.Data.Notifications[0].Message != "Added to wishlist!" {
		t.Fatalf("unexpected toggle result %+v", out.Data)
	}

	resp = serve(t, WishlistToggle(env.manager, nil), env.request(http.MethodPost, "/wishlist/toggle", item))
	if out := decodeAction(t, resp); !out.Data.View.Empty {
		t.Fatal("second toggle should remove")
	}

	serve(t, WishlistAddItem(env.manager, nil), env.request(http.MethodPost, "/wishlist/items", item))
	resp = serve(t, WishlistMoveToCart(env.manager, nil), env.request(http.MethodPost, "/wishlist/move", `{"product_id":"W1"}`))
	out = decodeAction(t, resp)
	if out.Data.View.Kind != "cart" || out.Data.View.TotalItems != 1 {
		t.Fatalf("expected cart view with moved item, got %+v", out.Data.View)
	}

	resp = serve(t, WishlistFetch(env.manager, nil), env.request(http.MethodGet, "/wishlist", ""))
	if out := decodeAction(t, resp); !out.Data.View.Empty {
		t.Fatal("wishlist should be empty after move")
	}

	resp = serve(t, WishlistMoveToCart(env.manager, nil), env.request(http.MethodPost, "/wishlist/move", `{"product_id":"W1"}`))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 moving absent item got %d", resp.Code)
	}
}

func TestWishlistMoveAllAndRemove(t *testing.T) {
	env := newTestEnv(t)
	serve(t, WishlistAddItem(env.manager, nil), env.request(http.MethodPost, "/wishlist/items", `{"product_id":"W1","name":"Scarf","price":"800"}`))
	serve(t, WishlistAddItem(env.manager, nil), env.request(http.MethodPost, "/wishlist/items", `{"product_id":"W2","name":"Belt","price":"400"}`))
	serve(t, WishlistAddItem(env.manager, nil), env.request(http.MethodPost, "/wishlist/items", `{"product_id":"W3","name":"Cap","price":"300"}`))

	resp := serve(t, WishlistRemoveItem(env.manager, nil), env.request(http.MethodDelete, "/wishlist/items?product_id=W3", ""))
	if out := decodeAction(t, resp); len(out.Data.View.Rows) != 2 {
		t.Fatalf("expected 2 wishlist rows got %d", len(out.Data.View.Rows))
	}

	resp = serve(t, WishlistMoveAllToCart(env.manager, nil), env.request(http.MethodPost, "/wishlist/move-all", ""))
	out := decodeAction(t, resp)
	if len(out.Data.View.Rows) != 2 || out.Data.Notifications[0].Message != "All items moved to cart" {
		t.Fatalf("unexpected move-all result %+v", out.Data)
	}
}

func TestSessionLoginMergesAnonymousCart(t *testing.T) {
	env := newTestEnv(t)
	serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))

	resp := serve(t, SessionLogin(env.manager, nil), signedIn(env.request(http.MethodPost, "/session/login", ""), "u-1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.UserID != "u-1" || out.Data.Cart.TotalItems != 2 {
		t.Fatalf("unexpected login response %+v", out.Data)
	}

	resp = serve(t, CartFetch(env.manager, nil), signedIn(env.request(http.MethodGet, "/cart", ""), "u-1"))
	if got := decodeAction(t, resp); got.Data.View.TotalItems != 2 {
		t.Fatalf("signed-in cart should keep merged rows, got %d", got.Data.View.TotalItems)
	}
}

func TestSessionLoginRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	resp := serve(t, SessionLogin(env.manager, nil), env.request(http.MethodPost, "/session/login", ""))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSessionFetch(t *testing.T) {
	env := newTestEnv(t)
	serve(t, CartAddItem(env.manager, nil), env.request(http.MethodPost, "/cart/items", shirt))
	resp := serve(t, SessionFetch(env.manager, nil), env.request(http.MethodGet, "/session", ""))
	var out struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.SessionID != env.sessionID || out.Data.Cart.TotalItems != 2 || !out.Data.Wishlist.Empty {
		t.Fatalf("unexpected session response %+v", out.Data)
	}
}

func TestNilSessionsIsInternalError(t *testing.T) {
	resp := serve(t, CartFetch(nil, nil), httptest.NewRequest(http.MethodGet, "/cart", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := serve(t, HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": nil}), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "dev" {
		t.Fatalf("missing env header")
	}

	resp = serve(t, HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{err: errors.New("down")}}), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code == http.StatusOK {
		t.Fatal("expected failure when a dependency is down")
	}
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}
	resp := serve(t, HealthLive(cfg), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
