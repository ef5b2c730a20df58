package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"scarf","count":2}`))
	var dest sample
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Name != "scarf" || dest.Count != 2 {
		t.Fatalf("unexpected decode %+v", dest)
	}
}

func TestDecodeJSONBodyErrors(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"unknown field": `{"name":"scarf","extra":1}`,
		"missing name":  `{"count":1}`,
		"negative":      `{"name":"scarf","count":-1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req *http.Request
			if body == "" {
				req = httptest.NewRequest(http.MethodPost, "/", nil)
			} else {
				req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			}
			err := DecodeJSONBody(req, &sample{})
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"count":-3}`))
	err := DecodeJSONBody(req, &sample{})
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["name"] != "is required" || details["count"] != "must be greater than or equal to 0" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  scarf  ", 0); got != "scarf" {
		t.Fatalf("expected trim, got %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Fatalf("expected cap, got %q", got)
	}
	if got := SanitizeString("₹₹", 4); got != "₹" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}

func TestRequiredQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?product_id=%20P1%20", nil)
	got, err := RequiredQueryString(req, "product_id", 16)
	if err != nil || got != "P1" {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if _, err := RequiredQueryString(req, "size", 16); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
