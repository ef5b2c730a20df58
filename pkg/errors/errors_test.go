package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeDeserialization, status: http.StatusUnprocessableEntity, publicMsg: "stored data could not be read"},
		{code: CodeRemoteUnavailable, status: http.StatusServiceUnavailable, publicMsg: "remote store unavailable", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeRemoteUnavailable, cause, "read cart document")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if err.Code() != CodeRemoteUnavailable {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if got := err.Error(); got != "REMOTE_UNAVAILABLE: read cart document: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCodeOfAndHasCode(t *testing.T) {
	inner := New(CodeDeserialization, "bad payload")
	outer := fmt.Errorf("load cart: %w", Wrap(CodeDependency, inner, "local slot"))

	if got := CodeOf(outer); got != CodeDependency {
		t.Fatalf("expected outermost typed code, got %s", got)
	}
	if !HasCode(outer, CodeDeserialization) {
		t.Fatalf("expected nested deserialization code to be found")
	}
	if HasCode(outer, CodeNotFound) {
		t.Fatalf("did not expect not found code")
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("untyped errors should map to internal, got %s", got)
	}
}

func TestNilErrorAccessors(t *testing.T) {
	var err *Error
	if err.Code() != CodeInternal {
		t.Fatalf("nil error should report internal code")
	}
	if err.Message() != "" || err.Error() != "" || err.Details() != nil {
		t.Fatalf("nil error accessors should be empty")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should be nil")
	}
}

func TestDumpCapturesChainAndRPCStatus(t *testing.T) {
	rpcErr := status.Error(codes.PermissionDenied, "missing rules")
	err := Wrap(CodeRemoteUnavailable, rpcErr, "write cart document")

	dump := Dump(err)
	if dump.Code != CodeRemoteUnavailable {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
	if dump.RPCCode != codes.PermissionDenied.String() || dump.RPCMessage != "missing rules" {
		t.Fatalf("unexpected rpc fields %+v", dump)
	}
	if empty := Dump(nil); empty.TopMessage != "" || empty.Chain != nil {
		t.Fatalf("nil error should produce empty dump")
	}
}
