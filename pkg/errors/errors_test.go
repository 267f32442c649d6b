package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRegistryStatuses(t *testing.T) {
	want := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeInvalidSize:       http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeForbidden:         http.StatusForbidden,
		CodeNotFound:          http.StatusNotFound,
		CodeConflict:          http.StatusConflict,
		CodeInsufficientStock: http.StatusConflict,
		CodeIdempotency:       http.StatusConflict,
		CodeStateConflict:     http.StatusUnprocessableEntity,
		CodeRateLimit:         http.StatusTooManyRequests,
		CodeInternal:          http.StatusInternalServerError,
		CodeDependency:        http.StatusServiceUnavailable,
	}
	if len(want) != len(registry) {
		t.Fatalf("registry has %d codes, table covers %d", len(registry), len(want))
	}
	for code, status := range want {
		t.Run(string(code), func(t *testing.T) {
			meta := MetadataFor(code)
			if meta.HTTPStatus != status {
				t.Fatalf("status = %d, want %d", meta.HTTPStatus, status)
			}
			if meta.PublicMessage == "" {
				t.Fatal("every code needs a public message")
			}
		})
	}

	if got := MetadataFor("NOPE").HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("unknown codes render as internal, got %d", got)
	}
	if MetadataFor(CodeNotFound).Retryable || !MetadataFor(CodeDependency).Retryable {
		t.Fatal("only transient failures are retryable")
	}
	if MetadataFor(CodeForbidden).DetailsAllowed || !MetadataFor(CodeInsufficientStock).DetailsAllowed {
		t.Fatal("details are reserved for codes the client can act on")
	}
}

func TestWithDetailsAndWrap(t *testing.T) {
	e := New(CodeValidation, "missing size")
	if e.Code() != CodeValidation || e.Message() != "missing size" || e.Details() != nil {
		t.Fatalf("unexpected fresh error %+v", e)
	}
	if e.WithDetails(map[string]any{"field": "size"}) != e || e.Details() == nil {
		t.Fatal("WithDetails should annotate in place")
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "redis")
	if !stdErrors.Is(wrapped, cause) || wrapped.Code() != CodeDependency {
		t.Fatalf("Wrap lost its cause or code: %v", wrapped)
	}

	if got := As(fmt.Errorf("outer: %w", New(CodeForbidden, "no"))); got == nil || got.Code() != CodeForbidden {
		t.Fatal("As should find a typed error in the chain")
	}
	if As(nil) != nil || As(cause) != nil {
		t.Fatal("As returns nil without a typed error")
	}
	if got := Newf(CodeNotFound, "order %d", 7).Message(); got != "order 7" {
		t.Fatalf("Newf message = %q", got)
	}
}

func TestIsMatchesWrappedTypedError(t *testing.T) {
	inner := New(CodeInsufficientStock, "only 2 left")
	outer := fmt.Errorf("place order: %w", inner)

	if !Is(outer, CodeInsufficientStock) {
		t.Fatalf("expected Is to find insufficient stock in chain")
	}
	if Is(outer, CodeNotFound) {
		t.Fatalf("expected Is to reject unrelated code")
	}
	if Is(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestClientMessageCodes(t *testing.T) {
	if MetadataFor(CodeInternal).ClientMessage {
		t.Fatal("internal errors must not leak their message")
	}
	for _, code := range []Code{CodeValidation, CodeConflict, CodeInsufficientStock, CodeDependency} {
		if !MetadataFor(code).ClientMessage {
			t.Fatalf("code %s should surface its message", code)
		}
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load cart")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load cart: dial tcp: refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeValidation, "quantity %d out of range", 0).Message(); got != "quantity 0 out of range" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDumpFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email", TableName: "users"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "create user")

	fields := Dump(err).Fields()
	if fields["error_code"] != string(CodeConflict) {
		t.Fatalf("unexpected code field %v", fields["error_code"])
	}
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "idx_users_email" {
		t.Fatalf("missing pg fields: %v", fields)
	}
	if _, ok := fields["pg_detail"]; ok {
		t.Fatal("empty pg fields should be omitted")
	}
	if chain, _ := fields["error_chain"].([]string); len(chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %v", fields["error_chain"])
	}

	plain := Dump(stdErrors.New("boom")).Fields()
	if len(plain) != 1 || plain["error"] != "boom" {
		t.Fatalf("unexpected plain dump %v", plain)
	}
}
