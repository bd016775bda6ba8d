package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
)

type sampleBody struct {
	Outcome string `json:"outcome" validate:"required,oneof=completed canceled"`
	Notes   string `json:"notes" validate:"max=5"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"outcome":"maybe","notes":"too long"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["outcome"] != "must be one of completed canceled" {
		t.Fatalf("unexpected outcome message %q", details["outcome"])
	}
	if details["notes"] != "must be at most 5" {
		t.Fatalf("unexpected notes message %q", details["notes"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"outcome":"completed","extra":1}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPageLimit(t *testing.T) {
	limit := PageLimit{Default: 50, Max: 200}
	for _, raw := range []string{"500", "0", "-3", "ten"} {
		req := httptest.NewRequest(http.MethodGet, "/?limit="+raw, nil)
		if _, err := limit.Parse(req); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("limit=%s: expected validation error, got %v", raw, err)
		}
	}

	got, err := limit.Parse(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || got != 50 {
		t.Fatalf("expected default 50, got %d (%v)", got, err)
	}
	got, err = limit.Parse(httptest.NewRequest(http.MethodGet, "/?limit=%20200%20", nil))
	if err != nil || got != 200 {
		t.Fatalf("expected 200, got %d (%v)", got, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "orderId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "ticketId"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing param, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello world  ", 5); got != "hello" {
		t.Fatalf("unexpected %q", got)
	}
}
