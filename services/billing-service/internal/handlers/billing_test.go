package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetSubscriptionRequiresClinicID(t *testing.T) {
	h := New(nil, nil, nil, Config{})

	rec := httptest.NewRecorder()
	h.GetSubscription(rec, httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing clinic_id should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetSubscription(rec, httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscription", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST should be 405, got %d", rec.Code)
	}
}

func TestChangePlanAuthorization(t *testing.T) {
	h := New(nil, nil, nil, Config{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscription/change", strings.NewReader(`{}`))
	h.ChangePlan(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin should be 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscription/change",
		strings.NewReader(`{"event_id":"e1","clinic_id":"c1","tier":"platinum"}`))
	req.Header.Set("X-Role", "admin")
	h.ChangePlan(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tier should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscription/change",
		strings.NewReader(`{"clinic_id":"c1","tier":"core"}`))
	req.Header.Set("X-Role", "admin")
	h.ChangePlan(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing event_id should be 400, got %d", rec.Code)
	}
}

func TestStripeWebhookGuards(t *testing.T) {
	h := New(nil, nil, nil, Config{})

	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhooks/stripe", strings.NewReader("{}")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured webhook should be 503, got %d", rec.Code)
	}

	h = New(nil, nil, nil, Config{StripeWebhookSecret: "whsec_test"})
	rec = httptest.NewRecorder()
	h.StripeWebhook(rec, httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhooks/stripe", strings.NewReader("{}")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing signature should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhooks/stripe", strings.NewReader("{}"))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	h.StripeWebhook(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad signature should be 400, got %d", rec.Code)
	}
}
