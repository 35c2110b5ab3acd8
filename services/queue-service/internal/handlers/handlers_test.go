package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/model"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
)

func TestDayBounds(t *testing.T) {
	at := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	start, end := dayBounds(at)
	if !start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", start)
	}
	if !end.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %s", end)
	}
	if !end.After(at) {
		t.Fatal("end must cover the whole day")
	}
}

func TestCandidatesPreservesFields(t *testing.T) {
	sched := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	entries := []model.QueueEntry{{
		ID:          "e1",
		Status:      queue.StatusOnTime,
		TokenType:   queue.TokenScheduled,
		Token:       4,
		ScheduledAt: &sched,
		CheckedInAt: sched.Add(-5 * time.Minute),
		AdmitAt:     sched.Add(-5 * time.Minute),
	}}
	cs := candidates(entries)
	if len(cs) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cs))
	}
	c := cs[0]
	if c.ID != "e1" || c.Token != 4 || c.Status != queue.StatusOnTime || c.ScheduledAt == nil {
		t.Fatalf("unexpected candidate: %+v", c)
	}
}

func TestCheckInRejectsBadRequests(t *testing.T) {
	h := NewCheckInHandler(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.CheckIn(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkin", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET should be 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CheckIn(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkin", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CheckIn(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkin", strings.NewReader(`{"appointment_id":"a1"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing clinic_id should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CheckIn(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkin", strings.NewReader(`{"clinic_id":"c1"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing appointment and patient should be 400, got %d", rec.Code)
	}
}

func TestQueueHandlerRejectsBadRequests(t *testing.T) {
	h := NewQueueHandler(nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("list without clinic_id should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CallNext(rec, httptest.NewRequest(http.MethodPost, "/api/v1/queue/call-next", strings.NewReader("{}")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("call-next without clinic_id should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Complete(rec, httptest.NewRequest(http.MethodPost, "/api/v1/queue/complete", strings.NewReader(`{"clinic_id":"c1"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("complete without entry_id should be 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Cancel(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/cancel", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET cancel should be 405, got %d", rec.Code)
	}
}

func TestSettingsHandlerValidation(t *testing.T) {
	h := NewSettingsHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/settings", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE should be 405, got %d", rec.Code)
	}

	// grace below buffer must be rejected, not clamped.
	body := `{"clinic_id":"c1","queue_buffer_minutes":20,"late_arrival_grace_minutes":10,"avg_consultation_minutes":15}`
	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid settings should be 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "grace") {
		t.Fatalf("error should name the offending field, got %q", rec.Body.String())
	}
}
