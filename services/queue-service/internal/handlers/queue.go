package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/model"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/outbox"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/storage"
)

type QueueHandler struct {
	repo       *storage.QueueRepository
	settings   *storage.SettingsRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewQueueHandler(repo *storage.QueueRepository, settingsRepo *storage.SettingsRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		repo:       repo,
		settings:   settingsRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type queueItem struct {
	EntryID              string `json:"entry_id"`
	Token                int    `json:"token"`
	TokenType            string `json:"token_type"`
	Status               string `json:"status"`
	PatientID            string `json:"patient_id,omitempty"`
	DoctorID             string `json:"doctor_id,omitempty"`
	ScheduledAt          string `json:"scheduled_at,omitempty"`
	CheckedInAt          string `json:"checked_in_at"`
	Position             int    `json:"position"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
}

type entryResponse struct {
	EntryID   string `json:"entry_id"`
	Token     int    `json:"token"`
	TokenType string `json:"token_type"`
	Status    string `json:"status"`
	PatientID string `json:"patient_id,omitempty"`
	DoctorID  string `json:"doctor_id,omitempty"`
}

type transitionRequest struct {
	ClinicID string `json:"clinic_id"`
	EntryID  string `json:"entry_id"`
}

// List returns the live serving order for the clinic day. Early arrivals
// whose admission window has not opened yet are not part of the order.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := strings.TrimSpace(r.URL.Query().Get("clinic_id"))
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))

	ctx := r.Context()
	settings, err := h.settings.Get(ctx, clinicID)
	if err != nil {
		http.Error(w, "settings lookup failed", http.StatusInternalServerError)
		return
	}

	now := h.now()
	scope := queue.AdmissionScope(clinicID, doctorID, settings)
	dayStart, dayEnd := dayBounds(now)

	waiting, err := h.repo.ListWaiting(ctx, scope, dayStart, dayEnd)
	if err != nil {
		http.Error(w, "failed to list queue", http.StatusInternalServerError)
		return
	}

	order := queue.ServingOrder(candidates(waiting), now)
	byID := make(map[string]model.QueueEntry, len(waiting))
	for _, e := range waiting {
		byID[e.ID] = e
	}

	items := make([]queueItem, 0, len(order))
	for i, c := range order {
		e := byID[c.ID]
		item := queueItem{
			EntryID:              e.ID,
			Token:                e.Token,
			TokenType:            string(e.TokenType),
			Status:               string(e.Status),
			PatientID:            e.PatientID,
			DoctorID:             e.DoctorID,
			CheckedInAt:          e.CheckedInAt.UTC().Format(time.RFC3339),
			Position:             i + 1,
			EstimatedWaitMinutes: queue.WaitEstimate(i, settings),
		}
		if e.ScheduledAt != nil {
			item.ScheduledAt = e.ScheduledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}

	body, err := json.Marshal(items)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type callNextRequest struct {
	ClinicID string `json:"clinic_id"`
	DoctorID string `json:"doctor_id"`
}

// CallNext picks the head of the serving order and moves it into
// consultation. Row locks on the waiting set serialize concurrent calls.
func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req callNextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	if req.ClinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	settings, err := h.settings.Get(ctx, req.ClinicID)
	if err != nil {
		http.Error(w, "settings lookup failed", http.StatusInternalServerError)
		return
	}

	now := h.now()
	scope := queue.AdmissionScope(req.ClinicID, req.DoctorID, settings)
	dayStart, dayEnd := dayBounds(now)

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	waiting, err := h.repo.ListWaitingForUpdate(ctx, tx, scope, dayStart, dayEnd)
	if err != nil {
		http.Error(w, "failed to load queue", http.StatusInternalServerError)
		return
	}

	order := queue.ServingOrder(candidates(waiting), now)
	if len(order) == 0 {
		http.Error(w, "no patients waiting", http.StatusNotFound)
		return
	}

	called, err := h.repo.CallEntry(ctx, tx, order[0].ID, now)
	if err != nil {
		http.Error(w, "failed to call patient", http.StatusInternalServerError)
		return
	}

	if err := h.insertCalledEvent(ctx, tx, called, now); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeEntry(w, called)
}

// Complete closes an in-consultation entry as completed.
func (h *QueueHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, queue.StatusCompleted)
}

// NoShow closes an in-consultation entry whose patient never appeared when
// called.
func (h *QueueHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, queue.StatusNoShow)
}

func (h *QueueHandler) close(w http.ResponseWriter, r *http.Request, status queue.Status) {
	entry, tx, ok := h.lockEntry(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	defer func() { _ = tx.Rollback(ctx) }()

	if entry.Status != queue.StatusInConsultation {
		http.Error(w, "entry is not in consultation", http.StatusConflict)
		return
	}

	now := h.now()
	closed, err := h.repo.CloseEntry(ctx, tx, entry.ID, status, now)
	if err != nil {
		http.Error(w, "failed to close entry", http.StatusInternalServerError)
		return
	}
	if err := h.insertClosedEvent(ctx, tx, closed, now); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeEntry(w, closed)
}

// Cancel retracts a check-in before the patient is called. A called or
// closed entry cannot be cancelled.
func (h *QueueHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	entry, tx, ok := h.lockEntry(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	defer func() { _ = tx.Rollback(ctx) }()

	if !entry.Status.Waiting() {
		http.Error(w, "entry can no longer be cancelled", http.StatusConflict)
		return
	}

	now := h.now()
	cancelled, err := h.repo.CancelEntry(ctx, tx, entry.ID, now)
	if err != nil {
		http.Error(w, "failed to cancel entry", http.StatusInternalServerError)
		return
	}
	if err := h.insertClosedEvent(ctx, tx, cancelled, now); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeEntry(w, cancelled)
}

// lockEntry parses a transition request and locks the target entry. On
// failure it writes the error response and returns ok=false.
func (h *QueueHandler) lockEntry(w http.ResponseWriter, r *http.Request) (model.QueueEntry, pgx.Tx, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return model.QueueEntry{}, nil, false
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return model.QueueEntry{}, nil, false
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.EntryID = strings.TrimSpace(req.EntryID)
	if req.ClinicID == "" || req.EntryID == "" {
		http.Error(w, "clinic_id and entry_id required", http.StatusBadRequest)
		return model.QueueEntry{}, nil, false
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return model.QueueEntry{}, nil, false
	}

	entry, err := h.repo.GetEntryForUpdate(ctx, tx, req.ClinicID, req.EntryID)
	if err != nil {
		_ = tx.Rollback(ctx)
		if storage.IsNotFound(err) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return model.QueueEntry{}, nil, false
		}
		http.Error(w, "failed to load entry", http.StatusInternalServerError)
		return model.QueueEntry{}, nil, false
	}
	return entry, tx, true
}

func (h *QueueHandler) insertCalledEvent(ctx context.Context, tx pgx.Tx, e model.QueueEntry, at time.Time) error {
	payload, err := json.Marshal(map[string]any{
		"entry_id":   e.ID,
		"clinic_id":  e.ClinicID,
		"doctor_id":  e.DoctorID,
		"patient_id": e.PatientID,
		"token":      e.Token,
		"token_type": string(e.TokenType),
		"called_at":  at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "queue_entry",
		AggregateID:   e.ID,
		EventType:     outbox.EventPatientCalled,
		Payload:       payload,
	})
}

func (h *QueueHandler) insertClosedEvent(ctx context.Context, tx pgx.Tx, e model.QueueEntry, at time.Time) error {
	payload, err := json.Marshal(map[string]any{
		"entry_id":  e.ID,
		"clinic_id": e.ClinicID,
		"status":    string(e.Status),
		"closed_at": at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "queue_entry",
		AggregateID:   e.ID,
		EventType:     outbox.EventEntryClosed,
		Payload:       payload,
	})
}

func writeEntry(w http.ResponseWriter, e model.QueueEntry) {
	body, err := json.Marshal(entryResponse{
		EntryID:   e.ID,
		Token:     e.Token,
		TokenType: string(e.TokenType),
		Status:    string(e.Status),
		PatientID: e.PatientID,
		DoctorID:  e.DoctorID,
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
