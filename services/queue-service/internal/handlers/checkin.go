package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tahmid-hossain/clinicflow/libs/tiering"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/model"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/outbox"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/storage"
)

type CheckInHandler struct {
	repo         *storage.QueueRepository
	settings     *storage.SettingsRepository
	subs         *storage.SubscriptionRepository
	appointments *storage.AppointmentRepository
	outboxRepo   *outbox.Repository
	logger       *slog.Logger
	now          func() time.Time
}

func NewCheckInHandler(
	repo *storage.QueueRepository,
	settingsRepo *storage.SettingsRepository,
	subs *storage.SubscriptionRepository,
	appointments *storage.AppointmentRepository,
	outboxRepo *outbox.Repository,
	logger *slog.Logger,
) *CheckInHandler {
	return &CheckInHandler{
		repo:         repo,
		settings:     settingsRepo,
		subs:         subs,
		appointments: appointments,
		outboxRepo:   outboxRepo,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type checkInRequest struct {
	ClinicID      string `json:"clinic_id"`
	AppointmentID string `json:"appointment_id"`
	DoctorID      string `json:"doctor_id"`
	PatientID     string `json:"patient_id"`
}

type checkInResponse struct {
	EntryID              string `json:"entry_id"`
	Token                int    `json:"token"`
	TokenType            string `json:"token_type"`
	Status               string `json:"status"`
	Position             int    `json:"position,omitempty"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
	AdmitAt              string `json:"admit_at"`
}

var errAlreadyCheckedIn = errors.New("appointment already checked in today")

func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.PatientID = strings.TrimSpace(req.PatientID)

	if req.ClinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	if req.AppointmentID == "" && req.PatientID == "" {
		http.Error(w, "appointment_id or patient_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	sub, err := h.subs.Get(ctx, req.ClinicID)
	if err != nil {
		http.Error(w, "subscription lookup failed", http.StatusInternalServerError)
		return
	}
	if !tiering.CanAccess(sub, tiering.FeatureQueueManagement) {
		http.Error(w, "queue management requires the core plan or higher", http.StatusPaymentRequired)
		return
	}

	settings, err := h.settings.Get(ctx, req.ClinicID)
	if err != nil {
		http.Error(w, "settings lookup failed", http.StatusInternalServerError)
		return
	}

	checkedInAt := h.now()

	var scheduledAt *time.Time
	doctorID := req.DoctorID
	patientID := req.PatientID
	if req.AppointmentID != "" {
		appt, err := h.appointments.Get(ctx, req.ClinicID, req.AppointmentID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "appointment not found", http.StatusNotFound)
				return
			}
			http.Error(w, "appointment lookup failed", http.StatusInternalServerError)
			return
		}
		t := appt.ScheduledAt
		scheduledAt = &t
		if doctorID == "" {
			doctorID = appt.DoctorID
		}
		if patientID == "" {
			patientID = appt.PatientID
		}
	}

	cls := queue.Classify(scheduledAt, checkedInAt, settings)
	scope := queue.AdmissionScope(req.ClinicID, doctorID, settings)

	entry := model.QueueEntry{
		ClinicID:      req.ClinicID,
		DoctorID:      doctorID,
		AppointmentID: req.AppointmentID,
		PatientID:     patientID,
		TokenType:     cls.TokenType,
		Status:        cls.Status,
		ScheduledAt:   scheduledAt,
		CheckedInAt:   checkedInAt,
		AdmitAt:       cls.AdmitAt,
	}

	// Token allocation can abort on a concurrent check-in against the same
	// counter row. One retry absorbs the common case; callers never see a
	// gap in the sequence either way.
	err = h.admit(ctx, scope, &entry)
	if storage.IsSerializationFailure(err) {
		err = h.admit(ctx, scope, &entry)
	}
	if err != nil {
		if errors.Is(err, errAlreadyCheckedIn) {
			http.Error(w, "appointment already checked in today", http.StatusConflict)
			return
		}
		h.logger.Error("check-in failed", "err", err, "clinic_id", req.ClinicID)
		http.Error(w, "check-in failed", http.StatusInternalServerError)
		return
	}

	resp := checkInResponse{
		EntryID:   entry.ID,
		Token:     entry.Token,
		TokenType: string(entry.TokenType),
		Status:    string(entry.Status),
		AdmitAt:   entry.AdmitAt.UTC().Format(time.RFC3339),
	}
	if position, ok := h.position(ctx, scope, entry, checkedInAt); ok {
		resp.Position = position
		resp.EstimatedWaitMinutes = queue.WaitEstimate(position-1, settings)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// admit runs the transactional part of check-in: duplicate guard, token
// allocation, entry insert, and the checked-in event.
func (h *CheckInHandler) admit(ctx context.Context, scope queue.Scope, entry *model.QueueEntry) error {
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dayStart, dayEnd := dayBounds(entry.CheckedInAt)

	// Token allocation comes first: the counter-row lock serializes
	// concurrent check-ins in the same scope, so by the time the duplicate
	// check runs, a racing check-in for the same appointment has already
	// committed its entry and is visible here.
	token, err := h.repo.NextToken(ctx, tx, scope, dayStart)
	if err != nil {
		return err
	}
	entry.Token = token
	entry.ID = ""

	if entry.AppointmentID != "" {
		exists, err := h.repo.HasOpenCheckIn(ctx, tx, entry.ClinicID, entry.AppointmentID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if exists {
			return errAlreadyCheckedIn
		}
	}

	if err := h.repo.CreateEntry(ctx, tx, entry); err != nil {
		// Backstop for racing check-ins that never shared a counter row:
		// queue_entries carries a partial unique index on
		// (clinic_id, appointment_id, day) excluding cancelled rows.
		if storage.IsUniqueViolation(err) {
			return errAlreadyCheckedIn
		}
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"entry_id":       entry.ID,
		"clinic_id":      entry.ClinicID,
		"doctor_id":      entry.DoctorID,
		"appointment_id": entry.AppointmentID,
		"patient_id":     entry.PatientID,
		"token":          entry.Token,
		"token_type":     string(entry.TokenType),
		"status":         string(entry.Status),
		"checked_in_at":  entry.CheckedInAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "queue_entry",
		AggregateID:   entry.ID,
		EventType:     outbox.EventPatientCheckedIn,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// position reports the entry's 1-based place in the current serving order, or
// false when the entry is checked in early and its admission window has not
// opened yet.
func (h *CheckInHandler) position(ctx context.Context, scope queue.Scope, entry model.QueueEntry, now time.Time) (int, bool) {
	dayStart, dayEnd := dayBounds(now)
	waiting, err := h.repo.ListWaiting(ctx, scope, dayStart, dayEnd)
	if err != nil {
		h.logger.Warn("position lookup failed", "err", err, "entry_id", entry.ID)
		return 0, false
	}
	order := queue.ServingOrder(candidates(waiting), now)
	for i, c := range order {
		if c.ID == entry.ID {
			return i + 1, true
		}
	}
	return 0, false
}

// dayBounds returns the UTC day containing t. Token counters and duplicate
// checks reset at this boundary.
func dayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func candidates(entries []model.QueueEntry) []queue.Candidate {
	out := make([]queue.Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, queue.Candidate{
			ID:          e.ID,
			Status:      e.Status,
			TokenType:   e.TokenType,
			Token:       e.Token,
			ScheduledAt: e.ScheduledAt,
			CheckedInAt: e.CheckedInAt,
			AdmitAt:     e.AdmitAt,
		})
	}
	return out
}
