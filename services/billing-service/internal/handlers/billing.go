package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tahmid-hossain/clinicflow/libs/tiering"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/outbox"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/storage"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/subscriptions"
)

type Handler struct {
	repo                   *storage.Repository
	outboxRepo             *outbox.Repository
	subSvc                 *subscriptions.Service
	logger                 *slog.Logger
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
}

type Config struct {
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.StripeWebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	return &Handler{
		repo:                   repo,
		outboxRepo:             outboxRepo,
		subSvc:                 subscriptions.New(repo, outboxRepo),
		logger:                 logger,
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: time.Duration(tolSeconds) * time.Second,
	}
}

type subscriptionResponse struct {
	ClinicID          string   `json:"clinic_id"`
	Tier              string   `json:"tier"`
	IntelligenceAddon bool     `json:"intelligence_addon"`
	Status            string   `json:"status"`
	Features          []string `json:"features"`
}

// GetSubscription returns the clinic's current plan. A clinic billing has
// never seen resolves to the free capture tier rather than a 404.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := strings.TrimSpace(r.URL.Query().Get("clinic_id"))
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	sub := tiering.Subscription{Tier: tiering.TierCapture}
	status := "none"
	rec, err := h.repo.GetSubscription(r.Context(), clinicID)
	if err != nil && !storage.IsNotFound(err) {
		http.Error(w, "subscription lookup failed", http.StatusInternalServerError)
		return
	}
	if err == nil {
		status = rec.Status
		if tier, ok := tiering.ParseTier(rec.Tier); ok {
			sub = tiering.Subscription{Tier: tier, Intelligence: rec.IntelligenceAddon}
		}
	}

	enabled := tiering.Enabled(sub)
	features := make([]string, 0, len(enabled))
	for _, f := range enabled {
		features = append(features, string(f))
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		ClinicID:          clinicID,
		Tier:              sub.Tier.String(),
		IntelligenceAddon: sub.Intelligence,
		Status:            status,
		Features:          features,
	})
}

type changePlanRequest struct {
	EventID           string `json:"event_id"`
	ClinicID          string `json:"clinic_id"`
	Tier              string `json:"tier"`
	IntelligenceAddon bool   `json:"intelligence_addon"`
	Cancel            bool   `json:"cancel"`
	OccurredAt        string `json:"occurred_at"`
}

// ChangePlan is the admin path for plan changes that do not go through
// Stripe: sales-led upgrades, trials, and manual cancellations. The event_id
// makes retried requests idempotent, same as provider webhooks.
func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-Role") != "admin" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.Tier = strings.TrimSpace(strings.ToLower(req.Tier))
	req.OccurredAt = strings.TrimSpace(req.OccurredAt)

	if req.EventID == "" || req.ClinicID == "" {
		http.Error(w, "event_id and clinic_id required", http.StatusBadRequest)
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			http.Error(w, "invalid occurred_at", http.StatusBadRequest)
			return
		}
		occurredAt = t.UTC()
	}

	var tier tiering.Tier
	if !req.Cancel {
		var ok bool
		tier, ok = tiering.ParseTier(req.Tier)
		if !ok {
			http.Error(w, "unknown tier", http.StatusBadRequest)
			return
		}
	}

	payloadRaw, _ := json.Marshal(req)

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.InsertProviderEvent(ctx, tx, storage.ProviderEvent{
		Provider:        "local",
		ProviderEventID: req.EventID,
		EventType:       "admin.plan_change",
		Payload:         payloadRaw,
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("duplicate plan change ignored", "event_id", req.EventID, "clinic_id", req.ClinicID)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			_ = tx.Commit(ctx)
			return
		}
		http.Error(w, "failed to record event", http.StatusInternalServerError)
		return
	}

	if err := h.recordAudit(ctx, tx, r, "billing.plan.changed", "admin", req.ClinicID, map[string]any{
		"event_id":           req.EventID,
		"tier":               req.Tier,
		"intelligence_addon": req.IntelligenceAddon,
		"cancel":             req.Cancel,
	}); err != nil {
		http.Error(w, "failed to record audit event", http.StatusInternalServerError)
		return
	}

	ch := subscriptions.Change{
		ClinicID:          req.ClinicID,
		Tier:              tier,
		IntelligenceAddon: req.IntelligenceAddon,
		Provider:          "local",
	}
	if req.Cancel {
		err = h.subSvc.ApplyCanceled(ctx, tx, ch, occurredAt)
	} else {
		err = h.subSvc.ApplyActivated(ctx, tx, ch, occurredAt)
	}
	if err != nil {
		http.Error(w, "failed to apply plan change", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) recordAudit(ctx context.Context, tx pgx.Tx, r *http.Request, eventType, actorType, clinicID string, metadata map[string]any) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return h.repo.InsertAuditEvent(ctx, tx, storage.AuditEvent{
		EventType: eventType,
		ActorType: actorType,
		ActorID:   strings.TrimSpace(r.Header.Get("X-User-Id")),
		ClinicID:  clinicID,
		Metadata:  raw,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
