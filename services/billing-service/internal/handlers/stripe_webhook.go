package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tahmid-hossain/clinicflow/libs/tiering"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/storage"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/subscriptions"
)

// StripeWebhook handles Stripe webhooks (no JWT auth; signature verification
// is the auth). The gateway should expose this path publicly.
//
// Plan resolution relies on subscription metadata: clinic_id, tier, and an
// optional intelligence_addon flag set when the checkout was created.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.stripeWebhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	occurredAt := time.Unix(evt.Created, 0).UTC()
	evtType := string(evt.Type)
	h.logger.Info("billing provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", occurredAt.Format(time.RFC3339),
	)

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Idempotency: ignore replayed Stripe events.
	if err := h.repo.InsertProviderEvent(ctx, tx, storage.ProviderEvent{
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("billing provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID, "event_type", evtType)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			_ = tx.Commit(ctx)
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	if err := h.recordAudit(ctx, tx, r, "billing.provider.stripe.webhook", "provider", "", map[string]any{
		"provider":          "stripe",
		"provider_event_id": evt.ID,
		"event_type":        evtType,
		"occurred_at":       occurredAt.Format(time.RFC3339),
	}); err != nil {
		http.Error(w, "failed to record audit event", http.StatusInternalServerError)
		return
	}

	switch evtType {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			h.logger.Error("stripe: invalid subscription payload", "err", err)
			break
		}
		// Only treat active/trialing as entitled.
		if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
			break
		}
		ch, ok := h.changeFromStripe(sub)
		if !ok {
			break
		}
		if err := h.subSvc.ApplyActivated(ctx, tx, ch, occurredAt); err != nil {
			http.Error(w, "failed to apply activation", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			h.logger.Error("stripe: invalid subscription payload", "err", err)
			break
		}
		clinicID := strings.TrimSpace(sub.Metadata["clinic_id"])
		if clinicID == "" {
			h.logger.Warn("stripe: missing clinic_id metadata on subscription")
			break
		}
		ch := subscriptions.Change{
			ClinicID:             clinicID,
			Provider:             "stripe",
			StripeSubscriptionID: sub.ID,
		}
		if sub.Customer != nil {
			ch.StripeCustomerID = sub.Customer.ID
		}
		ch.PeriodStart, ch.PeriodEnd = stripePeriod(sub)
		if err := h.subSvc.ApplyCanceled(ctx, tx, ch, occurredAt); err != nil {
			http.Error(w, "failed to apply cancellation", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) changeFromStripe(sub stripe.Subscription) (subscriptions.Change, bool) {
	clinicID := strings.TrimSpace(sub.Metadata["clinic_id"])
	tierName := strings.TrimSpace(strings.ToLower(sub.Metadata["tier"]))
	if clinicID == "" || tierName == "" {
		h.logger.Warn("stripe: missing metadata on subscription (clinic_id/tier)")
		return subscriptions.Change{}, false
	}
	tier, ok := tiering.ParseTier(tierName)
	if !ok {
		h.logger.Warn("stripe: unknown tier in subscription metadata", "tier", tierName)
		return subscriptions.Change{}, false
	}

	ch := subscriptions.Change{
		ClinicID:             clinicID,
		Tier:                 tier,
		IntelligenceAddon:    strings.EqualFold(sub.Metadata["intelligence_addon"], "true"),
		Provider:             "stripe",
		StripeSubscriptionID: sub.ID,
	}
	if sub.Customer != nil {
		ch.StripeCustomerID = sub.Customer.ID
	}
	ch.PeriodStart, ch.PeriodEnd = stripePeriod(sub)
	return ch, true
}

func stripePeriod(sub stripe.Subscription) (*time.Time, *time.Time) {
	var cps *time.Time
	var cpe *time.Time
	if sub.CurrentPeriodStart > 0 {
		t := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		cps = &t
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		cpe = &t
	}
	return cps, cpe
}
