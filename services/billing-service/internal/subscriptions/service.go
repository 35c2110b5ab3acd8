package subscriptions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tahmid-hossain/clinicflow/libs/tiering"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/outbox"
	"github.com/tahmid-hossain/clinicflow/services/billing-service/internal/storage"
)

// Service encapsulates subscription state transitions and their side effects
// (outbox events). Keeping it out of HTTP handlers makes it reusable for the
// webhook and admin flows.
type Service struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository) *Service {
	return &Service{repo: repo, outboxRepo: outboxRepo}
}

type Change struct {
	ClinicID             string
	Tier                 tiering.Tier
	IntelligenceAddon    bool
	Provider             string
	StripeCustomerID     string
	StripeSubscriptionID string
	PeriodStart          *time.Time
	PeriodEnd            *time.Time
}

// ApplyActivated records an activation or plan change. An event goes out only
// when the effective entitlement (tier, add-on, status) changes; provider ID
// updates alone do not fan out.
func (s *Service) ApplyActivated(ctx context.Context, tx pgx.Tx, ch Change, activatedAt time.Time) error {
	existing, ok, err := s.repo.GetSubscriptionForUpdate(ctx, tx, ch.ClinicID)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertSubscription(ctx, tx, storage.Subscription{
		ClinicID:             ch.ClinicID,
		Tier:                 ch.Tier.String(),
		IntelligenceAddon:    ch.IntelligenceAddon,
		Status:               "active",
		Provider:             ch.Provider,
		StripeCustomerID:     ch.StripeCustomerID,
		StripeSubscriptionID: ch.StripeSubscriptionID,
		CurrentPeriodStart:   ch.PeriodStart,
		CurrentPeriodEnd:     ch.PeriodEnd,
	}); err != nil {
		return err
	}

	if ok && existing.Status == "active" && existing.Tier == ch.Tier.String() && existing.IntelligenceAddon == ch.IntelligenceAddon {
		return nil
	}

	return s.emit(ctx, tx, outbox.EventSubscriptionActivated, ch.ClinicID,
		tiering.Subscription{Tier: ch.Tier, Intelligence: ch.IntelligenceAddon}, activatedAt)
}

// ApplyCanceled downgrades the clinic to the free tier. The subscription row
// is never deleted; a clinic always resolves to some tier.
func (s *Service) ApplyCanceled(ctx context.Context, tx pgx.Tx, ch Change, canceledAt time.Time) error {
	existing, ok, err := s.repo.GetSubscriptionForUpdate(ctx, tx, ch.ClinicID)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertSubscription(ctx, tx, storage.Subscription{
		ClinicID:             ch.ClinicID,
		Tier:                 tiering.TierCapture.String(),
		IntelligenceAddon:    false,
		Status:               "canceled",
		Provider:             ch.Provider,
		StripeCustomerID:     ch.StripeCustomerID,
		StripeSubscriptionID: ch.StripeSubscriptionID,
		CurrentPeriodStart:   ch.PeriodStart,
		CurrentPeriodEnd:     ch.PeriodEnd,
	}); err != nil {
		return err
	}

	if ok && existing.Status == "canceled" && existing.Tier == tiering.TierCapture.String() && !existing.IntelligenceAddon {
		return nil
	}

	return s.emit(ctx, tx, outbox.EventSubscriptionCanceled, ch.ClinicID,
		tiering.Subscription{Tier: tiering.TierCapture}, canceledAt)
}

func (s *Service) emit(ctx context.Context, tx pgx.Tx, eventType, clinicID string, sub tiering.Subscription, occurredAt time.Time) error {
	enabled := tiering.Enabled(sub)
	features := make([]string, 0, len(enabled))
	for _, f := range enabled {
		features = append(features, string(f))
	}

	payload, err := json.Marshal(map[string]any{
		"clinic_id":          clinicID,
		"tier":               sub.Tier.String(),
		"intelligence_addon": sub.Intelligence,
		"features":           features,
		"occurred_at":        occurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return s.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "subscription",
		AggregateID:   clinicID,
		EventType:     eventType,
		Payload:       payload,
	})
}
