package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tahmid-hossain/clinicflow/libs/db"
	"github.com/tahmid-hossain/clinicflow/libs/tiering"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/storage"
)

// subscriptionEvent is the payload billing publishes on
// billing.subscription.activated.v1 and billing.subscription.canceled.v1.
type subscriptionEvent struct {
	ClinicID         string    `json:"clinic_id"`
	Tier             string    `json:"tier"`
	IntelligenceAddon bool     `json:"intelligence_addon"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// SubscriptionEvents applies billing subscription changes to the local
// clinic_subscriptions read model. Activation and cancellation share one
// handler: cancellation arrives as a downgrade to the free tier.
func SubscriptionEvents(pool *db.Pool, subs *storage.SubscriptionRepository, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt subscriptionEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			// A payload we cannot parse will never parse; log and move on.
			logger.Error("malformed subscription event dropped", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.ClinicID == "" {
			logger.Error("subscription event without clinic_id dropped", "topic", msg.Topic)
			return nil
		}

		tier, ok := tiering.ParseTier(evt.Tier)
		if !ok {
			logger.Warn("unknown tier in subscription event, treating as free tier",
				"clinic_id", evt.ClinicID, "tier", evt.Tier)
			tier = tiering.TierCapture
		}
		if evt.OccurredAt.IsZero() {
			evt.OccurredAt = time.Now().UTC()
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		sub := tiering.Subscription{Tier: tier, Intelligence: evt.IntelligenceAddon}
		if err := subs.Upsert(ctx, tx, evt.ClinicID, sub, evt.OccurredAt); err != nil {
			return fmt.Errorf("apply subscription event: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info("clinic subscription updated",
			"clinic_id", evt.ClinicID, "tier", tier.String(), "intelligence_addon", evt.IntelligenceAddon)
		return nil
	}
}
