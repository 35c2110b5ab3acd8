package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tahmid-hossain/clinicflow/libs/db"
	"github.com/tahmid-hossain/clinicflow/libs/tiering"
)

// SubscriptionRepository is the local read model of billing's subscription
// events. The queue service never calls billing synchronously; it trusts the
// last event it has consumed.
type SubscriptionRepository struct {
	pool *db.Pool
}

func NewSubscriptionRepository(pool *db.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Get returns the clinic's effective subscription. Clinics billing has never
// told us about run on the free capture tier.
func (r *SubscriptionRepository) Get(ctx context.Context, clinicID string) (tiering.Subscription, error) {
	var tierName string
	var intelligence bool
	err := r.pool.QueryRow(ctx, `
		SELECT tier, intelligence_addon
		FROM clinic_subscriptions
		WHERE clinic_id = $1
	`, clinicID).Scan(&tierName, &intelligence)
	if errors.Is(err, pgx.ErrNoRows) {
		return tiering.Subscription{Tier: tiering.TierCapture}, nil
	}
	if err != nil {
		return tiering.Subscription{}, err
	}
	tier, ok := tiering.ParseTier(tierName)
	if !ok {
		// An unrecognized tier from a newer billing deploy degrades to
		// the free tier rather than failing the request.
		tier = tiering.TierCapture
	}
	return tiering.Subscription{Tier: tier, Intelligence: intelligence}, nil
}

// Upsert applies a billing subscription event. occurredAt guards against
// out-of-order delivery; an older event never overwrites a newer row.
func (r *SubscriptionRepository) Upsert(ctx context.Context, tx pgx.Tx, clinicID string, sub tiering.Subscription, occurredAt time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO clinic_subscriptions (clinic_id, tier, intelligence_addon, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (clinic_id)
		DO UPDATE SET
			tier = EXCLUDED.tier,
			intelligence_addon = EXCLUDED.intelligence_addon,
			updated_at = EXCLUDED.updated_at
		WHERE clinic_subscriptions.updated_at <= EXCLUDED.updated_at
	`, clinicID, sub.Tier.String(), sub.Intelligence, occurredAt)
	return err
}
