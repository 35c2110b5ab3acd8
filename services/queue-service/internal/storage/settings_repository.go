package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/tahmid-hossain/clinicflow/libs/db"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
)

type SettingsRepository struct {
	pool *db.Pool
}

func NewSettingsRepository(pool *db.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the clinic's queue settings, falling back to the defaults
// when the clinic has never customized them.
func (r *SettingsRepository) Get(ctx context.Context, clinicID string) (queue.Settings, error) {
	s := queue.DefaultSettings()
	err := r.pool.QueryRow(ctx, `
		SELECT buffer_minutes, grace_minutes, avg_consultation_minutes, per_doctor_queues
		FROM queue_settings
		WHERE clinic_id = $1
	`, clinicID).Scan(&s.BufferMinutes, &s.GraceMinutes, &s.AvgConsultationMinutes, &s.PerDoctorQueues)
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.DefaultSettings(), nil
	}
	if err != nil {
		return queue.Settings{}, err
	}
	return s, nil
}

// Upsert stores validated settings. Callers validate before writing; the
// repository never clamps values.
func (r *SettingsRepository) Upsert(ctx context.Context, clinicID string, s queue.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue_settings (clinic_id, buffer_minutes, grace_minutes, avg_consultation_minutes, per_doctor_queues, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (clinic_id)
		DO UPDATE SET
			buffer_minutes = EXCLUDED.buffer_minutes,
			grace_minutes = EXCLUDED.grace_minutes,
			avg_consultation_minutes = EXCLUDED.avg_consultation_minutes,
			per_doctor_queues = EXCLUDED.per_doctor_queues,
			updated_at = now()
	`, clinicID, s.BufferMinutes, s.GraceMinutes, s.AvgConsultationMinutes, s.PerDoctorQueues)
	return err
}
