package storage

import (
	"context"
	"time"

	"github.com/tahmid-hossain/clinicflow/libs/db"
)

// Appointment is the slice of the scheduling data the queue needs: who is
// expected, with which doctor, and when.
type Appointment struct {
	ID          string
	ClinicID    string
	DoctorID    string
	PatientID   string
	ScheduledAt time.Time
}

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Get(ctx context.Context, clinicID, appointmentID string) (Appointment, error) {
	var a Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, COALESCE(doctor_id, ''), COALESCE(patient_id, ''), scheduled_at
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID).Scan(&a.ID, &a.ClinicID, &a.DoctorID, &a.PatientID, &a.ScheduledAt)
	if err != nil {
		return Appointment{}, err
	}
	return a, nil
}
