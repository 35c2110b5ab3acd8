package model

import (
	"time"

	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
)

// QueueEntry is one patient's admission record into the day queue.
type QueueEntry struct {
	ID            string
	ClinicID      string
	DoctorID      string
	AppointmentID string // empty for walk-ins
	PatientID     string
	Token         int
	TokenType     queue.TokenType
	Status        queue.Status
	ScheduledAt   *time.Time
	CheckedInAt   time.Time
	AdmitAt       time.Time
	CalledAt      *time.Time
	ClosedAt      *time.Time
	CreatedAt     time.Time
}
