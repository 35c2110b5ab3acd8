// Package queue holds the admission and timing rules for the clinic day
// queue. Everything in this package is pure: classification, ordering and
// wait estimation are plain functions over times and settings, so the rules
// can be tested without a database.
package queue

import "time"

// Status is a queue entry's lifecycle state. An entry rests in one of the
// three admission states until called, then only moves forward.
type Status string

const (
	StatusOnTime         Status = "on_time"
	StatusLate           Status = "late"
	StatusWalkIn         Status = "walk_in"
	StatusInConsultation Status = "in_consultation"
	StatusCompleted      Status = "completed"
	StatusNoShow         Status = "no_show"
	StatusCancelled      Status = "cancelled"
)

// Waiting reports whether the status is one of the three admission states.
func (s Status) Waiting() bool {
	return s == StatusOnTime || s == StatusLate || s == StatusWalkIn
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusNoShow || s == StatusCancelled
}

type TokenType string

const (
	TokenScheduled TokenType = "scheduled"
	TokenWalkIn    TokenType = "walk-in"
)

// Scope identifies one token sequence and serving order: the whole clinic,
// or a single doctor's queue when per-doctor queues are enabled.
type Scope struct {
	ClinicID string
	DoctorID string // empty for the clinic-wide queue
}

func GlobalScope(clinicID string) Scope {
	return Scope{ClinicID: clinicID}
}

func DoctorScope(clinicID, doctorID string) Scope {
	return Scope{ClinicID: clinicID, DoctorID: doctorID}
}

func (s Scope) PerDoctor() bool {
	return s.DoctorID != ""
}

// AdmissionScope picks the scope for a check-in under the clinic's settings.
// With per-doctor queues off the doctor is ignored for token purposes.
func AdmissionScope(clinicID, doctorID string, s Settings) Scope {
	if s.PerDoctorQueues && doctorID != "" {
		return DoctorScope(clinicID, doctorID)
	}
	return GlobalScope(clinicID)
}

// Classification is the check-in decision. Status is fixed at creation and
// never recomputed. AdmitAt is when the entry joins the active serving
// order; for early arrivals it is the opening of the buffer window, so an
// early patient cannot jump ahead of the line before their slot approaches.
type Classification struct {
	Status    Status
	TokenType TokenType
	AdmitAt   time.Time
}

// Classify decides an arriving patient's admission state.
//
// With a scheduled time, the signed offset delta = checkedInAt - scheduledAt
// partitions into exactly one of:
//
//	delta < -buffer            on_time, held until the window opens
//	-buffer <= delta <= buffer on_time
//	buffer < delta <= grace    late, the booking is still honored
//	delta > grace              demoted to walk_in, the slot is forfeited
//
// Without a scheduled time the patient is a walk-in immediately.
func Classify(scheduledAt *time.Time, checkedInAt time.Time, s Settings) Classification {
	if scheduledAt == nil {
		return Classification{
			Status:    StatusWalkIn,
			TokenType: TokenWalkIn,
			AdmitAt:   checkedInAt,
		}
	}

	buffer := time.Duration(s.BufferMinutes) * time.Minute
	grace := time.Duration(s.GraceMinutes) * time.Minute
	delta := checkedInAt.Sub(*scheduledAt)

	switch {
	case delta < -buffer:
		// Early arrival is never penalized, but the entry waits outside the
		// active order until scheduledAt - buffer.
		return Classification{
			Status:    StatusOnTime,
			TokenType: TokenScheduled,
			AdmitAt:   scheduledAt.Add(-buffer),
		}
	case delta <= buffer:
		return Classification{
			Status:    StatusOnTime,
			TokenType: TokenScheduled,
			AdmitAt:   checkedInAt,
		}
	case delta <= grace:
		return Classification{
			Status:    StatusLate,
			TokenType: TokenScheduled,
			AdmitAt:   checkedInAt,
		}
	default:
		return Classification{
			Status:    StatusWalkIn,
			TokenType: TokenWalkIn,
			AdmitAt:   checkedInAt,
		}
	}
}
