package queue

import "fmt"

// Settings are the per-clinic timing knobs for the day queue.
type Settings struct {
	BufferMinutes          int  `json:"queue_buffer_minutes"`
	GraceMinutes           int  `json:"late_arrival_grace_minutes"`
	AvgConsultationMinutes int  `json:"avg_consultation_minutes"`
	PerDoctorQueues        bool `json:"per_doctor_queues"`
}

// DefaultSettings applies when a clinic has never saved queue settings.
func DefaultSettings() Settings {
	return Settings{
		BufferMinutes:          10,
		GraceMinutes:           30,
		AvgConsultationMinutes: 15,
		PerDoctorQueues:        false,
	}
}

// Validate rejects settings that would break classification. Invalid values
// are never clamped; the caller gets the reason and must resubmit.
func (s Settings) Validate() error {
	if s.BufferMinutes < 0 {
		return fmt.Errorf("queue_buffer_minutes must be >= 0 (got %d)", s.BufferMinutes)
	}
	if s.GraceMinutes < s.BufferMinutes {
		return fmt.Errorf("late_arrival_grace_minutes must be >= queue_buffer_minutes (got %d < %d)", s.GraceMinutes, s.BufferMinutes)
	}
	if s.AvgConsultationMinutes <= 0 {
		return fmt.Errorf("avg_consultation_minutes must be > 0 (got %d)", s.AvgConsultationMinutes)
	}
	return nil
}
