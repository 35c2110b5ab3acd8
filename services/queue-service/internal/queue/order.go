package queue

import (
	"sort"
	"time"
)

// Candidate is the slice of a queue entry the ordering rules need.
type Candidate struct {
	ID          string
	Status      Status
	TokenType   TokenType
	Token       int
	ScheduledAt *time.Time
	CheckedInAt time.Time
	AdmitAt     time.Time
}

// ServingOrder merges the two waiting streams into the order patients will
// be called. Entries whose admit time has not arrived (early check-ins) are
// excluded. Scheduled-token entries (on-time and late) are ordered by their
// original scheduled time and take priority over walk-ins; walk-ins are
// first-come-first-served among themselves.
func ServingOrder(entries []Candidate, now time.Time) []Candidate {
	var scheduled []Candidate
	var walkIns []Candidate
	for _, e := range entries {
		if !e.Status.Waiting() {
			continue
		}
		if e.AdmitAt.After(now) {
			continue
		}
		if e.TokenType == TokenScheduled && e.ScheduledAt != nil {
			scheduled = append(scheduled, e)
		} else {
			walkIns = append(walkIns, e)
		}
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		if !scheduled[i].ScheduledAt.Equal(*scheduled[j].ScheduledAt) {
			return scheduled[i].ScheduledAt.Before(*scheduled[j].ScheduledAt)
		}
		if !scheduled[i].CheckedInAt.Equal(scheduled[j].CheckedInAt) {
			return scheduled[i].CheckedInAt.Before(scheduled[j].CheckedInAt)
		}
		return scheduled[i].Token < scheduled[j].Token
	})
	sort.SliceStable(walkIns, func(i, j int) bool {
		if !walkIns[i].CheckedInAt.Equal(walkIns[j].CheckedInAt) {
			return walkIns[i].CheckedInAt.Before(walkIns[j].CheckedInAt)
		}
		return walkIns[i].Token < walkIns[j].Token
	})

	return append(scheduled, walkIns...)
}

// WaitEstimate is the advisory wait for the entry at the given zero-based
// position in the serving order. It is recomputed on demand, never stored.
func WaitEstimate(position int, s Settings) int {
	if position < 0 {
		return 0
	}
	return position * s.AvgConsultationMinutes
}
