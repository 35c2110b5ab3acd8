package queue

import (
	"testing"
	"time"
)

func TestServingOrderScheduledBeforeWalkIns(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := day.Add(10 * time.Hour)

	sched930 := day.Add(9*time.Hour + 30*time.Minute)
	sched945 := day.Add(9*time.Hour + 45*time.Minute)

	entries := []Candidate{
		{ID: "w1", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day.Add(9 * time.Hour), AdmitAt: day.Add(9 * time.Hour)},
		{ID: "s2", Status: StatusLate, TokenType: TokenScheduled, ScheduledAt: &sched930, CheckedInAt: day.Add(9*time.Hour + 55*time.Minute), AdmitAt: day.Add(9*time.Hour + 55*time.Minute)},
		{ID: "w2", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day.Add(9*time.Hour + 20*time.Minute), AdmitAt: day.Add(9*time.Hour + 20*time.Minute)},
		{ID: "s1", Status: StatusOnTime, TokenType: TokenScheduled, ScheduledAt: &sched945, CheckedInAt: day.Add(9*time.Hour + 40*time.Minute), AdmitAt: day.Add(9*time.Hour + 40*time.Minute)},
	}

	order := ServingOrder(entries, now)
	got := ids(order)
	want := []string{"s2", "s1", "w1", "w2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestServingOrderExcludesPendingEarlyArrivals(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := day.Add(13*time.Hour + 30*time.Minute)

	sched15 := day.Add(15 * time.Hour)
	entries := []Candidate{
		// Checked in at 13:00 for a 15:00 slot; window opens 14:50.
		{ID: "early", Status: StatusOnTime, TokenType: TokenScheduled, ScheduledAt: &sched15, CheckedInAt: day.Add(13 * time.Hour), AdmitAt: day.Add(14*time.Hour + 50*time.Minute)},
		{ID: "walk", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day.Add(13*time.Hour + 10*time.Minute), AdmitAt: day.Add(13*time.Hour + 10*time.Minute)},
	}

	order := ServingOrder(entries, now)
	if len(order) != 1 || order[0].ID != "walk" {
		t.Fatalf("pending scheduled entry must not displace the walk-in: %v", ids(order))
	}

	// Once the window opens the scheduled entry takes priority.
	order = ServingOrder(entries, day.Add(14*time.Hour+55*time.Minute))
	if len(order) != 2 || order[0].ID != "early" {
		t.Fatalf("admitted scheduled entry should lead: %v", ids(order))
	}
}

func TestServingOrderWalkInsFIFO(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	entries := []Candidate{
		{ID: "b", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day.Add(2 * time.Hour), AdmitAt: day.Add(2 * time.Hour)},
		{ID: "a", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day.Add(1 * time.Hour), AdmitAt: day.Add(1 * time.Hour)},
		{ID: "c", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day.Add(3 * time.Hour), AdmitAt: day.Add(3 * time.Hour)},
	}
	order := ServingOrder(entries, day.Add(4*time.Hour))
	got := ids(order)
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestServingOrderSkipsNonWaiting(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	entries := []Candidate{
		{ID: "done", Status: StatusCompleted, TokenType: TokenWalkIn, CheckedInAt: day, AdmitAt: day},
		{ID: "in", Status: StatusInConsultation, TokenType: TokenWalkIn, CheckedInAt: day, AdmitAt: day},
		{ID: "wait", Status: StatusWalkIn, TokenType: TokenWalkIn, CheckedInAt: day, AdmitAt: day},
	}
	order := ServingOrder(entries, day.Add(time.Hour))
	if len(order) != 1 || order[0].ID != "wait" {
		t.Fatalf("only waiting entries belong in the order: %v", ids(order))
	}
}

func TestWaitEstimate(t *testing.T) {
	s := Settings{AvgConsultationMinutes: 15}
	if got := WaitEstimate(0, s); got != 0 {
		t.Fatalf("front of queue should wait 0, got %d", got)
	}
	if got := WaitEstimate(3, s); got != 45 {
		t.Fatalf("position 3 should wait 45, got %d", got)
	}
	if got := WaitEstimate(-1, s); got != 0 {
		t.Fatalf("negative position should clamp to 0, got %d", got)
	}
}

func ids(entries []Candidate) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
