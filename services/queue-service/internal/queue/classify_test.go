package queue

import (
	"testing"
	"time"
)

var testSettings = Settings{
	BufferMinutes:          10,
	GraceMinutes:           30,
	AvgConsultationMinutes: 15,
}

func TestClassifyWalkInWithoutAppointment(t *testing.T) {
	checkIn := time.Date(2026, 3, 2, 11, 42, 0, 0, time.UTC)
	c := Classify(nil, checkIn, testSettings)
	if c.Status != StatusWalkIn || c.TokenType != TokenWalkIn {
		t.Fatalf("expected walk-in, got %s/%s", c.Status, c.TokenType)
	}
	if !c.AdmitAt.Equal(checkIn) {
		t.Fatalf("walk-in should be admitted immediately, got %s", c.AdmitAt)
	}
}

func TestClassifyPartition(t *testing.T) {
	scheduled := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		deltaMin   int
		wantStatus Status
		wantToken  TokenType
	}{
		{"very early", -25, StatusOnTime, TokenScheduled},
		{"buffer lower edge", -10, StatusOnTime, TokenScheduled},
		{"exact", 0, StatusOnTime, TokenScheduled},
		{"within buffer", 5, StatusOnTime, TokenScheduled},
		{"buffer upper edge", 10, StatusOnTime, TokenScheduled},
		{"just past buffer", 11, StatusLate, TokenScheduled},
		{"late within grace", 20, StatusLate, TokenScheduled},
		{"grace edge", 30, StatusLate, TokenScheduled},
		{"past grace", 31, StatusWalkIn, TokenWalkIn},
		{"very late", 35, StatusWalkIn, TokenWalkIn},
	}

	for _, tc := range cases {
		checkIn := scheduled.Add(time.Duration(tc.deltaMin) * time.Minute)
		c := Classify(&scheduled, checkIn, testSettings)
		if c.Status != tc.wantStatus {
			t.Fatalf("%s: status = %s, want %s", tc.name, c.Status, tc.wantStatus)
		}
		if c.TokenType != tc.wantToken {
			t.Fatalf("%s: token type = %s, want %s", tc.name, c.TokenType, tc.wantToken)
		}
	}
}

func TestClassifyEarlyArrivalHeldUntilWindowOpens(t *testing.T) {
	scheduled := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	checkIn := scheduled.Add(-45 * time.Minute)

	c := Classify(&scheduled, checkIn, testSettings)
	if c.Status != StatusOnTime {
		t.Fatalf("early arrival should be on_time, got %s", c.Status)
	}
	wantAdmit := scheduled.Add(-10 * time.Minute)
	if !c.AdmitAt.Equal(wantAdmit) {
		t.Fatalf("admit at = %s, want window opening %s", c.AdmitAt, wantAdmit)
	}
}

func TestClassifyOnTimeAdmittedAtCheckIn(t *testing.T) {
	scheduled := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	checkIn := scheduled.Add(5 * time.Minute)
	c := Classify(&scheduled, checkIn, testSettings)
	if !c.AdmitAt.Equal(checkIn) {
		t.Fatalf("on-time arrival should be admitted at check-in, got %s", c.AdmitAt)
	}
}

func TestStatusPredicates(t *testing.T) {
	waiting := []Status{StatusOnTime, StatusLate, StatusWalkIn}
	for _, s := range waiting {
		if !s.Waiting() || s.Terminal() {
			t.Fatalf("%s should be waiting and not terminal", s)
		}
	}
	if StatusInConsultation.Waiting() || StatusInConsultation.Terminal() {
		t.Fatal("in_consultation is neither waiting nor terminal")
	}
	for _, s := range []Status{StatusCompleted, StatusNoShow, StatusCancelled} {
		if !s.Terminal() || s.Waiting() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestAdmissionScope(t *testing.T) {
	global := AdmissionScope("clinic-1", "doc-1", Settings{PerDoctorQueues: false})
	if global.PerDoctor() {
		t.Fatal("global scope should ignore the doctor")
	}
	perDoc := AdmissionScope("clinic-1", "doc-1", Settings{PerDoctorQueues: true})
	if !perDoc.PerDoctor() || perDoc.DoctorID != "doc-1" {
		t.Fatalf("expected doctor scope, got %+v", perDoc)
	}
	// Per-doctor setting without a doctor falls back to the clinic queue.
	fallback := AdmissionScope("clinic-1", "", Settings{PerDoctorQueues: true})
	if fallback.PerDoctor() {
		t.Fatal("missing doctor should fall back to the clinic-wide queue")
	}
}
