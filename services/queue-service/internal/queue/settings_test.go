package queue

import "testing"

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.BufferMinutes != 10 || s.GraceMinutes != 30 || s.AvgConsultationMinutes != 15 || s.PerDoctorQueues {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"valid", Settings{10, 30, 15, false}, false},
		{"zero buffer ok", Settings{0, 0, 1, true}, false},
		{"negative buffer", Settings{-1, 30, 15, false}, true},
		{"grace below buffer", Settings{20, 10, 15, false}, true},
		{"zero consultation", Settings{10, 30, 0, false}, true},
		{"negative consultation", Settings{10, 30, -5, false}, true},
	}
	for _, tc := range cases {
		err := tc.s.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}
