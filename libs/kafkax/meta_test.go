package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestSplitBrokers(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"  ", 0},
		{"kafka:9092", 1},
		{"a:9092,b:9092", 2},
		{" a:9092 , , b:9092 ", 2},
	}
	for _, tc := range cases {
		if got := SplitBrokers(tc.raw); len(got) != tc.want {
			t.Fatalf("SplitBrokers(%q) = %v, want %d entries", tc.raw, got, tc.want)
		}
	}
}

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("evt-1")},
			{Key: "event_type", Value: []byte("queue.patient.checked_in.v1")},
		},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "queue.patient.checked_in.v1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestHeaderValueMissing(t *testing.T) {
	if got := HeaderValue(nil, "event_id"); got != "" {
		t.Fatalf("missing header should be empty, got %q", got)
	}
}
