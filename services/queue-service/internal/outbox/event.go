package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the queue service.
const (
	EventPatientCheckedIn = "queue.patient.checked_in.v1"
	EventPatientCalled    = "queue.patient.called.v1"
	EventEntryClosed      = "queue.entry.closed.v1"
)
