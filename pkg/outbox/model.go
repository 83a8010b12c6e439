package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// MaxAttempts is how many dispatch failures an event survives before it is
// parked as failed.
const MaxAttempts = 5

// Event is one committed realtime write waiting to be published. Path is
// also the Kafka message key so changes to one node stay ordered.
type Event struct {
	ID          int64
	Collection  string
	Path        string
	Op          string
	Payload     []byte
	Headers     map[string]string
	Traceparent string
	CreatedAt   time.Time
	Status      Status
	RelayID     string
	RetryCount  int
	LastError   *string
}

// Headers carried on every published change besides the stored ones.
const (
	HeaderOp         = "change_op"
	HeaderCollection = "collection"
)
