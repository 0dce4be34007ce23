package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	CallID() string
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	callID    string
	timestamp time.Time
}

func NewBase(kind Kind, callID string) Base {
	return Base{kind: kind, callID: callID, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

// CallID returns the transport-assigned identifier of the call the event
// belongs to.
func (b Base) CallID() string {
	return b.callID
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
