package gremlink

import (
	"github.com/google/uuid"
)

// Wire status codes, fixed by the server protocol. Anything >= 400 that is
// not an answerable authentication challenge is a terminal failure.
const (
	StatusSuccess        = 200
	StatusNoContent      = 204
	StatusPartialContent = 206
	StatusChallenge      = 407
)

// Status is the status block of a response envelope.
type Status struct {
	Code       int
	Message    string
	Attributes map[string]interface{}
}

// Envelope is a parsed inbound response. RequestID is uuid.Nil when the
// server emitted no usable correlation id, in which case the failure is
// broadcast to every pending request.
type Envelope struct {
	RequestID uuid.UUID
	Status    Status
	Data      []interface{}
}

// Reader parses an inbound wire payload into an Envelope. Implementations
// own the value-decoding rules of one wire format.
type Reader interface {
	Read(payload []byte) (*Envelope, error)
}

// Writer adapts a domain value into its wire representation. It is applied
// to every outbound argument value; binding maps are adapted entry by entry
// instead, so their top level stays a plain object.
type Writer interface {
	Adapt(value interface{}) interface{}
}
