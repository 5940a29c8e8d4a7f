package gremlink

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCfg       = errors.New("gremlink: invalid options")
	ErrUnknownMimeType  = errors.New("gremlink: no codec registered for mime type")
	ErrDial             = errors.New("gremlink: could not reach the server")
	ErrConnectionClosed = errors.New("gremlink: connection closed")
	ErrClosing          = errors.New("gremlink: connection is shutting down")

	// ErrDuplicateRequest means a caller-supplied correlation id collided
	// with one that is still in flight. Generated ids never collide.
	ErrDuplicateRequest = errors.New("gremlink: correlation id already registered")
)

// ResponseError is a terminal failure reported by the server on a correlated
// response, any status code >= 400 except an answerable authentication
// challenge. It is delivered to the originating caller only.
type ResponseError struct {
	StatusCode    int
	StatusMessage string
	Attributes    map[string]interface{}
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("gremlink: server error %d: %s", e.StatusCode, e.StatusMessage)
}

// OrphanError is synthesized when a response carries no usable correlation
// id: the server could not tell which request failed, so every in-flight
// request receives this error rather than risk a silent hang.
type OrphanError struct {
	StatusMessage string
}

func (e *OrphanError) Error() string {
	if e.StatusMessage == "" {
		return "gremlink: server could not identify the request that caused this error"
	}
	return fmt.Sprintf("gremlink: server could not identify the failed request: %s", e.StatusMessage)
}

// TransportError wraps a failure of the underlying socket. When the
// transport is lost, every pending request is completed with one.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gremlink: transport failure: %s", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthenticationError wraps a challenge-evaluation failure. It is delivered
// to the caller whose request triggered the challenge.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("gremlink: challenge evaluation failed: %s", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
