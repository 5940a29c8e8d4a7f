package gremlink

import (
	"context"
	"encoding/base64"
)

// Authenticator answers a mid-stream credential challenge. EvaluateChallenge
// receives the challenge payload of a 407 response and resolves to the
// argument map of the follow-up authentication request; its failure is
// surfaced to the caller whose request triggered the challenge.
type Authenticator interface {
	EvaluateChallenge(ctx context.Context, challenge []interface{}) (map[string]interface{}, error)
}

// PlainTextAuthenticator answers every challenge with SASL PLAIN
// credentials, the stock mechanism of graph servers speaking this protocol.
type PlainTextAuthenticator struct {
	Username string
	Password string

	// AuthzID is the optional authorization identity sent ahead of the
	// credentials.
	AuthzID string
}

var _ Authenticator = (*PlainTextAuthenticator)(nil)

func (a *PlainTextAuthenticator) EvaluateChallenge(context.Context, []interface{}) (map[string]interface{}, error) {
	plain := a.AuthzID + "\x00" + a.Username + "\x00" + a.Password
	return map[string]interface{}{
		"sasl":          base64.StdEncoding.EncodeToString([]byte(plain)),
		"saslMechanism": "PLAIN",
	}, nil
}
