package gremlink

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainTextAuthenticator(t *testing.T) {
	auth := &PlainTextAuthenticator{Username: "marko", Password: "rainbow-road"}

	args, err := auth.EvaluateChallenge(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "PLAIN", args["saslMechanism"])

	decoded, err := base64.StdEncoding.DecodeString(args["sasl"].(string))
	require.NoError(t, err)
	require.Equal(t, "\x00marko\x00rainbow-road", string(decoded))
}

func TestPlainTextAuthenticator_AuthzID(t *testing.T) {
	auth := &PlainTextAuthenticator{AuthzID: "ops", Username: "marko", Password: "pw"}

	args, err := auth.EvaluateChallenge(context.Background(), nil)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(args["sasl"].(string))
	require.NoError(t, err)
	require.Equal(t, "ops\x00marko\x00pw", string(decoded))
}
