package gremlink

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"
)

// startEchoServer runs a websocket endpoint that echoes every frame back.
func startEchoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, payload); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newEchoTransport(t *testing.T) *wsTransport {
	t.Helper()
	cfg := config{
		dialTimeout: 5 * time.Second,
		msink:       &metrics.BlackholeSink{},
	}
	return newWSTransport(startEchoServer(t), &cfg, slog.Default())
}

func TestWSTransport_RoundTrip(t *testing.T) {
	tr := newEchoTransport(t)

	payloadCh := make(chan []byte, 1)
	require.NoError(t, tr.Dial(context.Background(), TransportHooks{
		OnMessage: func(payload []byte) { payloadCh <- payload },
		OnError:   func(err error) { t.Errorf("unexpected transport error: %v", err) },
		OnClose:   func() {},
	}))

	require.NoError(t, tr.Write([]byte("one frame out")))
	select {
	case payload := <-payloadCh:
		require.Equal(t, []byte("one frame out"), payload)
	case <-time.After(time.Second):
		t.Fatal("echoed frame never arrived")
	}

	require.NoError(t, tr.Close(context.Background()))
	require.ErrorIs(t, tr.Write([]byte("late")), ErrConnectionClosed)
}

func TestWSTransport_DeliberateCloseReportsOnClose(t *testing.T) {
	tr := newEchoTransport(t)

	var closed, failed atomic.Bool
	require.NoError(t, tr.Dial(context.Background(), TransportHooks{
		OnMessage: func([]byte) {},
		OnError:   func(error) { failed.Store(true) },
		OnClose:   func() { closed.Store(true) },
	}))

	require.NoError(t, tr.Close(context.Background()))

	require.Eventually(t, func() bool { return closed.Load() },
		time.Second, 5*time.Millisecond)
	require.False(t, failed.Load(),
		"a deliberate shutdown must never surface as a socket failure")
}
