package gremlink

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-metrics"
)

const closeWriteWait = 5 * time.Second

// TransportHooks receive inbound transport events. They are invoked from the
// transport's read pump, one event at a time, never concurrently.
type TransportHooks struct {
	// OnMessage delivers one inbound frame payload.
	OnMessage func(payload []byte)

	// OnError reports a transport failure. No further events follow.
	OnError func(err error)

	// OnClose confirms a deliberate shutdown. No further events follow.
	OnClose func()
}

// Transport is a duplex, message-oriented session. One Dial per lifecycle;
// a Transport may be dialed again after Close to begin a fresh session.
type Transport interface {
	Dial(ctx context.Context, hooks TransportHooks) error
	Write(payload []byte) error
	Close(ctx context.Context) error
}

// wsTransport is the default Transport, a websocket session with a single
// read pump and mutex-serialized writes.
type wsTransport struct {
	url          string
	headers      http.Header
	protocols    []string
	dialTimeout  time.Duration
	pingInterval time.Duration

	logger *slog.Logger
	msink  metrics.MetricSink
	labels []metrics.Label

	// graceful termination asked, the read pump reports OnClose instead of
	// OnError when the socket goes away.
	gracefulTerm atomic.Bool

	lk       sync.Mutex
	conn     *websocket.Conn
	pingDone chan struct{}
}

var _ Transport = (*wsTransport)(nil)

func newWSTransport(url string, cfg *config, logger *slog.Logger) *wsTransport {
	return &wsTransport{
		url:          url,
		headers:      cfg.headers,
		protocols:    cfg.protocols,
		dialTimeout:  cfg.dialTimeout,
		pingInterval: cfg.pingInterval,
		logger:       logger,
		msink:        cfg.msink,
		labels:       cfg.metricLabels,
	}
}

func (t *wsTransport) Dial(ctx context.Context, hooks TransportHooks) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.dialTimeout,
		Subprotocols:     t.protocols,
	}

	conn, resp, err := dialer.DialContext(ctx, t.url, t.headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.msink.IncrCounterWithLabels(
			MetricConnErrorCount,
			1.0,
			append(t.labels, LabelError.M("dial")),
		)
		return fmt.Errorf("%w: %w", ErrDial, err)
	}

	t.lk.Lock()
	t.gracefulTerm.Store(false)
	t.conn = conn
	t.pingDone = make(chan struct{})
	pingDone := t.pingDone
	t.lk.Unlock()

	t.msink.IncrCounterWithLabels(MetricConnEstCount, 1.0, t.labels)
	t.logger.Debug("transport session established", LabelRemoteAddr.L(conn.RemoteAddr().String()))

	go t.readPump(conn, pingDone, hooks)
	if t.pingInterval > 0 {
		go t.pinger(conn, pingDone)
	}
	return nil
}

func (t *wsTransport) readPump(conn *websocket.Conn, pingDone chan struct{}, hooks TransportHooks) {
	defer close(pingDone)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if t.gracefulTerm.Load() {
				t.logger.Debug("transport session gracefully shut down")
				hooks.OnClose()
				return
			}
			t.msink.IncrCounterWithLabels(
				MetricConnErrorCount,
				1.0,
				append(t.labels, LabelError.M("read")),
			)
			hooks.OnError(err)
			return
		}
		t.msink.IncrCounterWithLabels(MetricFrameInBytes, float32(len(payload)), t.labels)
		hooks.OnMessage(payload)
	}
}

func (t *wsTransport) pinger(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(closeWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				t.logger.Warn("keepalive ping failed", LabelError.L(err))
				return
			}
		}
	}
}

func (t *wsTransport) Write(payload []byte) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	if t.conn == nil {
		return ErrConnectionClosed
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		t.msink.IncrCounterWithLabels(
			MetricFrameOutErrorCount,
			1.0,
			append(t.labels, LabelError.M("write")),
		)
		return &TransportError{Err: err}
	}
	t.msink.IncrCounterWithLabels(MetricFrameOutBytes, float32(len(payload)), t.labels)
	return nil
}

func (t *wsTransport) Close(ctx context.Context) error {
	// Mark the termination graceful before touching the socket so a read
	// failure racing the teardown reports OnClose, not OnError.
	t.gracefulTerm.Store(true)

	t.lk.Lock()
	conn := t.conn
	t.conn = nil
	t.lk.Unlock()
	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(closeWriteWait)
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		t.logger.Debug("could not send close frame", LabelError.L(err))
	}
	return conn.Close()
}
