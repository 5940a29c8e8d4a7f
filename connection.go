package gremlink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
)

// State is the lifecycle state of a Connection. Transitions within one
// lifecycle are monotonic; Open after StateClosed begins a fresh lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// pendingOp is a shared, waitable outcome for an in-flight open or close.
// Every caller issued while the operation is outstanding attaches to the
// same pendingOp and observes one resolution.
type pendingOp struct {
	done chan struct{}
	err  error
}

func newPendingOp() *pendingOp {
	return &pendingOp{done: make(chan struct{})}
}

func (op *pendingOp) resolve(err error) {
	op.err = err
	close(op.done)
}

func (op *pendingOp) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-op.done:
		return op.err
	}
}

// Connection multiplexes any number of logical requests over one physical
// session to a graph-traversal server. Each request is tagged with a
// correlation id; chunked responses are reassembled in arrival order and
// delivered to the right caller regardless of interleaving on the wire.
//
// A Connection owns exactly one transport session at a time. All methods are
// safe for concurrent use.
type Connection struct {
	config config
	logger *slog.Logger
	url    string

	tr       Transport
	registry *requestRegistry
	events   chan Event

	lk       sync.Mutex
	state    State
	opening  *pendingOp
	shutting *pendingOp
}

// Dial creates a Connection to the server at url and, unless
// WithDeferredConnect is given, opens the transport session before
// returning.
func Dial(ctx context.Context, url string, opts ...Option) (*Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty server address", ErrInvalidCfg)
	}

	cfg := config{
		mimeType:        MimeGraphSON3,
		traversalSource: "g",
		dialTimeout:     30 * time.Second,
		eventBuffer:     16,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	if len(cfg.mimeType) > maxMimeLen {
		return nil, fmt.Errorf("%w: mime type longer than %d bytes", ErrInvalidCfg, maxMimeLen)
	}
	cfg.header = []byte(cfg.mimeType)

	if cfg.reader == nil || cfg.writer == nil {
		reader, writer, err := codecForMime(cfg.mimeType)
		if err != nil {
			return nil, err
		}
		if cfg.reader == nil {
			cfg.reader = reader
		}
		if cfg.writer == nil {
			cfg.writer = writer
		}
	}

	var logger *slog.Logger
	if cfg.logHandler != nil {
		logger = slog.New(cfg.logHandler)
	} else {
		logger = slog.Default()
	}

	if cfg.msink == nil {
		cfg.msink = metrics.Default()
	}

	c := &Connection{
		config:   cfg,
		logger:   logger,
		url:      url,
		registry: newRequestRegistry(),
		events:   make(chan Event, cfg.eventBuffer),
	}

	if cfg.transport != nil {
		c.tr = cfg.transport
	} else {
		c.tr = newWSTransport(url, &c.config, logger)
	}

	if !cfg.deferConnect {
		if err := c.Open(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.state
}

// Open makes sure the transport session is established. It is idempotent:
// while a handshake is outstanding every caller attaches to the same
// outcome, and once open it returns immediately without touching the
// transport again. Open after Close begins a fresh lifecycle.
func (c *Connection) Open(ctx context.Context) error {
	c.lk.Lock()
	switch c.state {
	case StateOpen:
		c.lk.Unlock()
		return nil
	case StateConnecting:
		op := c.opening
		c.lk.Unlock()
		return op.wait(ctx)
	case StateClosing:
		c.lk.Unlock()
		return ErrClosing
	default: // StateIdle, StateClosed
		op := newPendingOp()
		c.opening = op
		c.state = StateConnecting
		c.lk.Unlock()
		go c.connect(op)
		return op.wait(ctx)
	}
}

func (c *Connection) connect(op *pendingOp) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.dialTimeout)
	defer cancel()

	err := c.tr.Dial(ctx, TransportHooks{
		OnMessage: c.dispatch,
		OnError:   c.onSocketError,
		OnClose:   c.onSocketClose,
	})

	c.lk.Lock()
	if err != nil {
		c.state = StateIdle
		c.opening = nil
		c.lk.Unlock()
		op.resolve(err)
		return
	}
	// The read pump may already have torn the session down again; only
	// advance when this lifecycle is still the current one, and never
	// report an open session that is in fact gone.
	if c.state != StateConnecting {
		c.lk.Unlock()
		op.resolve(ErrConnectionClosed)
		return
	}
	c.state = StateOpen
	c.lk.Unlock()

	c.logger.Info("connection open", "address", c.url)
	op.resolve(nil)
}

// Close shuts the transport session down. It is idempotent and memoized the
// same way Open is. Requests still pending when the session ends are
// completed with a TransportError so no caller hangs.
func (c *Connection) Close(ctx context.Context) error {
	c.lk.Lock()
	switch c.state {
	case StateIdle, StateClosed:
		c.lk.Unlock()
		return nil
	case StateClosing:
		op := c.shutting
		c.lk.Unlock()
		return op.wait(ctx)
	case StateConnecting:
		op := c.opening
		c.lk.Unlock()
		// If the wait itself fails (ctx expiry, dial failure) the state may
		// still be StateConnecting; recursing would never terminate.
		if err := op.wait(ctx); err != nil {
			return err
		}
		return c.Close(ctx)
	default: // StateOpen
		op := newPendingOp()
		c.shutting = op
		c.state = StateClosing
		c.lk.Unlock()
		go c.shutdown(op)
		return op.wait(ctx)
	}
}

func (c *Connection) shutdown(op *pendingOp) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.dialTimeout)
	defer cancel()

	start := time.Now()
	err := c.tr.Close(ctx)
	c.cleanup(&TransportError{Err: ErrConnectionClosed})
	c.notify(Event{Kind: EventClosed})
	c.logger.Info("connection closed", LabelDuration.L(time.Since(start)))
	op.resolve(err)
}

// cleanup releases the transport session state: the lifecycle ends, both
// memoized operations are cleared, and every still-pending request is
// completed with cause.
func (c *Connection) cleanup(cause error) {
	c.lk.Lock()
	if c.state == StateClosed {
		c.lk.Unlock()
		return
	}
	c.state = StateClosed
	c.opening = nil
	c.shutting = nil
	c.lk.Unlock()

	if n := c.registry.broadcast(cause); n > 0 {
		c.logger.Warn("failed in-flight requests on session loss", "count", n)
	}
	c.trackPending()
}

func (c *Connection) onSocketError(err error) {
	c.logger.Error("transport failure", LabelError.L(err))
	c.notify(Event{Kind: EventSocketError, Err: err})
	c.cleanup(&TransportError{Err: err})
}

func (c *Connection) onSocketClose() {
	c.lk.Lock()
	deliberate := c.state == StateClosing || c.state == StateClosed
	c.lk.Unlock()
	if deliberate {
		// the shutdown path owns cleanup.
		return
	}
	c.logger.Warn("server ended the session")
	c.notify(Event{Kind: EventClosed})
	c.cleanup(&TransportError{Err: ErrConnectionClosed})
}

// Submit sends one request and blocks until its terminal response arrives.
// A fresh correlation id is drawn when req.ID is zero. Cancelling ctx
// abandons the caller's wait and counts as the request's completion; the
// core itself never times a request out.
func (c *Connection) Submit(ctx context.Context, req Request) (*ResultSet, error) {
	if err := c.Open(ctx); err != nil {
		return nil, err
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	id := req.ID

	type outcome struct {
		rs  *ResultSet
		err error
	}
	outcomeCh := make(chan outcome, 1)
	err := c.registry.register(id, func(rs *ResultSet, err error) {
		outcomeCh <- outcome{rs: rs, err: err}
	})
	if err != nil {
		return nil, err
	}

	c.config.msink.IncrCounterWithLabels(MetricRequestCount, 1.0, c.config.metricLabels)
	c.trackPending()

	frame, err := c.buildFrame(req)
	if err == nil {
		err = c.tr.Write(frame)
	}
	if err != nil {
		c.config.msink.IncrCounterWithLabels(
			MetricRequestErrorCount,
			1.0,
			append(c.config.metricLabels, LabelError.M("send")),
		)
		c.registry.complete(id, nil, err)
		c.trackPending()
		out := <-outcomeCh
		return nil, out.err
	}

	select {
	case out := <-outcomeCh:
		c.trackPending()
		return out.rs, out.err
	case <-ctx.Done():
		c.registry.complete(id, nil, ctx.Err())
		c.trackPending()
		out := <-outcomeCh
		return out.rs, out.err
	}
}

// trackPending mirrors the registry population into the pending gauge. Called
// whenever a request is registered or removed.
func (c *Connection) trackPending() {
	c.config.msink.SetGaugeWithLabels(
		MetricRequestPending,
		float32(c.registry.size()),
		c.config.metricLabels,
	)
}

// dispatch consumes one parsed inbound envelope and applies the status-code
// policy. It runs on the transport's read pump, so registry mutation and
// lifecycle reactions are never interleaved.
func (c *Connection) dispatch(payload []byte) {
	env, err := c.config.reader.Read(payload)
	if err != nil {
		// Correlation is lost entirely; conservatively fail everyone
		// rather than risk silent hangs.
		c.config.msink.IncrCounterWithLabels(
			MetricFrameInErrorCount,
			1.0,
			append(c.config.metricLabels, LabelError.M("parse")),
		)
		c.logger.Error("unparseable response payload", LabelError.L(err))
		c.broadcastOrphan("")
		return
	}

	if env.RequestID == uuid.Nil {
		c.logger.Warn(
			"response without correlation id",
			LabelStatusCode.L(env.Status.Code),
			"message", env.Status.Message,
		)
		c.broadcastOrphan(env.Status.Message)
		return
	}

	id := env.RequestID
	code := env.Status.Code
	switch {
	case code == StatusChallenge && c.config.authenticator != nil:
		if !c.registry.has(id) {
			c.dropFrame(id, code)
			return
		}
		c.config.msink.IncrCounterWithLabels(MetricAuthChallengeCount, 1.0, c.config.metricLabels)
		go c.answerChallenge(id, env.Data)
	case code == StatusNoContent:
		if !c.registry.complete(id, newResultSet(nil, env.Status.Attributes), nil) {
			c.dropFrame(id, code)
		}
	case code == StatusPartialContent:
		c.config.msink.IncrCounterWithLabels(MetricChunkInCount, 1.0, c.config.metricLabels)
		if !c.registry.accumulate(id, env.Data) {
			c.dropFrame(id, code)
		}
	case code >= 400:
		c.config.msink.IncrCounterWithLabels(
			MetricRequestErrorCount,
			1.0,
			append(c.config.metricLabels, LabelError.M("server")),
		)
		terminal := &ResponseError{
			StatusCode:    code,
			StatusMessage: env.Status.Message,
			Attributes:    env.Status.Attributes,
		}
		if !c.registry.complete(id, nil, terminal) {
			c.dropFrame(id, code)
		}
	default: // StatusSuccess and anything else below 400
		if !c.registry.finish(id, env.Data, env.Status.Attributes) {
			c.dropFrame(id, code)
		}
	}
}

func (c *Connection) broadcastOrphan(message string) {
	c.config.msink.IncrCounterWithLabels(MetricOrphanCount, 1.0, c.config.metricLabels)
	if n := c.registry.broadcast(&OrphanError{StatusMessage: message}); n > 0 {
		c.logger.Warn("failed in-flight requests on orphan response", "count", n)
	}
	c.trackPending()
}

// dropFrame records a response whose request is gone, e.g. after a
// broadcast error already fired its continuation. Not an error condition.
func (c *Connection) dropFrame(id uuid.UUID, code int) {
	c.config.msink.IncrCounterWithLabels(MetricFrameDropCount, 1.0, c.config.metricLabels)
	c.logger.Debug(
		"dropping response for unknown correlation id",
		LabelRequestID.L(id.String()),
		LabelStatusCode.L(code),
	)
}

// answerChallenge resolves a mid-stream credential challenge and re-submits
// under the original correlation id, so the eventual terminal response still
// targets the original caller.
func (c *Connection) answerChallenge(id uuid.UUID, challenge []interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.dialTimeout)
	defer cancel()

	creds, err := c.config.authenticator.EvaluateChallenge(ctx, challenge)
	if err != nil {
		c.registry.complete(id, nil, &AuthenticationError{Err: err})
		return
	}

	frame, err := c.buildFrame(Request{ID: id, Op: OpAuthentication, Args: creds})
	if err == nil {
		err = c.tr.Write(frame)
	}
	if err != nil {
		c.registry.complete(id, nil, err)
	}
}
