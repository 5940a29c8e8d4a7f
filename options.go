package gremlink

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-metrics"
)

type config struct {
	mimeType        string
	header          []byte
	reader          Reader
	writer          Writer
	traversalSource string
	authenticator   Authenticator
	headers         http.Header
	protocols       []string
	deferConnect    bool
	dialTimeout     time.Duration
	pingInterval    time.Duration
	eventBuffer     int
	transport       Transport
	logHandler      slog.Handler
	msink           metrics.MetricSink
	metricLabels    []metrics.Label
}

// Option to pass to `Dial`.
type Option func(*config) error

// WithMimeType selects the wire format and, with it, the built-in codec
// variant. The mime type is sent as the header of every outbound frame.
func WithMimeType(mime string) Option {
	return func(c *config) error {
		if mime != "" {
			c.mimeType = mime
		}
		return nil
	}
}

// WithReader overrides the inbound codec.
func WithReader(r Reader) Option {
	return func(c *config) error {
		c.reader = r
		return nil
	}
}

// WithWriter overrides the outbound value adaptation.
func WithWriter(w Writer) Option {
	return func(c *config) error {
		c.writer = w
		return nil
	}
}

// WithTraversalSource sets the alias under which the remote query-execution
// context is addressed. Defaults to "g".
func WithTraversalSource(alias string) Option {
	return func(c *config) error {
		if alias != "" {
			c.traversalSource = alias
		}
		return nil
	}
}

// WithAuthenticator installs the challenge handler invoked on a mid-stream
// 407 response. Without one, challenges surface as ResponseError.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *config) error {
		c.authenticator = auth
		return nil
	}
}

// WithHeaders adds request-level headers to the transport handshake.
func WithHeaders(headers http.Header) Option {
	return func(c *config) error {
		c.headers = headers
		return nil
	}
}

// WithProtocols sets the sub-protocol negotiation list offered during the
// transport handshake.
func WithProtocols(protocols []string) Option {
	return func(c *config) error {
		c.protocols = protocols
		return nil
	}
}

// WithDeferredConnect delays opening the transport session until the first
// use instead of connecting on construction.
func WithDeferredConnect() Option {
	return func(c *config) error {
		c.deferConnect = true
		return nil
	}
}

// WithDialTimeout controls how much time we are willing to wait for the
// transport handshake.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.dialTimeout = timeout
		return nil
	}
}

// WithPingInterval enables keepalive pings on the transport session. Zero
// disables them.
func WithPingInterval(interval time.Duration) Option {
	return func(c *config) error {
		c.pingInterval = interval
		return nil
	}
}

// WithTransport replaces the default websocket transport. Mostly useful for
// tests and custom tunnels.
func WithTransport(tr Transport) Option {
	return func(c *config) error {
		c.transport = tr
		return nil
	}
}

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted by
// the connection.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to all metrics produced by the
// connection.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}
