// Package gremlink manages a single persistent, bidirectional session to a
// graph-traversal query server.
//
// Many logical requests from independent callers are multiplexed over one
// physical connection. Each request is tagged with a correlation id so that
// its possibly chunked response can be reassembled and delivered to the
// right caller, no matter how the traffic interleaves on the wire.
//
// # How it works
//
// `Dial` opens a `Connection`; `Open` and `Close` are idempotent and
// memoized, so concurrent callers share one outcome. `Submit` registers a
// pending request under a fresh UUID, builds the wire frame (one length byte,
// the mime-type header, then the JSON body) and blocks until the correlated
// terminal response arrives.
//
// Inbound responses drive a small status-code state machine: 200 completes
// with the accumulated result, 204 completes empty, 206 appends a chunk,
// 407 triggers the configured `Authenticator` transparently under the same
// correlation id, and anything else at or above 400 fails the request. A
// response without a usable correlation id fails every in-flight request,
// because the alternative is a silent hang.
//
// # Design Principles
//
// The core never abandons a request on its own: every registered request is
// completed exactly once, whether by its response, by a caller's context, or
// by a broadcast when the transport is lost. Retry and timeout policy belong
// to the caller.
//
// The transport, the value codec and the credential logic are pluggable
// collaborators (`Transport`, `Reader`/`Writer`, `Authenticator`); the
// defaults speak websocket and a GraphSON-flavoured JSON.
package gremlink
