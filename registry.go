package gremlink

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/google/uuid"
)

// continuation receives a pending request's terminal outcome. It fires
// exactly once.
type continuation func(*ResultSet, error)

type pendingRequest struct {
	deliver continuation

	// chunks holds partial-content payloads in arrival order. It is created
	// on the first chunk and drained exactly once at completion.
	chunks *queue.Queue
}

// requestRegistry maps correlation id to pending request. Submitters insert,
// the dispatcher removes; both run under one mutex, the only two
// size-changing operations.
type requestRegistry struct {
	lk      sync.Mutex
	pending map[uuid.UUID]*pendingRequest
}

func newRequestRegistry() *requestRegistry {
	return &requestRegistry{
		pending: make(map[uuid.UUID]*pendingRequest),
	}
}

func (r *requestRegistry) register(id uuid.UUID, deliver continuation) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, exists := r.pending[id]; exists {
		return ErrDuplicateRequest
	}
	r.pending[id] = &pendingRequest{deliver: deliver}
	return nil
}

func (r *requestRegistry) has(id uuid.UUID) bool {
	r.lk.Lock()
	defer r.lk.Unlock()
	_, exists := r.pending[id]
	return exists
}

func (r *requestRegistry) size() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return len(r.pending)
}

// accumulate appends a chunk to the request's buffer, creating the buffer on
// first use. It reports whether the id is still pending.
func (r *requestRegistry) accumulate(id uuid.UUID, chunk []interface{}) bool {
	r.lk.Lock()
	defer r.lk.Unlock()
	req, exists := r.pending[id]
	if !exists {
		return false
	}
	if req.chunks == nil {
		req.chunks = queue.New()
	}
	req.chunks.Add(chunk)
	return true
}

// complete fires the continuation with a ready outcome and removes the
// entry. Any buffered chunks are discarded.
func (r *requestRegistry) complete(id uuid.UUID, rs *ResultSet, err error) bool {
	r.lk.Lock()
	req, exists := r.pending[id]
	if !exists {
		r.lk.Unlock()
		return false
	}
	delete(r.pending, id)
	r.lk.Unlock()

	req.deliver(rs, err)
	return true
}

// finish appends any trailing data, drains the buffer into a ResultSet
// carrying the final status attributes, and completes the request.
func (r *requestRegistry) finish(id uuid.UUID, trailing []interface{}, attributes map[string]interface{}) bool {
	r.lk.Lock()
	req, exists := r.pending[id]
	if !exists {
		r.lk.Unlock()
		return false
	}
	delete(r.pending, id)

	var data []interface{}
	if req.chunks != nil {
		for req.chunks.Length() > 0 {
			data = append(data, req.chunks.Remove().([]interface{})...)
		}
	}
	data = append(data, trailing...)
	r.lk.Unlock()

	req.deliver(newResultSet(data, attributes), nil)
	return true
}

// broadcast fails every pending request with err and clears the registry.
// Used when correlation information itself is lost. Returns how many
// requests were failed.
func (r *requestRegistry) broadcast(err error) int {
	r.lk.Lock()
	failed := make([]*pendingRequest, 0, len(r.pending))
	for id, req := range r.pending {
		failed = append(failed, req)
		delete(r.pending, id)
	}
	r.lk.Unlock()

	for _, req := range failed {
		req.deliver(nil, err)
	}
	return len(failed)
}
