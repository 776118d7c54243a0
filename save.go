package annobuf

import (
	"context"
	"errors"
	"sync"
)

// Submitter sends an assembled submission payload to the backend and returns
// its structured verdict. Transport, auth, and retry policy live behind it.
type Submitter func(ctx context.Context, payload any) (SaveResponse, error)

// ErrSaveSuperseded resolves a pending coalesced save that was replaced by a
// newer snapshot before it started.
var ErrSaveSuperseded = errors.New("annobuf: save superseded by a newer snapshot")

// SaveResult delivers a save's outcome together with the exact buffer
// snapshot the request was issued against. Server errors must be applied to
// that snapshot's lineage, never to whatever document is open by the time the
// response lands.
type SaveResult struct {
	Doc  DocumentBuffer
	Resp SaveResponse
	Err  error
}

type saveRequest struct {
	ctx  context.Context
	doc  DocumentBuffer
	done chan SaveResult
}

// SaveCoordinator serializes saves: at most one submission is in flight at a
// time. A save requested while one is outstanding is coalesced: it waits as
// the single queued request, and a third save supersedes it (the superseded
// caller gets ErrSaveSuperseded). Responses are never interleaved.
type SaveCoordinator struct {
	submit Submitter

	mu       sync.Mutex
	inflight bool
	queued   *saveRequest
}

// NewSaveCoordinator wires a coordinator to a transport boundary.
func NewSaveCoordinator(submit Submitter) *SaveCoordinator {
	return &SaveCoordinator{submit: submit}
}

// Save submits doc's payload, or queues it behind the in-flight save. The
// returned channel delivers exactly one SaveResult.
func (c *SaveCoordinator) Save(ctx context.Context, doc DocumentBuffer) <-chan SaveResult {
	req := &saveRequest{ctx: ctx, doc: doc, done: make(chan SaveResult, 1)}
	c.mu.Lock()
	if c.inflight {
		if c.queued != nil {
			c.queued.done <- SaveResult{Doc: c.queued.doc, Err: ErrSaveSuperseded}
		}
		c.queued = req
		c.mu.Unlock()
		return req.done
	}
	c.inflight = true
	c.mu.Unlock()
	go c.run(req)
	return req.done
}

// InFlight reports whether a submission is currently outstanding.
func (c *SaveCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

func (c *SaveCoordinator) run(req *saveRequest) {
	for req != nil {
		if err := req.ctx.Err(); err != nil {
			req.done <- SaveResult{Doc: req.doc, Err: err}
		} else {
			resp, err := c.submit(req.ctx, req.doc.ToSubmissionPayload())
			req.done <- SaveResult{Doc: req.doc, Resp: resp, Err: err}
		}
		c.mu.Lock()
		req = c.queued
		c.queued = nil
		if req == nil {
			c.inflight = false
		}
		c.mu.Unlock()
	}
}
