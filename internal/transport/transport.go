// Package transport implements the Chord RPC layer (spec component C4):
// correlation-id-keyed pending calls over a connectionless datagram
// socket, a single shared timeout sweep, and a per-call retry/failure
// policy. It is grounded in an earlier internal/client package — the
// sentinel-error idiom of internal/client/handler.go
// (ErrClientNotInPool/ErrTimeout/ErrNoPredecessor) and the
// RWMutex-guarded-map idiom of internal/client/clientpool.go — adapted
// from a map of *grpc.ClientConn keyed by address to a map of pending
// calls keyed by correlation id, since spec.md's transport has no
// per-peer connection object, only request/response datagrams.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"chordnode/internal/chorderr"
	"chordnode/internal/logger"
	"chordnode/internal/wire"
)

// Sender abstracts the raw datagram socket so Transport never owns it
// directly; per spec §9's single-event-loop-goroutine model the socket
// is opened and read by the server package, and Transport is only ever
// handed a way to write to it.
type Sender interface {
	SendTo(addr *net.UDPAddr, data []byte) error
}

// Policy selects what happens when a call's deadline expires with no
// response, per spec §4.4.
type Policy int

const (
	// NoRetry fails the call immediately on timeout (check_predecessor:
	// spec says a timed-out probe just means "predecessor looks dead",
	// retrying would only delay that conclusion).
	NoRetry Policy = iota
	// RetryOnce resends the same request once before failing (the
	// control RPCs: get_predecessor, get_successor_list,
	// start_find_successor — a single lost datagram shouldn't trigger a
	// routing-table mutation).
	RetryOnce
)

// pendingCall tracks one in-flight request awaiting its response.
type pendingCall struct {
	addr        *net.UDPAddr
	req         wire.Message
	expectedTag wire.Tag
	policy      Policy
	attempts    int
	deadline    time.Time

	// Exactly one of done/onComplete is set: done for the blocking Send
	// path, onComplete for the non-blocking SendAsync path used by the
	// lookup engine's recursive forwarding (spec §5's continuations).
	done       chan callResult
	onComplete func(wire.Message, error)
}

type callResult struct {
	msg wire.Message
	err error
}

// Transport owns the correlation-id space and the pending-call table.
type Transport struct {
	logger  logger.Logger
	sender  Sender
	timeout time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingCall
}

// New builds a Transport writing through sender, with defaultTimeout
// applied to every call (spec §4.4's 1s default); calls carry no
// timeout of their own.
func New(sender Sender, defaultTimeout time.Duration, opts ...Option) *Transport {
	t := &Transport{
		logger:  logger.NopLogger{},
		sender:  sender,
		timeout: defaultTimeout,
		pending: make(map[uint64]*pendingCall),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) allocID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return t.nextID
}

// Send issues req to addr and blocks until a matching response arrives,
// the context is canceled, or the deadline expires. It is meant for
// callers outside the event-loop goroutine — bootstrap join, the
// interactive probe commands — that can afford to block their own
// goroutine on a reply.
func (t *Transport) Send(ctx context.Context, addr *net.UDPAddr, req wire.Message, policy Policy) (wire.Message, error) {
	corrID := t.allocID()
	done := make(chan callResult, 1)
	call := &pendingCall{
		addr:        addr,
		req:         req,
		expectedTag: responseTagFor(req.Tag()),
		policy:      policy,
		deadline:    time.Now().Add(t.timeout),
		done:        done,
	}
	t.register(corrID, call)

	if err := t.write(corrID, call); err != nil {
		t.forget(corrID)
		return nil, err
	}

	select {
	case res := <-done:
		return res.msg, res.err
	case <-ctx.Done():
		t.forget(corrID)
		return nil, ctx.Err()
	}
}

// SendAsync issues req to addr without blocking the caller; onComplete
// runs from the dispatcher goroutine (Deliver or Sweep) once a response
// arrives or the call times out. This is the non-blocking continuation
// path the single event-loop goroutine uses to forward a lookup one hop
// further without stalling on the round trip (spec §5, §9).
func (t *Transport) SendAsync(addr *net.UDPAddr, req wire.Message, policy Policy, onComplete func(wire.Message, error)) (uint64, error) {
	corrID := t.allocID()
	call := &pendingCall{
		addr:        addr,
		req:         req,
		expectedTag: responseTagFor(req.Tag()),
		policy:      policy,
		deadline:    time.Now().Add(t.timeout),
		onComplete:  onComplete,
	}
	t.register(corrID, call)

	if err := t.write(corrID, call); err != nil {
		t.forget(corrID)
		return 0, err
	}
	return corrID, nil
}

func (t *Transport) register(corrID uint64, call *pendingCall) {
	t.mu.Lock()
	t.pending[corrID] = call
	t.mu.Unlock()
}

func (t *Transport) forget(corrID uint64) {
	t.mu.Lock()
	delete(t.pending, corrID)
	t.mu.Unlock()
}

func (t *Transport) write(corrID uint64, call *pendingCall) error {
	call.attempts++
	packet := wire.EncodePacket(corrID, call.req)
	if err := t.sender.SendTo(call.addr, packet); err != nil {
		return fmt.Errorf("transport: send to %s: %w", call.addr, err)
	}
	return nil
}

// Deliver hands an inbound response to its pending call, if any. It
// returns false when corrID names no call the transport is waiting on
// (a duplicate, a very late arrival after the sweep already failed it,
// or a response to a call this node never made), or when msg's tag
// doesn't match what that call is actually waiting for. The latter check
// matters: spec.md flags a prior wait_for_response as buggy for
// letting a same-correlation-id response of the *wrong* type end the
// wait. Here a tag mismatch leaves the call pending — it can still be
// satisfied by a later, correctly-tagged arrival, or eventually time out.
func (t *Transport) Deliver(corrID uint64, msg wire.Message) bool {
	t.mu.Lock()
	call, ok := t.pending[corrID]
	if ok && call.expectedTag == msg.Tag() {
		delete(t.pending, corrID)
	} else {
		ok = false
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.complete(call, msg, nil)
	return true
}

// Sweep scans the pending table for expired calls. Calls under
// RetryOnce that haven't been retried yet are resent with a fresh
// deadline; everything else that's expired fails with chorderr.Timeout.
// It is driven by the event loop's transport-timeout ticker (spec §9),
// never by a timer private to a single call.
func (t *Transport) Sweep(now time.Time) {
	var retry []struct {
		id   uint64
		call *pendingCall
	}
	var fail []*pendingCall

	t.mu.Lock()
	for id, call := range t.pending {
		if call.deadline.After(now) {
			continue
		}
		if call.policy == RetryOnce && call.attempts < 2 {
			call.deadline = now.Add(t.timeout)
			retry = append(retry, struct {
				id   uint64
				call *pendingCall
			}{id, call})
			continue
		}
		delete(t.pending, id)
		fail = append(fail, call)
	}
	t.mu.Unlock()

	for _, r := range retry {
		if err := t.write(r.id, r.call); err != nil {
			t.forget(r.id)
			t.complete(r.call, nil, err)
		}
	}
	for _, call := range fail {
		t.complete(call, nil, chorderr.Timeout)
	}
}

// Outstanding reports how many calls are awaiting a response, for tests
// and diagnostics.
func (t *Transport) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// responseTagFor maps a request tag to the one response tag that can
// legitimately satisfy it. NOTIFY has no entry: it's a one-way advisory
// (spec §4.2), never registered as a pending call in the first place.
func responseTagFor(reqTag wire.Tag) wire.Tag {
	switch reqTag {
	case wire.TagGetPredecessorRequest:
		return wire.TagGetPredecessorResponse
	case wire.TagGetSuccessorListRequest:
		return wire.TagGetSuccessorListResponse
	case wire.TagStartFindSuccessorRequest:
		return wire.TagStartFindSuccessorResponse
	case wire.TagCheckPredecessorRequest:
		return wire.TagCheckPredecessorResponse
	default:
		return 0
	}
}

func (t *Transport) complete(call *pendingCall, msg wire.Message, err error) {
	if call.done != nil {
		call.done <- callResult{msg: msg, err: err}
		return
	}
	if call.onComplete != nil {
		call.onComplete(msg, err)
	}
}
