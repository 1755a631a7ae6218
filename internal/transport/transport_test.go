package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"chordnode/internal/chorderr"
	"chordnode/internal/wire"
)

// fakeSender records every datagram handed to it instead of touching a
// real socket, so these tests never open a port.
type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
	fail error
}

func (f *fakeSender) SendTo(addr *net.UDPAddr, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeSender) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var testAddr = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}

func TestSendDeliversResponse(t *testing.T) {
	sender := &fakeSender{}
	tr := New(sender, time.Second)

	resultCh := make(chan struct {
		msg wire.Message
		err error
	}, 1)
	go func() {
		msg, err := tr.Send(context.Background(), testAddr, wire.GetPredecessorRequest{}, RetryOnce)
		resultCh <- struct {
			msg wire.Message
			err error
		}{msg, err}
	}()

	// Wait for the datagram to land, then reply as the peer would.
	deadline := time.Now().Add(time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sender.count() != 1 {
		t.Fatalf("expected 1 datagram sent, got %d", sender.count())
	}
	corrID, _, err := wire.DecodePacket(sender.last())
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if !tr.Deliver(corrID, wire.GetPredecessorResponse{}) {
		t.Fatalf("Deliver reported no matching call")
	}

	select {
	case got := <-resultCh:
		if got.err != nil {
			t.Fatalf("Send returned error: %v", got.err)
		}
		if got.msg.Tag() != wire.TagGetPredecessorResponse {
			t.Fatalf("Send returned tag %v, want GetPredecessorResponse", got.msg.Tag())
		}
	case <-time.After(time.Second):
		t.Fatal("Send never returned")
	}
}

func TestSendAsyncContinuation(t *testing.T) {
	sender := &fakeSender{}
	tr := New(sender, time.Second)

	doneCh := make(chan error, 1)
	corrID, err := tr.SendAsync(testAddr, wire.CheckPredecessorRequest{}, NoRetry, func(msg wire.Message, err error) {
		doneCh <- err
	})
	if err != nil {
		t.Fatalf("SendAsync: %v", err)
	}
	if !tr.Deliver(corrID, wire.CheckPredecessorResponse{}) {
		t.Fatalf("Deliver reported no matching call")
	}
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("continuation error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}
	if tr.Outstanding() != 0 {
		t.Fatalf("Outstanding() = %d, want 0 after delivery", tr.Outstanding())
	}
}

func TestDeliverWrongTagDoesNotSatisfyCall(t *testing.T) {
	sender := &fakeSender{}
	tr := New(sender, time.Second)

	doneCh := make(chan error, 1)
	corrID, err := tr.SendAsync(testAddr, wire.GetPredecessorRequest{}, RetryOnce, func(_ wire.Message, err error) {
		doneCh <- err
	})
	if err != nil {
		t.Fatalf("SendAsync: %v", err)
	}

	// A response carrying the same correlation id but the wrong tag must
	// not satisfy the call (spec's flagged wait_for_response bug).
	if tr.Deliver(corrID, wire.GetSuccessorListResponse{}) {
		t.Fatalf("Deliver must reject a mismatched response tag")
	}
	select {
	case err := <-doneCh:
		t.Fatalf("continuation fired on a mismatched-tag response, err=%v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if tr.Outstanding() != 1 {
		t.Fatalf("Outstanding() = %d, want 1 (call must still be pending)", tr.Outstanding())
	}

	// The correctly-tagged response still satisfies it afterwards.
	if !tr.Deliver(corrID, wire.GetPredecessorResponse{}) {
		t.Fatalf("Deliver should accept the correctly-tagged response")
	}
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("continuation error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}
}

func TestDeliverUnknownCorrelationID(t *testing.T) {
	tr := New(&fakeSender{}, time.Second)
	if tr.Deliver(999, wire.CheckPredecessorResponse{}) {
		t.Fatalf("Deliver should report false for an unregistered correlation id")
	}
}

func TestSweepNoRetryFailsWithTimeout(t *testing.T) {
	sender := &fakeSender{}
	tr := New(sender, 10*time.Millisecond)

	doneCh := make(chan error, 1)
	if _, err := tr.SendAsync(testAddr, wire.CheckPredecessorRequest{}, NoRetry, func(_ wire.Message, err error) {
		doneCh <- err
	}); err != nil {
		t.Fatalf("SendAsync: %v", err)
	}

	tr.Sweep(time.Now().Add(20 * time.Millisecond))

	select {
	case err := <-doneCh:
		if err != chorderr.Timeout {
			t.Fatalf("continuation error = %v, want chorderr.Timeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}
	if tr.Outstanding() != 0 {
		t.Fatalf("Outstanding() = %d, want 0 after timeout", tr.Outstanding())
	}
}

func TestSweepRetryOnceResendsBeforeFailing(t *testing.T) {
	sender := &fakeSender{}
	tr := New(sender, 10*time.Millisecond)

	doneCh := make(chan error, 1)
	if _, err := tr.SendAsync(testAddr, wire.GetSuccessorListRequest{}, RetryOnce, func(_ wire.Message, err error) {
		doneCh <- err
	}); err != nil {
		t.Fatalf("SendAsync: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("expected 1 datagram after initial send, got %d", sender.count())
	}

	// First sweep past the deadline: RetryOnce resends instead of failing.
	tr.Sweep(time.Now().Add(20 * time.Millisecond))
	select {
	case err := <-doneCh:
		t.Fatalf("continuation fired too early with err=%v, retry should have happened first", err)
	case <-time.After(50 * time.Millisecond):
	}
	if sender.count() != 2 {
		t.Fatalf("expected a resend after first sweep, got %d datagrams", sender.count())
	}

	// Second sweep past the (new) deadline: now it fails.
	tr.Sweep(time.Now().Add(time.Second))
	select {
	case err := <-doneCh:
		if err != chorderr.Timeout {
			t.Fatalf("continuation error = %v, want chorderr.Timeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("continuation never ran after second sweep")
	}
}

func TestSendCanceledContext(t *testing.T) {
	tr := New(&fakeSender{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Send(ctx, testAddr, wire.GetPredecessorRequest{}, NoRetry); err == nil {
		t.Fatalf("expected an error from a pre-canceled context")
	}
	if tr.Outstanding() != 0 {
		t.Fatalf("Outstanding() = %d, want 0 after a canceled send", tr.Outstanding())
	}
}

func TestSendWriteFailureSurfacesImmediately(t *testing.T) {
	sender := &fakeSender{fail: errBoom}
	tr := New(sender, time.Second)
	if _, err := tr.Send(context.Background(), testAddr, wire.GetPredecessorRequest{}, NoRetry); err == nil {
		t.Fatalf("expected send failure to surface")
	}
	if tr.Outstanding() != 0 {
		t.Fatalf("Outstanding() = %d, want 0 after a failed send", tr.Outstanding())
	}
}

var errBoom = &net.OpError{Op: "write", Err: errFakeSocket{}}

type errFakeSocket struct{}

func (errFakeSocket) Error() string { return "fake socket error" }
