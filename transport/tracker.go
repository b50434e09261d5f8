package transport

import (
	"context"
	"sync"
)

// pendingCall is one outstanding Start, guarded so its completion fires
// exactly once whether delivery comes from the real result or from a
// FinishAsync deadline.
type pendingCall struct {
	once sync.Once
	done chan struct{}
	cb   CompletionFunc
}

// tracker is embeddable bookkeeping for transports whose async support
// needs to report TIMEOUT on FinishAsync's deadline (§5: "outstanding calls
// not completed by the deadline are reported as TIMEOUT on their respective
// handles and no further completion is delivered").
type tracker struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingCall
}

func (t *tracker) register(cb CompletionFunc) *pendingCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = make(map[uint64]*pendingCall)
	}
	id := t.nextID
	t.nextID++
	pc := &pendingCall{done: make(chan struct{}), cb: cb}
	t.pending[id] = pc
	return pc
}

func (t *tracker) forget(pc *pendingCall) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.pending {
		if p == pc {
			delete(t.pending, id)
			return
		}
	}
}

// deliver reports the real outcome of a call, unless it was already timed
// out by FinishAsync.
func (t *tracker) deliver(pc *pendingCall, resp []byte, err error) {
	pc.once.Do(func() {
		pc.cb(resp, err)
		close(pc.done)
	})
	t.forget(pc)
}

// finishAsync waits for every currently-pending call to complete or for ctx
// to be done, whichever comes first. Anything still outstanding when ctx is
// done is delivered ErrTimeout and will be a no-op if it later completes for
// real.
func (t *tracker) finishAsync(ctx context.Context) error {
	t.mu.Lock()
	pendings := make([]*pendingCall, 0, len(t.pending))
	for _, pc := range t.pending {
		pendings = append(pendings, pc)
	}
	t.mu.Unlock()

	for _, pc := range pendings {
		select {
		case <-pc.done:
		case <-ctx.Done():
			pc.once.Do(func() {
				pc.cb(nil, ErrTimeout)
				close(pc.done)
			})
			t.forget(pc)
		}
	}

	return ctx.Err()
}
