package xmlrpc

import (
	"context"
	"fmt"
	"sync"

	"xmlrpc.dev/xmlrpc/transport"
)

// Client is the caller-side façade (§5): it drives a pluggable Transport
// against one Endpoint, offering both a synchronous Call and an
// asynchronous Start/Handle pair.
type Client struct {
	tr       transport.Transport
	endpoint transport.Endpoint
}

// NewClient builds a Client that sends requests to endpoint over tr.
func NewClient(tr transport.Transport, endpoint transport.Endpoint) *Client {
	return &Client{tr: tr, endpoint: endpoint}
}

// Call invokes method synchronously and returns its result. A protocol
// fault returned by the server comes back as a Fault error (recoverable
// with errors.As); anything else is a transport or encoding failure.
func (c *Client) Call(ctx context.Context, method string, params ParamList) (Value, error) {
	reqXML, err := EncodeMethodCall(method, params)
	if err != nil {
		return Value{}, fmt.Errorf("xmlrpc: encoding call: %w", err)
	}
	respXML, err := c.tr.Call(ctx, c.endpoint, reqXML)
	if err != nil {
		return Value{}, err
	}
	return ParseMethodResponse(respXML)
}

// state is a Handle's position in the Initial -> InProgress ->
// {Succeeded, Failed} state machine (§5).
type state int

const (
	stateInitial state = iota
	stateInProgress
	stateSucceeded
	stateFailed
)

// Handle tracks one asynchronous call started with Client.Start. It is
// safe for concurrent use; a Handle only ever moves forward through its
// states and settles exactly once.
type Handle struct {
	mu    sync.Mutex
	st    state
	done  chan struct{}
	value Value
	err   error
}

// NewHandle returns a fresh, unstarted Handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// IsFinished reports whether the call has settled, successfully or not.
func (h *Handle) IsFinished() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.st == stateSucceeded || h.st == stateFailed
}

// IsSuccessful reports whether a finished call succeeded. It fails with
// ErrNotFinished if the call has not settled yet.
func (h *Handle) IsSuccessful() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.st {
	case stateSucceeded:
		return true, nil
	case stateFailed:
		return false, nil
	default:
		return false, ErrNotFinished
	}
}

// Result returns the call's value. It fails with ErrNotFinished before
// settlement and ErrNotSuccessful if the call failed.
func (h *Handle) Result() (Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.st {
	case stateSucceeded:
		return h.value, nil
	case stateFailed:
		return Value{}, ErrNotSuccessful
	default:
		return Value{}, ErrNotFinished
	}
}

// Fault returns the protocol fault the call failed with, if any. It fails
// with ErrNotFinished before settlement and ErrNoFault if the call
// succeeded or failed for a reason other than a server-side fault.
func (h *Handle) Fault() (Fault, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.st {
	case stateSucceeded:
		return Fault{}, ErrNoFault
	case stateFailed:
		if f, ok := h.err.(Fault); ok {
			return f, nil
		}
		return Fault{}, fmt.Errorf("xmlrpc: %w: %v", ErrNoFault, h.err)
	default:
		return Fault{}, ErrNotFinished
	}
}

// Wait blocks until the call has settled or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.st != stateInitial {
		return ErrAlreadyRun
	}
	h.st = stateInProgress
	return nil
}

func (h *Handle) succeed(v Value) {
	h.mu.Lock()
	if h.st != stateInProgress {
		h.mu.Unlock()
		return
	}
	h.st = stateSucceeded
	h.value = v
	h.mu.Unlock()
	close(h.done)
}

func (h *Handle) fail(err error) {
	h.mu.Lock()
	if h.st != stateInProgress {
		h.mu.Unlock()
		return
	}
	h.st = stateFailed
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Start allocates a fresh Handle, begins method asynchronously, and
// returns the Handle immediately; its eventual outcome is observed through
// the Handle's methods, not through Start's own return value.
func (c *Client) Start(ctx context.Context, method string, params ParamList) (*Handle, error) {
	h := NewHandle()
	if err := c.StartWith(ctx, method, params, h); err != nil {
		return nil, err
	}
	return h, nil
}

// StartWith begins method asynchronously against the provided Handle. It
// fails synchronously with ErrAlreadyRun if h has already been started;
// every other failure (encoding, transport, a parse error, or a protocol
// fault) settles h rather than being returned here. Encoding failures and
// errors returned by the transport's Start settle h before StartWith
// returns; the rest settle it when the transport delivers its completion.
func (c *Client) StartWith(ctx context.Context, method string, params ParamList, h *Handle) error {
	if err := h.start(); err != nil {
		return err
	}

	reqXML, err := EncodeMethodCall(method, params)
	if err != nil {
		h.fail(fmt.Errorf("xmlrpc: encoding call: %w", err))
		return nil
	}

	startErr := c.tr.Start(ctx, c.endpoint, reqXML, func(respXML []byte, err error) {
		if err != nil {
			h.fail(err)
			return
		}
		v, err := ParseMethodResponse(respXML)
		if err != nil {
			h.fail(err)
			return
		}
		h.succeed(v)
	})
	if startErr != nil {
		h.fail(startErr)
	}
	return nil
}
