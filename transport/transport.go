// Package transport defines the abstract carriage a Client drives calls
// over (C6): a uniform synchronous/asynchronous interface that concrete
// transports (transport/http) and the in-process transport/direct
// implement.
package transport

import (
	"context"
	"errors"
)

// ErrCarriageType is returned when an Endpoint was built for a different
// transport than the one it is handed to.
var ErrCarriageType = errors.New("transport: endpoint type mismatch")

// ErrTimeout marks a call that did not complete before FinishAsync's
// deadline elapsed. No further completion is delivered for it afterward.
var ErrTimeout = errors.New("transport: call timed out")

// Endpoint is an opaque, per-transport carriage parameter (destination URL,
// headers, auth material, ...). Each transport defines its own concrete
// Endpoint type; passing the wrong one to a transport fails with
// ErrCarriageType rather than a runtime panic or silent misuse.
type Endpoint interface {
	// carriage is unexported so only types embedding EndpointBase can
	// implement Endpoint, keeping the carriage-type check meaningful.
	carriage()
}

// EndpointBase is embedded by concrete Endpoint types in transport
// subpackages to satisfy the sealed Endpoint interface; Go treats an
// unexported method as distinct per declaring package, so a subpackage
// cannot seal the interface on its own and must borrow this method via
// embedding instead.
type EndpointBase struct{}

func (EndpointBase) carriage() {}

// CompletionFunc is delivered exactly once per Start call, with either a
// response body or an error (never both).
type CompletionFunc func(responseXML []byte, err error)

// Transport is used by a Client to carry XML-RPC request documents to a
// server and bring back response documents. It is message oriented: one
// Call/Start corresponds to exactly one methodCall/methodResponse exchange.
type Transport interface {
	// Call sends requestXML to endpoint and blocks until a responseXML comes
	// back or ctx is done or a transport-level error occurs.
	Call(ctx context.Context, endpoint Endpoint, requestXML []byte) ([]byte, error)

	// Start sends requestXML asynchronously, returning immediately. done is
	// invoked exactly once, later, with the result. Start itself only ever
	// returns an error for an immediately detectable problem (such as an
	// Endpoint of the wrong carriage type); everything else is reported to
	// done.
	Start(ctx context.Context, endpoint Endpoint, requestXML []byte, done CompletionFunc) error

	// FinishAsync blocks until every call started with Start has completed,
	// or until ctx is done. Calls still outstanding when ctx is done are
	// delivered ErrTimeout through their completion and receive no further
	// delivery afterward.
	FinishAsync(ctx context.Context) error

	Close() error
}

// EmulatedAsync adapts a transport that only implements Call into the async
// half of the Transport interface: Start runs Call synchronously in a new
// goroutine and delivers the result to done once it returns. This is the
// minimal legal implementation of async support the spec allows (§4.5,
// §9): "largely fake" async is a conforming choice, not just a stopgap.
type EmulatedAsync struct {
	Call func(ctx context.Context, endpoint Endpoint, requestXML []byte) ([]byte, error)

	tracker
}

// Start launches Call in a goroutine and reports its outcome to done.
func (e *EmulatedAsync) Start(ctx context.Context, endpoint Endpoint, requestXML []byte, done CompletionFunc) error {
	pc := e.tracker.register(done)
	go func() {
		resp, err := e.Call(ctx, endpoint, requestXML)
		e.tracker.deliver(pc, resp, err)
	}()
	return nil
}

// FinishAsync waits for outstanding Start calls to complete, or for ctx to
// finish first.
func (e *EmulatedAsync) FinishAsync(ctx context.Context) error {
	return e.tracker.finishAsync(ctx)
}
