// Package direct implements the in-process "direct" transport (C8): it
// hands request XML straight to a registry's ProcessCall, bypassing the
// network entirely. It is the canonical example of the Transport contract
// and the standard way to exercise a server registry in tests.
package direct

import (
	"context"

	"xmlrpc.dev/xmlrpc/transport"
)

// Processor is the minimal surface a direct Transport needs from a server.
// xmlrpc.Registry satisfies it; declaring it here (rather than importing
// the root package) keeps this package a leaf and avoids an import cycle
// between transport and the package that depends on transport.
type Processor interface {
	ProcessCall(ctx context.Context, requestXML []byte) []byte
}

// Endpoint is the direct transport's carriage parameter. It carries no
// fields: there is nothing to address, since a direct Transport already
// points at exactly one Processor.
type Endpoint struct {
	transport.EndpointBase
}

// Transport delivers requests to an in-process Processor instead of over
// the network.
type Transport struct {
	proc Processor
	transport.EmulatedAsync
}

// New returns a direct Transport backed by proc.
func New(proc Processor) *Transport {
	t := &Transport{proc: proc}
	t.EmulatedAsync.Call = t.Call
	return t
}

// Call invokes proc.ProcessCall synchronously. endpoint must be an
// Endpoint; a nil Endpoint or any other concrete Endpoint type fails with
// transport.ErrCarriageType.
func (t *Transport) Call(ctx context.Context, endpoint transport.Endpoint, requestXML []byte) ([]byte, error) {
	if _, ok := endpoint.(Endpoint); !ok {
		return nil, transport.ErrCarriageType
	}
	return t.proc.ProcessCall(ctx, requestXML), nil
}

// Close waits for every outstanding async call to complete, with no
// deadline. The direct transport owns no network resources to release.
func (t *Transport) Close() error { return t.FinishAsync(context.Background()) }
