package xmlrpc

import "fmt"

// Reserved library-level fault codes (§6). Positive codes are
// application-defined; implementations must not allocate new negative codes
// beyond these without updating callers that branch on them.
const (
	FaultInternal     = -500 // unexpected handler failure
	FaultNoSuchMethod = -501
	FaultParse        = -502 // malformed request XML
	FaultType         = -503 // signature or param type mismatch
	FaultTransport    = -504 // transport error surfaced as a fault
)

// Fault is an immutable, well-formed XML-RPC protocol-level error: a
// <methodResponse><fault> body. It implements error so it can be returned
// from a handler or from Client.Call's outcome, but it is never confused
// with a local or transport failure (§7): a Fault is always something that
// successfully made a round trip on the wire.
type Fault struct {
	Code        int
	Description string
}

// NewFault constructs a Fault.
func NewFault(code int, description string) Fault {
	return Fault{Code: code, Description: description}
}

func (f Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.Description)
}
