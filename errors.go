package xmlrpc

import "errors"

// Local failures (§7): invalid use of the library's own API. These always
// surface as a Go error synchronously; none of them is ever put on the wire.
var (
	ErrUninitialized = errors.New("uninitialized value")
	ErrTypeMismatch  = errors.New("type mismatch")

	ErrParamCount = errors.New("parameter count mismatch")
	ErrParamType  = errors.New("parameter type mismatch")
	ErrParamIndex = errors.New("parameter index out of range")

	ErrDuplicateMethod = errors.New("method already registered")

	ErrAlreadyRun    = errors.New("rpc already started")
	ErrNotFinished   = errors.New("rpc has not finished")
	ErrNotSuccessful = errors.New("rpc did not succeed")
	ErrNoFault       = errors.New("rpc did not fail")
)

// Codec failures (§4.2): distinguishing the XML-level error from the
// XML-RPC-grammar-level error, as the spec requires.
var (
	ErrMalformedXML    = errors.New("malformed xml")
	ErrMalformedRPC    = errors.New("malformed xml-rpc document")
	ErrParseRange      = errors.New("numeric value out of range")
	ErrInvalidBase64   = errors.New("invalid base64 payload")
	ErrInvalidDateTime = errors.New("invalid dateTime.iso8601 value")
	ErrNonFiniteDouble = errors.New("NaN/Infinity cannot be serialized on the wire")
)
