package xmlrpc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Handler implements one registered XML-RPC method. Returning a Fault
// reports a protocol-level fault to the caller with that exact code and
// description; any other non-nil error is wrapped as FaultInternal, so a
// handler never needs to format its own fault struct for an ordinary Go
// error.
type Handler func(ctx context.Context, params ParamList) (Value, error)

// RegisterOption configures a method at Register time. It follows the same
// functional-option pattern as transport/http's Option.
type RegisterOption interface {
	apply(*registeredMethod)
}

type registerOptionFunc func(*registeredMethod)

func (f registerOptionFunc) apply(m *registeredMethod) { f(m) }

// WithSignatures declares the accepted parameter-type signatures for a
// method (each a string with one type letter per parameter: i, b, d, s,
// 8 for dateTime, 6 for base64, A, S, n; no return-type letter), enabling
// FaultType rejection of calls before the handler runs and populating
// system.methodSignature. A method registered without signatures accepts
// any parameter list.
func WithSignatures(sigs ...string) RegisterOption {
	return registerOptionFunc(func(m *registeredMethod) {
		m.signatures = append([]string(nil), sigs...)
	})
}

// WithHelp attaches help text returned by system.methodHelp.
func WithHelp(text string) RegisterOption {
	return registerOptionFunc(func(m *registeredMethod) { m.help = text })
}

type registeredMethod struct {
	handler    Handler
	signatures []string
	help       string
}

func (m *registeredMethod) matchesAnySignature(sig string) bool {
	if len(m.signatures) == 0 {
		return true
	}
	for _, s := range m.signatures {
		if s == sig {
			return true
		}
	}
	return false
}

// Registry is a server-side method table and dispatcher (§6). It is safe
// for concurrent Register and ProcessCall calls. A zero Registry is usable:
// the system.* introspection methods are installed lazily on first use.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]*registeredMethod

	initOnce sync.Once
}

// Register adds method to the registry. Registering the same name twice
// fails with ErrDuplicateMethod; the original registration is left in
// place.
func (r *Registry) Register(name string, handler Handler, opts ...RegisterOption) error {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[name]; exists {
		return fmt.Errorf("xmlrpc: %w: %q", ErrDuplicateMethod, name)
	}
	m := &registeredMethod{handler: handler}
	for _, o := range opts {
		o.apply(m)
	}
	r.methods[name] = m
	return nil
}

func (r *Registry) init() {
	r.initOnce.Do(func() {
		r.mu.Lock()
		if r.methods == nil {
			r.methods = make(map[string]*registeredMethod)
		}
		r.mu.Unlock()
		r.registerSystemMethods()
	})
}

// ProcessCall decodes a methodCall document, dispatches it, and returns the
// serialized methodResponse (success or fault) document. It never returns
// an error: any failure becomes a fault response, so a transport can always
// write ProcessCall's result straight back to the caller (§6: "total"
// dispatch).
func (r *Registry) ProcessCall(ctx context.Context, requestXML []byte) []byte {
	r.init()

	method, params, err := ParseMethodCall(requestXML)
	if err != nil {
		return r.encodeFault(NewFault(FaultParse, err.Error()))
	}

	result, flt := r.dispatch(ctx, method, params)
	if flt != nil {
		return r.encodeFault(*flt)
	}
	resp, err := EncodeMethodResponse(result)
	if err != nil {
		return r.encodeFault(NewFault(FaultInternal, err.Error()))
	}
	return resp
}

// dispatch looks up and invokes method, recovering from handler panics and
// converting every failure mode to a Fault rather than a Go error.
func (r *Registry) dispatch(ctx context.Context, method string, params ParamList) (result Value, flt *Fault) {
	r.mu.RLock()
	m, ok := r.methods[method]
	r.mu.RUnlock()
	if !ok {
		f := NewFault(FaultNoSuchMethod, fmt.Sprintf("method not found: %s", method))
		return Value{}, &f
	}

	if len(m.signatures) > 0 {
		sig, err := params.signature()
		if err != nil || !m.matchesAnySignature(sig) {
			f := NewFault(FaultType, fmt.Sprintf("no matching signature for %s", method))
			return Value{}, &f
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("xmlrpc: method %s panicked: %v", method, rec)
			f := NewFault(FaultInternal, fmt.Sprintf("internal error in method %s", method))
			result, flt = Value{}, &f
		}
	}()

	v, err := m.handler(ctx, params)
	if err == nil {
		return v, nil
	}
	if f, ok := err.(Fault); ok {
		return Value{}, &f
	}
	f := NewFault(FaultInternal, err.Error())
	return Value{}, &f
}

// encodeFault serializes f, falling back to a hand-written minimal document
// in the unreachable case that encoding a plain int/string fault struct
// itself fails, so ProcessCall can never return no response at all.
func (r *Registry) encodeFault(f Fault) []byte {
	data, err := EncodeMethodResponseFault(f)
	if err != nil {
		log.Printf("xmlrpc: encoding fault response failed: %v", err)
		return []byte(`<?xml version="1.0"?><methodResponse><fault><value><struct>` +
			`<member><name>faultCode</name><value><int>-500</int></value></member>` +
			`<member><name>faultString</name><value><string>internal error</string></value></member>` +
			`</struct></value></fault></methodResponse>`)
	}
	return data
}

func (r *Registry) registerSystemMethods() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.methods["system.listMethods"] = &registeredMethod{
		handler: func(ctx context.Context, params ParamList) (Value, error) {
			if err := params.VerifyEnd(0); err != nil {
				return Value{}, err
			}
			r.mu.RLock()
			names := make([]string, 0, len(r.methods))
			for n := range r.methods {
				names = append(names, n)
			}
			r.mu.RUnlock()
			sort.Strings(names)
			vals := make([]Value, len(names))
			for i, n := range names {
				vals[i] = NewString(n)
			}
			return NewArray(vals...), nil
		},
		help: "Returns an array of the method names this server offers.",
	}

	r.methods["system.methodHelp"] = &registeredMethod{
		handler: func(ctx context.Context, params ParamList) (Value, error) {
			if err := params.VerifyEnd(1); err != nil {
				return Value{}, err
			}
			name, err := params.GetString(0)
			if err != nil {
				return Value{}, err
			}
			r.mu.RLock()
			m, ok := r.methods[name]
			r.mu.RUnlock()
			if !ok {
				return Value{}, NewFault(FaultNoSuchMethod, fmt.Sprintf("method not found: %s", name))
			}
			return NewString(m.help), nil
		},
		help: "Returns help text for the named method.",
	}

	r.methods["system.methodSignature"] = &registeredMethod{
		handler: func(ctx context.Context, params ParamList) (Value, error) {
			if err := params.VerifyEnd(1); err != nil {
				return Value{}, err
			}
			name, err := params.GetString(0)
			if err != nil {
				return Value{}, err
			}
			r.mu.RLock()
			m, ok := r.methods[name]
			r.mu.RUnlock()
			if !ok {
				return Value{}, NewFault(FaultNoSuchMethod, fmt.Sprintf("method not found: %s", name))
			}
			if len(m.signatures) == 0 {
				return NewString("undef"), nil
			}
			sigs := make([]Value, len(m.signatures))
			for i, s := range m.signatures {
				sigs[i] = NewString(s)
			}
			return NewArray(sigs...), nil
		},
		help: "Returns the accepted signatures for the named method, or \"undef\" if unconstrained.",
	}

	r.methods["system.multicall"] = &registeredMethod{
		handler:    r.handleMulticall,
		signatures: []string{"A"},
		help:       "Invokes a batch of {methodName, params} structs, returning one result array per call.",
	}
}

// handleMulticall implements the conventional system.multicall extension
// (supplemented beyond the original protocol's core): an array of
// {methodName: string, params: array} structs is dispatched as if each were
// its own call, returning an array where each entry is either a
// single-element array holding that call's result, or a
// {faultCode, faultString} struct if it faulted.
func (r *Registry) handleMulticall(ctx context.Context, params ParamList) (Value, error) {
	if err := params.VerifyEnd(1); err != nil {
		return Value{}, err
	}
	calls, err := params.GetArray(0)
	if err != nil {
		return Value{}, err
	}
	n, _ := calls.ArrayLen()
	results := make([]Value, n)
	for i := 0; i < n; i++ {
		entry, _ := calls.ArrayGet(i)
		if entry.Kind() != Struct {
			f := NewFault(FaultType, "system.multicall: each call must be a struct")
			results[i] = faultValue(f)
			continue
		}
		nameVal, err := entry.StructGet("methodName")
		if err != nil {
			results[i] = faultValue(NewFault(FaultType, "system.multicall: missing methodName"))
			continue
		}
		name, err := nameVal.Str()
		if err != nil {
			results[i] = faultValue(NewFault(FaultType, "system.multicall: methodName must be a string"))
			continue
		}
		if name == "system.multicall" {
			results[i] = faultValue(NewFault(FaultType, "system.multicall: recursive call rejected"))
			continue
		}
		paramsVal, err := entry.StructGet("params")
		var callParams ParamList
		if err == nil {
			elems, err := paramsVal.ArrayAll()
			if err != nil {
				results[i] = faultValue(NewFault(FaultType, "system.multicall: params must be an array"))
				continue
			}
			callParams = NewParamList(elems...)
		}

		v, flt := r.dispatch(ctx, name, callParams)
		if flt != nil {
			results[i] = faultValue(*flt)
			continue
		}
		results[i] = NewArray(v)
	}
	return NewArray(results...), nil
}

func faultValue(f Fault) Value {
	return NewStruct(
		StructMember{Name: faultCodeKey, Value: NewInt32(int32(f.Code))},
		StructMember{Name: faultStrKey, Value: NewString(f.Description)},
	)
}
