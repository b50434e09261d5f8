package xmlrpc

import (
	"fmt"
	"time"
)

// ParamList is an ordered, positional container of call arguments or reply
// values, with typed accessors that fail rather than silently coerce.
type ParamList struct {
	vals []Value
}

// NewParamList builds a ParamList from a sequence of values.
func NewParamList(vals ...Value) ParamList {
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return ParamList{vals: cp}
}

// Len returns the number of parameters.
func (p *ParamList) Len() int { return len(p.vals) }

// Add appends v to the end of the list.
func (p *ParamList) Add(v Value) { p.vals = append(p.vals, v) }

// All returns the parameters as a freshly allocated slice, in order.
func (p *ParamList) All() []Value {
	cp := make([]Value, len(p.vals))
	copy(cp, p.vals)
	return cp
}

// VerifyEnd fails with ErrParamCount unless the list has exactly n elements.
func (p *ParamList) VerifyEnd(n int) error {
	if len(p.vals) != n {
		return fmt.Errorf("xmlrpc: %w: want %d, got %d", ErrParamCount, n, len(p.vals))
	}
	return nil
}

func (p *ParamList) at(i int) (Value, error) {
	if i < 0 || i >= len(p.vals) {
		return Value{}, fmt.Errorf("xmlrpc: %w: index %d, length %d", ErrParamIndex, i, len(p.vals))
	}
	return p.vals[i], nil
}

func paramTypeErr(i int, want Kind, got Kind) error {
	return fmt.Errorf("xmlrpc: %w: param %d: expected %s, got %s", ErrParamType, i, want, got)
}

// GetInt returns the i-th parameter as an Int32.
func (p *ParamList) GetInt(i int) (int32, error) {
	v, err := p.at(i)
	if err != nil {
		return 0, err
	}
	if v.Kind() != Int32 {
		return 0, paramTypeErr(i, Int32, v.Kind())
	}
	return v.n.i32, nil
}

// GetBool returns the i-th parameter as a Bool.
func (p *ParamList) GetBool(i int) (bool, error) {
	v, err := p.at(i)
	if err != nil {
		return false, err
	}
	if v.Kind() != Bool {
		return false, paramTypeErr(i, Bool, v.Kind())
	}
	return v.n.b, nil
}

// GetDouble returns the i-th parameter as a Double.
func (p *ParamList) GetDouble(i int) (float64, error) {
	v, err := p.at(i)
	if err != nil {
		return 0, err
	}
	if v.Kind() != Double {
		return 0, paramTypeErr(i, Double, v.Kind())
	}
	return v.n.d, nil
}

// GetString returns the i-th parameter as a String.
func (p *ParamList) GetString(i int) (string, error) {
	v, err := p.at(i)
	if err != nil {
		return "", err
	}
	if v.Kind() != String {
		return "", paramTypeErr(i, String, v.Kind())
	}
	return v.n.s, nil
}

// GetByteString returns the i-th parameter as a ByteString.
func (p *ParamList) GetByteString(i int) ([]byte, error) {
	v, err := p.at(i)
	if err != nil {
		return nil, err
	}
	if v.Kind() != ByteString {
		return nil, paramTypeErr(i, ByteString, v.Kind())
	}
	return v.ByteString()
}

// GetDateTime returns the i-th parameter as a DateTime.
func (p *ParamList) GetDateTime(i int) (time.Time, error) {
	v, err := p.at(i)
	if err != nil {
		return time.Time{}, err
	}
	if v.Kind() != DateTime {
		return time.Time{}, paramTypeErr(i, DateTime, v.Kind())
	}
	return v.n.t, nil
}

// GetArray returns the i-th parameter as an Array.
func (p *ParamList) GetArray(i int) (Value, error) {
	v, err := p.at(i)
	if err != nil {
		return Value{}, err
	}
	if v.Kind() != Array {
		return Value{}, paramTypeErr(i, Array, v.Kind())
	}
	return v, nil
}

// GetStruct returns the i-th parameter as a Struct.
func (p *ParamList) GetStruct(i int) (Value, error) {
	v, err := p.at(i)
	if err != nil {
		return Value{}, err
	}
	if v.Kind() != Struct {
		return Value{}, paramTypeErr(i, Struct, v.Kind())
	}
	return v, nil
}

// GetNil verifies the i-th parameter is Nil.
func (p *ParamList) GetNil(i int) error {
	v, err := p.at(i)
	if err != nil {
		return err
	}
	if v.Kind() != Nil {
		return paramTypeErr(i, Nil, v.Kind())
	}
	return nil
}

// Get returns the i-th parameter without a type check.
func (p *ParamList) Get(i int) (Value, error) {
	return p.at(i)
}

// signature returns the type-letter signature of the parameter list, used by
// the registry to check a call against registered signatures.
func (p *ParamList) signature() (string, error) {
	sig := make([]byte, 0, len(p.vals))
	for i, v := range p.vals {
		c, ok := kindLetter(v.Kind())
		if !ok {
			return "", fmt.Errorf("xmlrpc: param %d: %w: kind %s has no signature letter", i, ErrTypeMismatch, v.Kind())
		}
		sig = append(sig, c)
	}
	return string(sig), nil
}

func kindLetter(k Kind) (byte, bool) {
	switch k {
	case Int32:
		return 'i', true
	case Bool:
		return 'b', true
	case Double:
		return 'd', true
	case String:
		return 's', true
	case DateTime:
		return '8', true
	case ByteString:
		return '6', true
	case Array:
		return 'A', true
	case Struct:
		return 'S', true
	case Nil:
		return 'n', true
	default:
		return 0, false
	}
}
