package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseMethodCall parses a <methodCall> document, returning the method name
// and its parameters.
func ParseMethodCall(data []byte) (string, ParamList, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	start, err := rootElement(d)
	if err != nil {
		return "", ParamList{}, err
	}
	if start.Name.Local != elMethodCall {
		return "", ParamList{}, fmt.Errorf("xmlrpc: %w: expected <%s>, got <%s>", ErrMalformedRPC, elMethodCall, start.Name.Local)
	}

	var method string
	var haveMethod bool
	var params ParamList

	for {
		tok, err := nextToken(d)
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", ParamList{}, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			// End of methodCall.
			if !haveMethod {
				return "", ParamList{}, fmt.Errorf("xmlrpc: %w: methodCall missing methodName", ErrMalformedRPC)
			}
			return method, params, nil

		case xml.StartElement:
			switch t.Name.Local {
			case elMethodName:
				method, err = readLeafText(d, t)
				if err != nil {
					return "", ParamList{}, err
				}
				haveMethod = true
			case elParams:
				params, err = decodeParams(d)
				if err != nil {
					return "", ParamList{}, err
				}
			default:
				return "", ParamList{}, fmt.Errorf("xmlrpc: %w: unexpected element <%s> in methodCall", ErrMalformedRPC, t.Name.Local)
			}

		default:
			return "", ParamList{}, strayContentErr(tok)
		}
	}

	if !haveMethod {
		return "", ParamList{}, fmt.Errorf("xmlrpc: %w: methodCall missing methodName", ErrMalformedRPC)
	}
	return method, params, nil
}

// ParseMethodResponse parses a <methodResponse> document. On success it
// returns the single result value and a nil error. If the response is a
// <fault>, it returns a zero Value and the Fault as the error (Fault
// implements error). Any other parse problem returns an error wrapping
// ErrMalformedRPC, ErrMalformedXML, ErrParseRange, ErrInvalidBase64 or
// ErrInvalidDateTime; a syntax error from encoding/xml after the root
// element has been read is returned as is, not wrapped in ErrMalformedXML.
func ParseMethodResponse(data []byte) (Value, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	start, err := rootElement(d)
	if err != nil {
		return Value{}, err
	}
	if start.Name.Local != elMethodResponse {
		return Value{}, fmt.Errorf("xmlrpc: %w: expected <%s>, got <%s>", ErrMalformedRPC, elMethodResponse, start.Name.Local)
	}

	tok, err := nextToken(d)
	if err != nil {
		return Value{}, fmt.Errorf("xmlrpc: %w: empty methodResponse", ErrMalformedRPC)
	}

	startEl, ok := tok.(xml.StartElement)
	if !ok {
		return Value{}, strayContentErr(tok)
	}

	switch startEl.Name.Local {
	case elParams:
		params, err := decodeParams(d)
		if err != nil {
			return Value{}, err
		}
		if err := params.VerifyEnd(1); err != nil {
			return Value{}, fmt.Errorf("xmlrpc: %w: methodResponse must carry exactly one value", ErrMalformedRPC)
		}
		v, _ := params.Get(0)
		if err := expectClose(d, elMethodResponse); err != nil {
			return Value{}, err
		}
		return v, nil

	case elFault:
		v, err := decodeSingleValue(d, startEl)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != Struct {
			return Value{}, fmt.Errorf("xmlrpc: %w: fault value must be a struct", ErrMalformedRPC)
		}
		flt, err := faultFromStruct(v)
		if err != nil {
			return Value{}, err
		}
		if err := expectClose(d, elMethodResponse); err != nil {
			return Value{}, err
		}
		return Value{}, flt

	default:
		return Value{}, fmt.Errorf("xmlrpc: %w: unexpected element <%s> in methodResponse", ErrMalformedRPC, startEl.Name.Local)
	}
}

func faultFromStruct(v Value) (Fault, error) {
	codeVal, err := v.StructGet(faultCodeKey)
	if err != nil {
		return Fault{}, fmt.Errorf("xmlrpc: %w: fault missing %s member", ErrMalformedRPC, faultCodeKey)
	}
	code, err := codeVal.Int32()
	if err != nil {
		return Fault{}, fmt.Errorf("xmlrpc: %w: fault %s must be an int", ErrMalformedRPC, faultCodeKey)
	}
	descVal, err := v.StructGet(faultStrKey)
	if err != nil {
		return Fault{}, fmt.Errorf("xmlrpc: %w: fault missing %s member", ErrMalformedRPC, faultStrKey)
	}
	desc, err := descVal.Str()
	if err != nil {
		return Fault{}, fmt.Errorf("xmlrpc: %w: fault %s must be a string", ErrMalformedRPC, faultStrKey)
	}
	return Fault{Code: int(code), Description: desc}, nil
}

// decodeParams parses the contents of a <params> element (a sequence of
// <param><value>...</value></param>) up to and including its EndElement.
func decodeParams(d *xml.Decoder) (ParamList, error) {
	var list ParamList
	for {
		tok, err := nextToken(d)
		if err != nil {
			return ParamList{}, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return list, nil
		case xml.StartElement:
			if t.Name.Local != elParam {
				return ParamList{}, fmt.Errorf("xmlrpc: %w: expected <%s>, got <%s>", ErrMalformedRPC, elParam, t.Name.Local)
			}
			v, err := decodeParam(d)
			if err != nil {
				return ParamList{}, err
			}
			list.Add(v)
		default:
			return ParamList{}, strayContentErr(tok)
		}
	}
}

// decodeParam parses the contents of a single <param> element, which must
// contain exactly one <value>.
func decodeParam(d *xml.Decoder) (Value, error) {
	tok, err := nextToken(d)
	if err != nil {
		return Value{}, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != elValue {
		return Value{}, fmt.Errorf("xmlrpc: %w: param must contain a value", ErrMalformedRPC)
	}
	v, err := decodeValue(d)
	if err != nil {
		return Value{}, err
	}
	return v, expectClose(d, elParam)
}

// decodeSingleValue parses a wrapper element (e.g. <fault>) whose sole
// content is one <value>, consuming through its own EndElement.
func decodeSingleValue(d *xml.Decoder, wrapper xml.StartElement) (Value, error) {
	tok, err := nextToken(d)
	if err != nil {
		return Value{}, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != elValue {
		return Value{}, fmt.Errorf("xmlrpc: %w: <%s> must contain a value", ErrMalformedRPC, wrapper.Name.Local)
	}
	v, err := decodeValue(d)
	if err != nil {
		return Value{}, err
	}
	return v, expectClose(d, wrapper.Name.Local)
}

// decodeValue parses the contents of a <value> element (the start tag of
// which has already been consumed) and returns the decoded Value after
// consuming through </value>. A <value> with no typed child and only
// character data decodes as a String (§4.2).
func decodeValue(d *xml.Decoder) (Value, error) {
	var text strings.Builder
	var haveText bool

	for {
		tok, err := d.Token()
		if err != nil {
			return Value{}, err
		}

		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
			haveText = true

		case xml.StartElement:
			if haveText && strings.TrimSpace(text.String()) != "" {
				return Value{}, fmt.Errorf("xmlrpc: %w: stray text before <%s>", ErrMalformedRPC, t.Name.Local)
			}
			v, err := decodeTypedValue(d, t)
			if err != nil {
				return Value{}, err
			}
			if err := expectClose(d, elValue); err != nil {
				return Value{}, err
			}
			return v, nil

		case xml.EndElement:
			return NewString(text.String()), nil

		case xml.Comment, xml.ProcInst, xml.Directive:
			// ignored

		default:
			return Value{}, fmt.Errorf("xmlrpc: %w: unexpected token in value", ErrMalformedRPC)
		}
	}
}

func decodeTypedValue(d *xml.Decoder, start xml.StartElement) (Value, error) {
	switch start.Name.Local {
	case elInt, elI4:
		s, err := readLeafText(d, start)
		if err != nil {
			return Value{}, err
		}
		return parseInt32Value(s)

	case elBoolean:
		s, err := readLeafText(d, start)
		if err != nil {
			return Value{}, err
		}
		return parseBoolValue(s)

	case elDouble:
		s, err := readLeafText(d, start)
		if err != nil {
			return Value{}, err
		}
		return parseDoubleValue(s)

	case elDateTime:
		s, err := readLeafText(d, start)
		if err != nil {
			return Value{}, err
		}
		trimmed := strings.TrimSpace(s)
		t, err := parseDateTime(trimmed)
		if err != nil {
			return Value{}, err
		}
		return newDateTimeFromWire(t, trimmed), nil

	case elString:
		s, err := readLeafText(d, start)
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil

	case elBase64:
		s, err := readLeafText(d, start)
		if err != nil {
			return Value{}, err
		}
		return parseBase64Value(s)

	case elArray:
		return decodeArray(d)

	case elStruct:
		return decodeStruct(d)

	case elNil:
		if err := d.Skip(); err != nil {
			return Value{}, err
		}
		return NewNil(), nil

	default:
		return Value{}, fmt.Errorf("xmlrpc: %w: unknown value type <%s>", ErrMalformedRPC, start.Name.Local)
	}
}

func parseInt32Value(s string) (Value, error) {
	s = strings.TrimSpace(s)
	for i, c := range s {
		if c == '-' || c == '+' {
			if i != 0 {
				return Value{}, fmt.Errorf("xmlrpc: %w: invalid integer %q", ErrMalformedRPC, s)
			}
			continue
		}
		if c < '0' || c > '9' {
			return Value{}, fmt.Errorf("xmlrpc: %w: invalid integer %q", ErrMalformedRPC, s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return Value{}, fmt.Errorf("xmlrpc: %w: %q out of int32 range", ErrParseRange, s)
		}
		return Value{}, fmt.Errorf("xmlrpc: %w: invalid integer %q", ErrMalformedRPC, s)
	}
	return NewInt32(int32(n)), nil
}

func parseBoolValue(s string) (Value, error) {
	switch strings.TrimSpace(s) {
	case "1", "true":
		return NewBool(true), nil
	case "0", "false":
		return NewBool(false), nil
	default:
		return Value{}, fmt.Errorf("xmlrpc: %w: invalid boolean %q", ErrMalformedRPC, s)
	}
}

func parseDoubleValue(s string) (Value, error) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "nan") || strings.Contains(lower, "inf") {
		return Value{}, fmt.Errorf("xmlrpc: %w: NaN/Infinity not allowed on the wire", ErrMalformedRPC)
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Value{}, fmt.Errorf("xmlrpc: %w: invalid double %q", ErrMalformedRPC, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("xmlrpc: %w: NaN/Infinity not allowed on the wire", ErrMalformedRPC)
	}
	return NewDouble(f), nil
}

func parseBase64Value(s string) (Value, error) {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		default:
			return r
		}
	}, s)
	b, err := base64.StdEncoding.DecodeString(stripped)
	if err != nil {
		return Value{}, fmt.Errorf("xmlrpc: %w: %v", ErrInvalidBase64, err)
	}
	return NewByteString(b), nil
}

// decodeArray parses the contents of an <array> element: a single <data>
// wrapper containing zero or more <value> elements.
func decodeArray(d *xml.Decoder) (Value, error) {
	tok, err := nextToken(d)
	if err != nil {
		return Value{}, err
	}
	dataStart, ok := tok.(xml.StartElement)
	if !ok || dataStart.Name.Local != elData {
		return Value{}, fmt.Errorf("xmlrpc: %w: array must contain <data>", ErrMalformedRPC)
	}

	var elems []Value
	for {
		tok, err := nextToken(d)
		if err != nil {
			return Value{}, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if err := expectClose(d, elArray); err != nil {
				return Value{}, err
			}
			return NewArray(elems...), nil
		case xml.StartElement:
			if t.Name.Local != elValue {
				return Value{}, fmt.Errorf("xmlrpc: %w: expected <%s> in array data, got <%s>", ErrMalformedRPC, elValue, t.Name.Local)
			}
			v, err := decodeValue(d)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		default:
			return Value{}, strayContentErr(tok)
		}
	}
}

// decodeStruct parses the contents of a <struct> element: zero or more
// <member><name>...</name><value>...</value></member> entries.
func decodeStruct(d *xml.Decoder) (Value, error) {
	b := NewStructBuilder()
	for {
		tok, err := nextToken(d)
		if err != nil {
			return Value{}, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return b.Build(), nil
		case xml.StartElement:
			if t.Name.Local != elMember {
				return Value{}, fmt.Errorf("xmlrpc: %w: expected <%s> in struct, got <%s>", ErrMalformedRPC, elMember, t.Name.Local)
			}
			name, v, err := decodeMember(d)
			if err != nil {
				return Value{}, err
			}
			b.Add(name, v)
		default:
			return Value{}, strayContentErr(tok)
		}
	}
}

func decodeMember(d *xml.Decoder) (string, Value, error) {
	var name string
	var haveName bool
	var val Value
	var haveVal bool

	for {
		tok, err := nextToken(d)
		if err != nil {
			return "", Value{}, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if !haveName {
				return "", Value{}, fmt.Errorf("xmlrpc: %w: struct member missing <%s>", ErrMalformedRPC, elName)
			}
			if !haveVal {
				return "", Value{}, fmt.Errorf("xmlrpc: %w: struct member missing <%s>", ErrMalformedRPC, elValue)
			}
			return name, val, nil
		case xml.StartElement:
			switch t.Name.Local {
			case elName:
				name, err = readLeafText(d, t)
				if err != nil {
					return "", Value{}, err
				}
				haveName = true
			case elValue:
				val, err = decodeValue(d)
				if err != nil {
					return "", Value{}, err
				}
				haveVal = true
			default:
				return "", Value{}, fmt.Errorf("xmlrpc: %w: unexpected element <%s> in member", ErrMalformedRPC, t.Name.Local)
			}
		default:
			return "", Value{}, strayContentErr(tok)
		}
	}
}

// readLeafText reads the character data inside a leaf element (one that the
// grammar never nests further elements in) up to its EndElement. A nested
// StartElement is rejected as malformed.
func readLeafText(d *xml.Decoder, start xml.StartElement) (string, error) {
	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("xmlrpc: %w: unexpected child element <%s> inside <%s>", ErrMalformedRPC, t.Name.Local, start.Name.Local)
		case xml.Comment, xml.ProcInst, xml.Directive:
			// ignored
		default:
			return "", fmt.Errorf("xmlrpc: %w: unexpected token inside <%s>", ErrMalformedRPC, start.Name.Local)
		}
	}
}

// expectClose reads tokens until the EndElement closing the named element,
// rejecting anything but whitespace-only CharData along the way.
func expectClose(d *xml.Decoder, name string) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("xmlrpc: %w: stray text after content of <%s>", ErrMalformedRPC, name)
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
			// ignored
		default:
			return fmt.Errorf("xmlrpc: %w: unexpected content after </%s>", ErrMalformedRPC, name)
		}
	}
}

// nextToken returns the next significant token, skipping comments,
// processing instructions, directives, and whitespace-only character data.
// Non-whitespace character data where only element content is allowed is
// rejected (the spec's resolution of its stray-character-data open
// question).
func nextToken(d *xml.Decoder) (xml.Token, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("xmlrpc: %w: unexpected character data %q", ErrMalformedRPC, strings.TrimSpace(string(t)))
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
			// ignored
		default:
			return tok, nil
		}
	}
}

// rootElement reads past any leading ProcInst/Comment/whitespace and returns
// the document's root StartElement.
func rootElement(d *xml.Decoder) (xml.StartElement, error) {
	tok, err := nextToken(d)
	if err != nil {
		if err == io.EOF {
			return xml.StartElement{}, fmt.Errorf("xmlrpc: %w: empty document", ErrMalformedXML)
		}
		return xml.StartElement{}, fmt.Errorf("xmlrpc: %w: %v", ErrMalformedXML, err)
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return xml.StartElement{}, fmt.Errorf("xmlrpc: %w: expected a root element", ErrMalformedRPC)
	}
	return start, nil
}

func strayContentErr(tok xml.Token) error {
	return fmt.Errorf("xmlrpc: %w: unexpected token %T", ErrMalformedRPC, tok)
}
