package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// escapeText encodes the three characters the serializer must never emit
// literally (§4.2); everything else passes through as UTF-8.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// SerializeMethodCall writes a <methodCall> document for method with params
// to w.
func SerializeMethodCall(w io.Writer, method string, params ParamList) error {
	if _, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><%s><%s>%s</%s>`,
		elMethodCall, elMethodName, escapeText(method), elMethodName); err != nil {
		return err
	}
	if err := writeParams(w, params); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "</%s>", elMethodCall)
	return err
}

// SerializeMethodResponse writes a <methodResponse> document carrying the
// single success value result.
func SerializeMethodResponse(w io.Writer, result Value) error {
	if _, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><%s>`, elMethodResponse); err != nil {
		return err
	}
	if err := writeParams(w, NewParamList(result)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "</%s>", elMethodResponse)
	return err
}

// SerializeMethodResponseFault writes a <methodResponse> document carrying a
// <fault>.
func SerializeMethodResponseFault(w io.Writer, f Fault) error {
	if _, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><%s><%s>`, elMethodResponse, elFault); err != nil {
		return err
	}
	faultVal := NewStruct(
		StructMember{Name: faultCodeKey, Value: NewInt32(int32(f.Code))},
		StructMember{Name: faultStrKey, Value: NewString(f.Description)},
	)
	if err := writeValue(w, faultVal); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "</%s></%s>", elFault, elMethodResponse)
	return err
}

func writeParams(w io.Writer, params ParamList) error {
	if _, err := fmt.Fprintf(w, "<%s>", elParams); err != nil {
		return err
	}
	for _, v := range params.All() {
		if _, err := fmt.Fprintf(w, "<%s>", elParam); err != nil {
			return err
		}
		if err := writeValue(w, v); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "</%s>", elParam); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</%s>", elParams)
	return err
}

// writeValue writes a <value>...</value> element for v.
func writeValue(w io.Writer, v Value) error {
	if _, err := fmt.Fprintf(w, "<%s>", elValue); err != nil {
		return err
	}
	if err := writePayload(w, v); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "</%s>", elValue)
	return err
}

func writePayload(w io.Writer, v Value) error {
	switch v.Kind() {
	case Int32:
		n, _ := v.Int32()
		_, err := fmt.Fprintf(w, "<%s>%s</%s>", elInt, strconv.FormatInt(int64(n), 10), elInt)
		return err

	case Bool:
		b, _ := v.Bool()
		s := "0"
		if b {
			s = "1"
		}
		_, err := fmt.Fprintf(w, "<%s>%s</%s>", elBoolean, s, elBoolean)
		return err

	case Double:
		d, _ := v.Double()
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("xmlrpc: %w", ErrNonFiniteDouble)
		}
		_, err := fmt.Fprintf(w, "<%s>%s</%s>", elDouble, strconv.FormatFloat(d, 'g', -1, 64), elDouble)
		return err

	case DateTime:
		s, err := v.DateTimeString()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "<%s>%s</%s>", elDateTime, s, elDateTime)
		return err

	case String:
		s, _ := v.Str()
		_, err := fmt.Fprintf(w, "<%s>%s</%s>", elString, escapeText(s), elString)
		return err

	case ByteString:
		b, _ := v.ByteString()
		_, err := fmt.Fprintf(w, "<%s>%s</%s>", elBase64, base64.StdEncoding.EncodeToString(b), elBase64)
		return err

	case Array:
		elems, _ := v.ArrayAll()
		if _, err := fmt.Fprintf(w, "<%s><%s>", elArray, elData); err != nil {
			return err
		}
		for _, e := range elems {
			if err := writeValue(w, e); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "</%s></%s>", elData, elArray)
		return err

	case Struct:
		if _, err := fmt.Fprintf(w, "<%s>", elStruct); err != nil {
			return err
		}
		for name, mv := range v.StructAll() {
			if _, err := fmt.Fprintf(w, "<%s><%s>%s</%s>", elMember, elName, escapeText(name), elName); err != nil {
				return err
			}
			if err := writeValue(w, mv); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "</%s>", elMember); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "</%s>", elStruct)
		return err

	case Nil:
		_, err := fmt.Fprintf(w, "<%s/>", elNil)
		return err

	default:
		return fmt.Errorf("xmlrpc: %w: cannot serialize %s value", ErrUninitialized, v.Kind())
	}
}

// EncodeMethodCall is a convenience wrapper returning the serialized bytes
// directly.
func EncodeMethodCall(method string, params ParamList) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeMethodCall(&buf, method, params); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeMethodResponse is a convenience wrapper returning the serialized
// bytes directly.
func EncodeMethodResponse(result Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeMethodResponse(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeMethodResponseFault is a convenience wrapper returning the
// serialized bytes directly.
func EncodeMethodResponseFault(f Fault) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeMethodResponseFault(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
