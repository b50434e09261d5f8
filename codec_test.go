package xmlrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripMethodCall(t *testing.T) {
	params := NewParamList(NewInt32(5), NewInt32(7))
	data, err := EncodeMethodCall("sample.add", params)
	require.NoError(t, err)

	method, got, err := ParseMethodCall(data)
	require.NoError(t, err)
	assert.Equal(t, "sample.add", method)

	a, err := got.GetInt(0)
	require.NoError(t, err)
	b, err := got.GetInt(1)
	require.NoError(t, err)
	assert.Equal(t, int32(5), a)
	assert.Equal(t, int32(7), b)
}

func TestCodecRoundTripMethodResponse(t *testing.T) {
	result := NewInt32(12)
	data, err := EncodeMethodResponse(result)
	require.NoError(t, err)

	got, err := ParseMethodResponse(data)
	require.NoError(t, err)
	assert.True(t, result.Equal(got))
}

func TestCodecRoundTripFault(t *testing.T) {
	f := NewFault(FaultType, "param count mismatch")
	data, err := EncodeMethodResponseFault(f)
	require.NoError(t, err)

	_, err = ParseMethodResponse(data)
	require.Error(t, err)
	var got Fault
	require.ErrorAs(t, err, &got)
	assert.Equal(t, f, got)
}

func TestCodecLiteralFaultExample(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<methodResponse>
   <fault>
      <value>
         <struct>
            <member>
               <name>faultCode</name>
               <value><int>4</int></value>
            </member>
            <member>
               <name>faultString</name>
               <value><string>Too many parameters.</string></value>
            </member>
         </struct>
      </value>
   </fault>
</methodResponse>`

	_, err := ParseMethodResponse([]byte(doc))
	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 4, f.Code)
	assert.Equal(t, "Too many parameters.", f.Description)
}

func TestCodecUntaggedValueIsString(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<methodResponse><params><param><value>hello</value></param></params></methodResponse>`

	v, err := ParseMethodResponse([]byte(doc))
	require.NoError(t, err)
	s, err := v.Str()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestCodecBase64Example(t *testing.T) {
	v := NewByteString([]byte{0x00, 0x01, 0xff})
	data, err := EncodeMethodResponse(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<base64>AAH/</base64>")

	got, err := ParseMethodResponse(data)
	require.NoError(t, err)
	b, err := got.ByteString()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, b)
}

func TestCodecArrayWithNil(t *testing.T) {
	v := NewArray(NewInt32(1), NewNil(), NewInt32(2))
	data, err := EncodeMethodResponse(v)
	require.NoError(t, err)
	assert.Equal(t, 1, countSubstr(string(data), "<nil/>"))

	got, err := ParseMethodResponse(data)
	require.NoError(t, err)
	assert.True(t, v.Equal(got))
}

func countSubstr(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func TestCodecStrayCharacterDataIsMalformed(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<methodResponse>stray<params><param><value><int>1</int></value></param></params></methodResponse>`

	_, err := ParseMethodResponse([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRPC)
}

func TestCodecRejectsNonFiniteDouble(t *testing.T) {
	_, err := EncodeMethodResponse(NewDouble(func() float64 { var z float64; return 1 / z }()))
	assert.ErrorIs(t, err, ErrNonFiniteDouble)
}

func TestCodecMethodCallNoParams(t *testing.T) {
	data, err := EncodeMethodCall("sample.add", NewParamList())
	require.NoError(t, err)

	method, params, err := ParseMethodCall(data)
	require.NoError(t, err)
	assert.Equal(t, "sample.add", method)
	assert.Equal(t, 0, params.Len())
}
