package xmlrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addHandler(ctx context.Context, params ParamList) (Value, error) {
	if err := params.VerifyEnd(2); err != nil {
		return Value{}, NewFault(FaultType, err.Error())
	}
	a, err := params.GetInt(0)
	if err != nil {
		return Value{}, NewFault(FaultType, err.Error())
	}
	b, err := params.GetInt(1)
	if err != nil {
		return Value{}, NewFault(FaultType, err.Error())
	}
	return NewInt32(a + b), nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := &Registry{}
	require.NoError(t, r.Register("sample.add", addHandler, WithSignatures("ii"), WithHelp("adds two ints")))
	return r
}

func TestRegistryDispatchSuccess(t *testing.T) {
	r := newTestRegistry(t)

	reqXML, err := EncodeMethodCall("sample.add", NewParamList(NewInt32(5), NewInt32(7)))
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	v, err := ParseMethodResponse(respXML)
	require.NoError(t, err)

	got, err := v.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(12), got)
}

func TestRegistryDispatchParamTypeFault(t *testing.T) {
	r := newTestRegistry(t)

	reqXML, err := EncodeMethodCall("sample.add", NewParamList())
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	_, err = ParseMethodResponse(respXML)
	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FaultType, f.Code)
}

func TestRegistryDispatchNoSuchMethod(t *testing.T) {
	r := newTestRegistry(t)

	reqXML, err := EncodeMethodCall("nosuchmethod", NewParamList())
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	_, err = ParseMethodResponse(respXML)
	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FaultNoSuchMethod, f.Code)
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := &Registry{}
	require.NoError(t, r.Register("m", addHandler))
	err := r.Register("m", addHandler)
	assert.ErrorIs(t, err, ErrDuplicateMethod)
}

func TestRegistrySystemListMethods(t *testing.T) {
	r := newTestRegistry(t)

	reqXML, err := EncodeMethodCall("system.listMethods", NewParamList())
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	v, err := ParseMethodResponse(respXML)
	require.NoError(t, err)

	names, err := v.ArrayAll()
	require.NoError(t, err)
	var got []string
	for _, n := range names {
		s, _ := n.Str()
		got = append(got, s)
	}
	assert.Contains(t, got, "sample.add")
	assert.Contains(t, got, "system.multicall")
}

func TestRegistrySystemMethodHelp(t *testing.T) {
	r := newTestRegistry(t)

	reqXML, err := EncodeMethodCall("system.methodHelp", NewParamList(NewString("sample.add")))
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	v, err := ParseMethodResponse(respXML)
	require.NoError(t, err)
	s, _ := v.Str()
	assert.Equal(t, "adds two ints", s)
}

func TestRegistryMulticall(t *testing.T) {
	r := newTestRegistry(t)

	call1 := NewStruct(
		StructMember{Name: "methodName", Value: NewString("sample.add")},
		StructMember{Name: "params", Value: NewArray(NewInt32(1), NewInt32(2))},
	)
	call2 := NewStruct(
		StructMember{Name: "methodName", Value: NewString("nosuchmethod")},
		StructMember{Name: "params", Value: NewArray()},
	)

	reqXML, err := EncodeMethodCall("system.multicall", NewParamList(NewArray(call1, call2)))
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	v, err := ParseMethodResponse(respXML)
	require.NoError(t, err)

	results, err := v.ArrayAll()
	require.NoError(t, err)
	require.Len(t, results, 2)

	first, err := results[0].ArrayGet(0)
	require.NoError(t, err)
	n, err := first.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(3), n)

	assert.Equal(t, Struct, results[1].Kind())
	codeVal, err := results[1].StructGet(faultCodeKey)
	require.NoError(t, err)
	code, _ := codeVal.Int32()
	assert.Equal(t, int32(FaultNoSuchMethod), code)
}

func TestRegistryHandlerPanicBecomesFault(t *testing.T) {
	r := &Registry{}
	require.NoError(t, r.Register("boom", func(ctx context.Context, params ParamList) (Value, error) {
		panic("kaboom")
	}))

	reqXML, err := EncodeMethodCall("boom", NewParamList())
	require.NoError(t, err)

	respXML := r.ProcessCall(context.Background(), reqXML)
	_, err = ParseMethodResponse(respXML)
	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FaultInternal, f.Code)
}
