package xmlrpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xmlrpc.dev/xmlrpc/transport"
	"xmlrpc.dev/xmlrpc/transport/direct"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	r := newTestRegistry(t)
	tr := direct.New(r)
	return NewClient(tr, direct.Endpoint{})
}

func TestClientCallSuccess(t *testing.T) {
	c := newTestClient(t)

	v, err := c.Call(context.Background(), "sample.add", NewParamList(NewInt32(5), NewInt32(7)))
	require.NoError(t, err)
	n, err := v.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(12), n)
}

func TestClientCallFault(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Call(context.Background(), "nosuchmethod", NewParamList())
	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FaultNoSuchMethod, f.Code)
}

func TestHandleStateMachine(t *testing.T) {
	c := newTestClient(t)

	h, err := c.Start(context.Background(), "sample.add", NewParamList(NewInt32(2), NewInt32(3)))
	require.NoError(t, err)

	require.NoError(t, h.Wait(context.Background()))
	assert.True(t, h.IsFinished())

	ok, err := h.IsSuccessful()
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := h.Result()
	require.NoError(t, err)
	n, err := v.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(5), n)

	_, err = h.Fault()
	assert.ErrorIs(t, err, ErrNoFault)
}

func TestHandleAlreadyRun(t *testing.T) {
	c := newTestClient(t)

	h := NewHandle()
	require.NoError(t, c.StartWith(context.Background(), "sample.add", NewParamList(NewInt32(1), NewInt32(1)), h))

	err := c.StartWith(context.Background(), "sample.add", NewParamList(NewInt32(1), NewInt32(1)), h)
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestHandleNotFinished(t *testing.T) {
	h := NewHandle()

	_, err := h.Result()
	assert.ErrorIs(t, err, ErrNotFinished)

	_, err = h.IsSuccessful()
	assert.ErrorIs(t, err, ErrNotFinished)

	_, err = h.Fault()
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestHandleFaultRecovery(t *testing.T) {
	c := newTestClient(t)

	h, err := c.Start(context.Background(), "nosuchmethod", NewParamList())
	require.NoError(t, err)
	require.NoError(t, h.Wait(context.Background()))

	ok, err := h.IsSuccessful()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Result()
	assert.ErrorIs(t, err, ErrNotSuccessful)

	f, err := h.Fault()
	require.NoError(t, err)
	assert.Equal(t, FaultNoSuchMethod, f.Code)
}

func TestFinishAsyncTimeout(t *testing.T) {
	blockCh := make(chan struct{})

	r := &Registry{}
	require.NoError(t, r.Register("slow", func(ctx context.Context, params ParamList) (Value, error) {
		<-blockCh
		return NewNil(), nil
	}))
	tr := direct.New(r)
	slowClient := NewClient(tr, direct.Endpoint{})

	h, err := slowClient.Start(context.Background(), "slow", NewParamList())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = tr.FinishAsync(ctx)

	assert.True(t, h.IsFinished())
	_, ferr := h.Fault()
	assert.ErrorIs(t, ferr, ErrNoFault)
	_, err = h.Result()
	assert.ErrorIs(t, err, ErrNotSuccessful)

	close(blockCh)
}

var _ transport.Transport = (*direct.Transport)(nil)
