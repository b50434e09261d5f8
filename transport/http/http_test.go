package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xmlrpc.dev/xmlrpc/transport"
)

func TestHTTPTransportCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "<methodCall/>", string(body))
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte("<methodResponse/>"))
	}))
	defer srv.Close()

	tr, err := New(WithUserAgent("test-agent"))
	require.NoError(t, err)

	got, err := tr.Call(context.Background(), Endpoint{URL: srv.URL}, []byte("<methodCall/>"))
	require.NoError(t, err)
	assert.Equal(t, "<methodResponse/>", string(got))
}

func TestHTTPTransportStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, err := New()
	require.NoError(t, err)

	_, err = tr.Call(context.Background(), Endpoint{URL: srv.URL}, []byte("<methodCall/>"))
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestHTTPTransportWrongEndpoint(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	_, err = tr.Call(context.Background(), directLikeEndpoint{}, nil)
	require.Error(t, err)
}

type directLikeEndpoint struct {
	transport.EndpointBase
}

func TestWithProxyInvalidURL(t *testing.T) {
	_, err := New(WithProxy("://bad-url"))
	assert.Error(t, err)
}

func TestHTTPTransportHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Auth"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr, err := New()
	require.NoError(t, err)

	endpoint := Endpoint{URL: srv.URL, Headers: http.Header{"X-Auth": []string{"secret"}}}
	_, err = tr.Call(context.Background(), endpoint, []byte("x"))
	require.NoError(t, err)
}
