// Package http implements the HTTP transport (C7): XML-RPC's conventional
// carriage, POSTing request documents to a URL and reading the response
// body back as the reply document. Option surface (user agent, TLS config,
// timeout, proxy) is carried forward from the original client's transport
// configuration.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"xmlrpc.dev/xmlrpc/transport"
)

const defaultUserAgent = "xmlrpc.dev/xmlrpc"

// HTTPStatusError reports a non-200 HTTP response to a methodCall POST.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("xmlrpc/http: unexpected status %s", e.Status)
}

// NetworkError wraps a transport-level failure (DNS, dial, TLS handshake,
// connection reset) that occurred before or during the HTTP exchange.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("xmlrpc/http: %s", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// Endpoint addresses an HTTP server by URL, with optional extra headers
// (e.g. Authorization) sent on every call.
type Endpoint struct {
	transport.EndpointBase
	URL     string
	Headers http.Header
}

// Option configures a Transport at construction time.
type Option interface {
	apply(*Transport)
}

type optionFunc func(*Transport)

func (f optionFunc) apply(t *Transport) { f(t) }

// WithUserAgent overrides the default User-Agent header sent with every
// request.
func WithUserAgent(ua string) Option {
	return optionFunc(func(t *Transport) { t.userAgent = ua })
}

// WithTLSConfig installs a custom *tls.Config for HTTPS endpoints.
func WithTLSConfig(cfg *tls.Config) Option {
	return optionFunc(func(t *Transport) {
		t.client.Transport.(*http.Transport).TLSClientConfig = cfg
	})
}

// WithTimeout bounds the whole of every Call, including connection setup.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(t *Transport) { t.client.Timeout = d })
}

// WithProxy installs a fixed proxy URL used for every outgoing request.
// Without it, requests connect directly; proxy environment variables are
// not consulted.
func WithProxy(proxyURL string) Option {
	return optionFunc(func(t *Transport) {
		t.proxyErr = nil
		u, err := url.Parse(proxyURL)
		if err != nil {
			t.proxyErr = fmt.Errorf("xmlrpc/http: invalid proxy url: %w", err)
			return
		}
		t.client.Transport.(*http.Transport).Proxy = http.ProxyURL(u)
	})
}

// Transport carries XML-RPC documents over HTTP POST.
type Transport struct {
	client    *http.Client
	userAgent string
	proxyErr  error

	transport.EmulatedAsync
}

// New builds an HTTP Transport with the given options applied.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		client:    &http.Client{Transport: &http.Transport{}},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o.apply(t)
	}
	if t.proxyErr != nil {
		return nil, t.proxyErr
	}
	t.EmulatedAsync.Call = t.Call
	return t, nil
}

// Call POSTs requestXML to endpoint.URL and returns the response body.
func (t *Transport) Call(ctx context.Context, endpoint transport.Endpoint, requestXML []byte) ([]byte, error) {
	ep, ok := endpoint.(Endpoint)
	if !ok {
		return nil, transport.ErrCarriageType
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(requestXML))
	if err != nil {
		return nil, fmt.Errorf("xmlrpc/http: building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", t.userAgent)
	for k, vs := range ep.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return body, nil
}

// Close waits for every outstanding async call to complete, with no
// deadline, and then releases idle connections.
func (t *Transport) Close() error {
	err := t.FinishAsync(context.Background())
	t.client.CloseIdleConnections()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
