// internal/httpmsg/transport.go
//
// Version-aware dispatch.
//
// Context
// -------
// net/http negotiates the protocol on its own, which would make the stored
// version a lie.  Client routes each request to a transport pinned to the
// recorded version instead:
//
//   - 0.9, 1.0, 1.1 → HTTP/1.x transport with HTTP/2 negotiation disabled.
//   - 2.0 over https → x/net/http2 transport (ALPN h2).
//   - 2.0 over http  → x/net/http2 transport with prior-knowledge h2c.
//   - 3.0            → ErrUnsupportedTransport (no QUIC stack is linked).
//
// Notes
// -----
//   - Go cannot emit HTTP/0.9 or HTTP/1.0 request lines; those versions are
//     recorded faithfully but travel as HTTP/1.1.
//   - Timeout 0 means no timeout, so a hung server blocks the call.
package httpmsg

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// ErrUnsupportedTransport is returned when no transport can carry the version.
var ErrUnsupportedTransport = errors.New("no transport for protocol version")

// Doer is the dispatch contract the engine depends on.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client pins each request to the transport of its recorded version.
type Client struct {
	h1  *http.Client
	h2  *http.Client
	h2c *http.Client
}

// NewClient builds a Client.  timeout applies to the whole exchange.
func NewClient(timeout time.Duration) *Client {
	h1 := http.DefaultTransport.(*http.Transport).Clone()
	h1.ForceAttemptHTTP2 = false
	h1.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	h2c := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}

	return &Client{
		h1:  &http.Client{Transport: h1, Timeout: timeout},
		h2:  &http.Client{Transport: &http2.Transport{}, Timeout: timeout},
		h2c: &http.Client{Transport: h2c, Timeout: timeout},
	}
}

// Do dispatches req using req.ProtoMajor to pick the transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	switch req.ProtoMajor {
	case 0, 1:
		return c.h1.Do(req)
	case 2:
		if req.URL.Scheme == "https" {
			return c.h2.Do(req)
		}
		return c.h2c.Do(req)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransport, req.Proto)
}
