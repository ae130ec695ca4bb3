// internal/httpmsg/request.go
//
// In-memory request value and its construction rules.
//
// Context
// -------
// A Request is what the user asked for, before and after persistence.  It
// holds the payload as bytes, so it can be encoded to a row and turned into
// a *http.Request any number of times (send, then retry) without worrying
// about drained body streams.
//
// Construction (`New`) is the only place where user input is normalised:
//
//  1. Method is upper-cased and validated as an HTTP token.
//  2. A URL with no "http" prefix gets "http://" prepended.
//  3. The URL must parse as absolute with a host.
//  4. Headers are validated and collapsed last-write-wins by canonical name.
//
// Notes
// -----
//   - Storage never normalises anything; decode rebuilds the value verbatim.
//   - Oxford commas, two spaces after periods.
package httpmsg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
)

var (
	// ErrInvalidMethod is returned for a method that is not an HTTP token.
	ErrInvalidMethod = errors.New("invalid method")

	// ErrInvalidURL is returned when the URL cannot be made absolute.
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidHeader is returned for a malformed header name or value.
	ErrInvalidHeader = errors.New("invalid header")
)

// Request is one outbound HTTP request.
type Request struct {
	Method  string
	URL     string
	Version Version
	Header  http.Header
	Body    []byte // nil when absent
}

// Header is one user-supplied name/value pair, in the order given.
type Header struct {
	Name  string
	Value string
}

// New builds a Request from raw user input.
func New(method, rawURL string, v Version, headers []Header, body []byte) (*Request, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if err := ValidateMethod(method); err != nil {
		return nil, err
	}
	if !v.Valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownProtocolVersion, int(v))
	}

	u, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	h := make(http.Header, len(headers))
	for _, kv := range headers {
		if !httpguts.ValidHeaderFieldName(kv.Name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidHeader, kv.Name)
		}
		if err := validHeaderValue(kv.Name, kv.Value); err != nil {
			return nil, err
		}
		h.Set(kv.Name, kv.Value) // last write wins
	}

	return &Request{
		Method:  method,
		URL:     u,
		Version: v,
		Header:  h,
		Body:    body,
	}, nil
}

// ValidateMethod reports whether m is a syntactically valid HTTP method token.
func ValidateMethod(m string) error {
	if m == "" {
		return fmt.Errorf("%w: empty", ErrInvalidMethod)
	}
	for _, r := range m {
		if !httpguts.IsTokenRune(r) {
			return fmt.Errorf("%w: %q", ErrInvalidMethod, m)
		}
	}
	return nil
}

// NormalizeURL prefixes "http://" when raw lacks any http scheme prefix and
// checks that the result is absolute.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	return u.String(), nil
}

// ParseHeader splits "Name: value" on the first colon.  Surrounding
// whitespace of the value is trimmed.
func ParseHeader(s string) (Header, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return Header{}, fmt.Errorf("%w: could not find ':' in %q", ErrInvalidHeader, s)
	}
	name := strings.TrimSpace(s[:i])
	if !httpguts.ValidHeaderFieldName(name) {
		return Header{}, fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	value := strings.TrimSpace(s[i+1:])
	if err := validHeaderValue(name, value); err != nil {
		return Header{}, err
	}
	return Header{Name: name, Value: value}, nil
}

// validHeaderValue accepts field values that are legal on the wire and valid
// UTF-8.  obs-text bytes pass httpguts but cannot be stored as JSON text.
func validHeaderValue(name, value string) error {
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: value for %q is not valid UTF-8", ErrInvalidHeader, name)
	}
	return nil
}

// HTTP returns a fresh *http.Request for dispatch.  The body reader and
// GetBody are backed by a copy of r.Body, so redirects can replay it.
func (r *Request) HTTP(ctx context.Context) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Proto, req.ProtoMajor, req.ProtoMinor = r.Version.Proto()
	return req, nil
}
