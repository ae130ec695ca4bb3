// internal/record/codec.go
//
// Request and response codecs.
//
// Context
// -------
// EncodeRequest and DecodeRequest are inverses: decode(encode(x)) yields the
// same method, URL, version, header set, and body.  Header order is not
// kept, only the set of name→value pairs.  Responses are encode-only since
// they are never replayed.
//
// Header rule
// -----------
// A header name maps to exactly one stored value.  When a name carries
// several values the LAST one wins, for requests and responses alike, and
// the other values are dropped.  Names are stored in canonical MIME form.
// Request header values must be valid UTF-8 or encoding fails.  Response
// values are recorded as received, so invalid bytes are written as a
// visible `\xNN` escape instead.
//
// Body rule
// ---------
// Payloads are bytes.  Valid UTF-8 is stored verbatim with body_encoding
// "utf8"; anything else is stored base64 with body_encoding "base64".  An
// absent payload is stored as "" and decodes to a nil body.
package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"

	"github.com/yanizio/apibot/internal/httpmsg"
)

var (
	// ErrMalformedHeaderRecord means a stored header blob is not a JSON
	// object of strings.  The codec never writes one, so this is corruption.
	ErrMalformedHeaderRecord = errors.New("malformed header record")

	// ErrNonUTF8Header means a header value cannot be stored as JSON text
	// without altering it.
	ErrNonUTF8Header = errors.New("header value is not valid UTF-8")

	// ErrMalformedBodyRecord means body_encoding is unknown or the base64
	// payload does not decode.
	ErrMalformedBodyRecord = errors.New("malformed body record")
)

// EncodeRequest converts req into a row stamped with now.  ID is left zero
// for storage to assign.
func EncodeRequest(req *httpmsg.Request, namespace, now string) (RequestRecord, error) {
	version, err := req.Version.Text()
	if err != nil {
		return RequestRecord{}, err
	}
	header, err := EncodeHeader(req.Header)
	if err != nil {
		return RequestRecord{}, err
	}
	body, enc := EncodeBody(req.Body)

	return RequestRecord{
		Namespace:    namespace,
		Method:       req.Method,
		Version:      version,
		URL:          req.URL,
		Header:       header,
		Body:         body,
		BodyEncoding: enc,
		CreatedAt:    now,
	}, nil
}

// DecodeRequest rebuilds an executable request from a stored row.
func DecodeRequest(rec RequestRecord) (*httpmsg.Request, error) {
	header, err := DecodeHeader(rec.Header)
	if err != nil {
		return nil, fmt.Errorf("request %d: %w", rec.ID, err)
	}
	version, err := httpmsg.ParseVersion(rec.Version)
	if err != nil {
		return nil, fmt.Errorf("request %d: %w", rec.ID, err)
	}
	if err := httpmsg.ValidateMethod(rec.Method); err != nil {
		return nil, fmt.Errorf("request %d: %w", rec.ID, err)
	}
	body, err := DecodeBody(rec.Body, rec.BodyEncoding)
	if err != nil {
		return nil, fmt.Errorf("request %d: %w", rec.ID, err)
	}

	return &httpmsg.Request{
		Method:  rec.Method,
		URL:     rec.URL,
		Version: version,
		Header:  header,
		Body:    body,
	}, nil
}

// EncodeResponse drains resp.Body completely and converts the response into
// a row owned by requestID.  The drained bytes are returned because the
// stream is exhausted afterwards.  The caller still closes resp.Body.
func EncodeResponse(resp *http.Response, requestID int64, namespace, now string) (ResponseRecord, []byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResponseRecord{}, nil, fmt.Errorf("read response body: %w", err)
	}
	header, err := EncodeHeader(escapeHeader(resp.Header))
	if err != nil {
		return ResponseRecord{}, nil, err
	}
	body, enc := EncodeBody(raw)

	return ResponseRecord{
		Namespace:    namespace,
		RequestID:    requestID,
		StatusCode:   resp.StatusCode,
		Header:       header,
		Body:         body,
		BodyEncoding: enc,
		ReceivedAt:   now,
	}, raw, nil
}

// EncodeHeader collapses h to one value per name (last wins) and renders a
// JSON object.  Keys come out sorted.  A kept value that is not valid UTF-8
// fails with ErrNonUTF8Header.
func EncodeHeader(h http.Header) (string, error) {
	flat := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		if !utf8.ValidString(value) {
			return "", fmt.Errorf("%w: %q", ErrNonUTF8Header, http.CanonicalHeaderKey(name))
		}
		flat[http.CanonicalHeaderKey(name)] = value
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(flat); err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// escapeHeader returns h with every invalid UTF-8 byte in a value replaced
// by `\xNN`.  h is not modified.
func escapeHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		vs := make([]string, len(values))
		for i, v := range values {
			vs[i] = escapeInvalidUTF8(v)
		}
		out[name] = vs
	}
	return out
}

func escapeInvalidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&b, `\x%02X`, s[i])
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// DecodeHeader parses a stored header blob.
func DecodeHeader(s string) (http.Header, error) {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedHeaderRecord)
	}
	var flat map[string]string
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeaderRecord, err)
	}

	h := make(http.Header, len(flat))
	for name, value := range flat {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("%w: invalid field %q", ErrMalformedHeaderRecord, name)
		}
		h.Set(name, value)
	}
	return h, nil
}

// EncodeBody returns the stored text and its encoding tag.
func EncodeBody(b []byte) (text, encoding string) {
	if utf8.Valid(b) {
		return string(b), EncodingUTF8
	}
	return base64.StdEncoding.EncodeToString(b), EncodingBase64
}

// DecodeBody is the inverse of EncodeBody.  "" decodes to nil.
func DecodeBody(text, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingUTF8, "":
		if text == "" {
			return nil, nil
		}
		return []byte(text), nil
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBodyRecord, err)
		}
		if len(b) == 0 {
			return nil, nil
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: encoding %q", ErrMalformedBodyRecord, encoding)
}
