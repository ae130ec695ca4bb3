package httpmsg

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func TestVersionMapping(t *testing.T) {
	want := map[Version]string{
		HTTP09: "0.9",
		HTTP10: "1.0",
		HTTP11: "1.1",
		HTTP2:  "2.0",
		HTTP3:  "3.0",
	}
	for _, v := range Versions() {
		s, err := v.Text()
		if err != nil {
			t.Fatalf("Text(%d): %v", v, err)
		}
		if s != want[v] {
			t.Fatalf("Text(%d) = %q, want %q", v, s, want[v])
		}
		back, err := ParseVersion(s)
		if err != nil || back != v {
			t.Fatalf("ParseVersion(%q) = %v, %v; want %v", s, back, err, v)
		}
		_, major, minor := v.Proto()
		if got, err := VersionFromProto(major, minor); err != nil || got != v {
			t.Fatalf("VersionFromProto(%d, %d) = %v, %v", major, minor, got, err)
		}
	}
}

func TestParseVersion_Rejects(t *testing.T) {
	for _, s := range []string{"", "1", "2", "1.2", "HTTP/1.1", " 1.1", "3.0.0", "v2.0"} {
		if _, err := ParseVersion(s); !errors.Is(err, ErrUnknownProtocolVersion) {
			t.Errorf("ParseVersion(%q) err = %v, want ErrUnknownProtocolVersion", s, err)
		}
	}
	if _, err := Version(0).Text(); !errors.Is(err, ErrUnknownProtocolVersion) {
		t.Errorf("zero Version encoded without error")
	}
}

func TestNew_Normalizes(t *testing.T) {
	req, err := New("post", "example.test/ping", HTTP11, []Header{
		{Name: "x-token", Value: "a"},
		{Name: "Accept", Value: "text/plain"},
		{Name: "X-Token", Value: "b"},
	}, []byte("hi"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if req.Method != "POST" {
		t.Errorf("method = %q, want POST", req.Method)
	}
	if req.URL != "http://example.test/ping" {
		t.Errorf("url = %q", req.URL)
	}
	want := http.Header{"X-Token": {"b"}, "Accept": {"text/plain"}}
	if diff := cmp.Diff(want, req.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_KeepsHTTPSScheme(t *testing.T) {
	req, err := New("GET", "https://example.test", HTTP2, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if req.URL != "https://example.test" {
		t.Errorf("url = %q", req.URL)
	}
	if req.Body != nil {
		t.Errorf("body = %v, want nil", req.Body)
	}
}

func TestNew_Errors(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		url     string
		version Version
		headers []Header
		want    error
	}{
		{"bad method", "GE T", "example.test", HTTP11, nil, ErrInvalidMethod},
		{"empty method", "", "example.test", HTTP11, nil, ErrInvalidMethod},
		{"bad version", "GET", "example.test", Version(42), nil, ErrUnknownProtocolVersion},
		{"bad header name", "GET", "example.test", HTTP11, []Header{{Name: "a b", Value: "x"}}, ErrInvalidHeader},
		{"bad header value", "GET", "example.test", HTTP11, []Header{{Name: "A", Value: "x\r\ny"}}, ErrInvalidHeader},
		{"non-utf8 header value", "GET", "example.test", HTTP11, []Header{{Name: "X-Name", Value: "caf\xe9"}}, ErrInvalidHeader},
		{"no host", "GET", "http://", HTTP11, nil, ErrInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.method, tc.url, tc.version, tc.headers, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader("Authorization: Bearer a:b")
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Name != "Authorization" || h.Value != "Bearer a:b" {
		t.Fatalf("got %+v", h)
	}
	if _, err := ParseHeader("no-colon"); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("err = %v, want ErrInvalidHeader", err)
	}
	if _, err := ParseHeader("X-Name: caf\xe9"); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("non-utf8 value err = %v, want ErrInvalidHeader", err)
	}

	h, err = ParseHeader("Cache-Control: no-cache, max-age=0")
	if err != nil || h.Value != "no-cache, max-age=0" {
		t.Fatalf("comma value = %+v, %v", h, err)
	}
}

func TestRequestHTTP(t *testing.T) {
	req, err := New("PUT", "example.test/x", HTTP10, []Header{{Name: "A", Value: "1"}}, []byte("payload"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hr, err := req.HTTP(context.Background())
	if err != nil {
		t.Fatalf("HTTP: %v", err)
	}
	if hr.Proto != "HTTP/1.0" || hr.ProtoMajor != 1 || hr.ProtoMinor != 0 {
		t.Errorf("proto = %s %d.%d", hr.Proto, hr.ProtoMajor, hr.ProtoMinor)
	}
	b, _ := io.ReadAll(hr.Body)
	if string(b) != "payload" {
		t.Errorf("body = %q", b)
	}

	// The source request keeps its bytes for a second build.
	hr2, _ := req.HTTP(context.Background())
	b2, _ := io.ReadAll(hr2.Body)
	if string(b2) != "payload" {
		t.Errorf("second body = %q", b2)
	}
}

func TestClient_PinsVersion(t *testing.T) {
	var gotMajor int
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMajor = r.ProtoMajor
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(h2c.NewHandler(h, &http2.Server{}))
	defer srv.Close()

	c := NewClient(0)
	for _, tc := range []struct {
		v     Version
		major int
	}{{HTTP11, 1}, {HTTP2, 2}} {
		req, err := New("GET", srv.URL, tc.v, nil, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		hr, _ := req.HTTP(context.Background())
		resp, err := c.Do(hr)
		if err != nil {
			t.Fatalf("Do(%s): %v", tc.v, err)
		}
		resp.Body.Close()
		if gotMajor != tc.major {
			t.Errorf("version %s served as HTTP/%d", tc.v, gotMajor)
		}
	}

	req, _ := New("GET", srv.URL, HTTP3, nil, nil)
	hr, _ := req.HTTP(context.Background())
	if _, err := c.Do(hr); !errors.Is(err, ErrUnsupportedTransport) {
		t.Fatalf("HTTP/3 err = %v, want ErrUnsupportedTransport", err)
	}
}
