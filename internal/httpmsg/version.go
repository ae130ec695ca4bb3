// internal/httpmsg/version.go
//
// Protocol-version tags and their persisted text form.
//
// Context
// -------
// The version is an enum in memory and text on disk.  This file is the one
// seam between the two: every tag has exactly one string, and every string
// outside the closed set is rejected rather than coerced to a default.
//
//	0.9 ↔ "0.9"   1.0 ↔ "1.0"   1.1 ↔ "1.1"   2.0 ↔ "2.0"   3.0 ↔ "3.0"
//
// Notes
// -----
//   - The zero Version is invalid on purpose; a forgotten assignment fails
//     loudly at encode time.
//   - Oxford commas, two spaces after periods.
package httpmsg

import (
	"errors"
	"fmt"
)

// ErrUnknownProtocolVersion is returned for any version outside the closed set.
var ErrUnknownProtocolVersion = errors.New("unknown protocol version")

// Version is an HTTP protocol version tag.
type Version int

const (
	HTTP09 Version = iota + 1
	HTTP10
	HTTP11
	HTTP2
	HTTP3
)

var versionText = map[Version]string{
	HTTP09: "0.9",
	HTTP10: "1.0",
	HTTP11: "1.1",
	HTTP2:  "2.0",
	HTTP3:  "3.0",
}

var textVersion = map[string]Version{
	"0.9": HTTP09,
	"1.0": HTTP10,
	"1.1": HTTP11,
	"2.0": HTTP2,
	"3.0": HTTP3,
}

// Versions lists every legal tag in ascending order.
func Versions() []Version { return []Version{HTTP09, HTTP10, HTTP11, HTTP2, HTTP3} }

// ParseVersion maps the persisted text back to a tag.
func ParseVersion(s string) (Version, error) {
	v, ok := textVersion[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProtocolVersion, s)
	}
	return v, nil
}

// String returns the persisted text, or "" for an invalid tag.
func (v Version) String() string { return versionText[v] }

// Valid reports whether v is one of the five defined tags.
func (v Version) Valid() bool {
	_, ok := versionText[v]
	return ok
}

// Text is String with an error for invalid tags.  Encoders use it so an
// invalid tag never reaches storage as "".
func (v Version) Text() (string, error) {
	s, ok := versionText[v]
	if !ok {
		return "", fmt.Errorf("%w: tag %d", ErrUnknownProtocolVersion, int(v))
	}
	return s, nil
}

// Proto returns the net/http protocol triple, e.g. ("HTTP/1.1", 1, 1).
func (v Version) Proto() (proto string, major, minor int) {
	switch v {
	case HTTP09:
		return "HTTP/0.9", 0, 9
	case HTTP10:
		return "HTTP/1.0", 1, 0
	case HTTP11:
		return "HTTP/1.1", 1, 1
	case HTTP2:
		return "HTTP/2.0", 2, 0
	case HTTP3:
		return "HTTP/3.0", 3, 0
	}
	return "", 0, 0
}

// VersionFromProto is the inverse of Proto.
func VersionFromProto(major, minor int) (Version, error) {
	for _, v := range Versions() {
		if _, ma, mi := v.Proto(); ma == major && mi == minor {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: HTTP/%d.%d", ErrUnknownProtocolVersion, major, minor)
}
