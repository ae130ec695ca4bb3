// internal/record/model.go
//
// Row models for the request and response tables.
//
// Context
// -------
// The structs mirror one row each and carry `db:"…"` tags for sqlx scans.
// Timestamps are kept as text in the clock.Layout format; nullable columns
// are pointers and callers must nil-check before use.
//
// Schema reference
//
//	apibot_request  (id, namespace, method, version, url, header, body,
//	                 body_encoding, created_at, updated_at, deleted_at)
//	apibot_response (id, namespace, request_id, status_code, header, body,
//	                 body_encoding, received_at, deleted_at)
//
// Notes
// -----
//   - Column lists in internal/store match these fields; update both together.
//   - These structs contain no behaviour beyond small read helpers.
package record

// Body encodings stored in the body_encoding column.
const (
	EncodingUTF8   = "utf8"
	EncodingBase64 = "base64"
)

// RequestRecord mirrors one row in `apibot_request`.
type RequestRecord struct {
	ID           int64   `db:"id"`
	Namespace    string  `db:"namespace"`
	Method       string  `db:"method"`
	Version      string  `db:"version"`
	URL          string  `db:"url"`
	Header       string  `db:"header"`
	Body         string  `db:"body"`
	BodyEncoding string  `db:"body_encoding"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    *string `db:"updated_at"`
	DeletedAt    *string `db:"deleted_at"`
}

// ResponseRecord mirrors one row in `apibot_response`.
type ResponseRecord struct {
	ID           int64   `db:"id"`
	Namespace    string  `db:"namespace"`
	RequestID    int64   `db:"request_id"`
	StatusCode   int     `db:"status_code"`
	Header       string  `db:"header"`
	Body         string  `db:"body"`
	BodyEncoding string  `db:"body_encoding"`
	ReceivedAt   string  `db:"received_at"`
	DeletedAt    *string `db:"deleted_at"`
}

// Binary reports whether the stored body is base64 rather than text.
func (r ResponseRecord) Binary() bool { return r.BodyEncoding == EncodingBase64 }

// Binary reports whether the stored body is base64 rather than text.
func (r RequestRecord) Binary() bool { return r.BodyEncoding == EncodingBase64 }
