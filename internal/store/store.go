// internal/store/store.go
//
// Persistence and retrieval of request and response rows.
//
// Context
// -------
// Store is the only code that speaks SQL.  It writes rows produced by the
// record codecs and reads them back for listing, describing, and retry.
//
//   - InsertRequest / InsertResponse → storage-assigned id.
//   - ListRequests / ListResponses   → newest first, bounded by limit.
//   - RequestByID / ResponseByID     → exactly one row or a not-found error.
//   - ResponsesForRequest            → the one-to-many side of a request.
//
// Soft delete
// -----------
// A row with a non-NULL deleted_at is invisible to every read here, for both
// resource kinds and for get-by-id.  Retry of a soft-deleted request
// therefore fails with ErrRequestNotFound.
//
// Notes
// -----
//   - Ties on the timestamp column are broken by id, newest first.
//   - Column lists match record.RequestRecord / record.ResponseRecord.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/apibot/internal/database"
	"github.com/yanizio/apibot/internal/record"
)

var (
	// ErrRequestNotFound is returned when no non-deleted request row matches.
	ErrRequestNotFound = errors.New("request not found")

	// ErrResponseNotFound is returned when no non-deleted response row matches.
	ErrResponseNotFound = errors.New("response not found")

	// ErrStorageUnavailable wraps failures to open, bootstrap, or write the
	// database.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

const (
	requestColumns = `id, namespace, method, version, url, header, body, body_encoding,
	                  created_at, updated_at, deleted_at`
	responseColumns = `id, namespace, request_id, status_code, header, body, body_encoding,
	                   received_at, deleted_at`
)

// Store wraps one *sqlx.DB.
type Store struct {
	db *sqlx.DB
}

// New wraps an already open handle.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// Open connects with database.Open, wrapping failures as ErrStorageUnavailable.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w: %w", driver, ErrStorageUnavailable, err)
	}
	return New(db), nil
}

// Close releases the connection.
func (s *Store) Close() error { return s.db.Close() }

// InsertRequest writes rec and returns its id.  rec.ID is ignored.
func (s *Store) InsertRequest(ctx context.Context, rec record.RequestRecord) (int64, error) {
	const q = `
	    INSERT INTO apibot_request
	           (namespace, method, version, url, header, body, body_encoding, created_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		rec.Namespace, rec.Method, rec.Version, rec.URL,
		rec.Header, rec.Body, rec.BodyEncoding, rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert request: %w: %w", ErrStorageUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert request id: %w: %w", ErrStorageUnavailable, err)
	}
	return id, nil
}

// InsertResponse writes rec and returns its id.  rec.ID is ignored.
func (s *Store) InsertResponse(ctx context.Context, rec record.ResponseRecord) (int64, error) {
	const q = `
	    INSERT INTO apibot_response
	           (namespace, request_id, status_code, header, body, body_encoding, received_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		rec.Namespace, rec.RequestID, rec.StatusCode,
		rec.Header, rec.Body, rec.BodyEncoding, rec.ReceivedAt)
	if err != nil {
		return 0, fmt.Errorf("insert response: %w: %w", ErrStorageUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert response id: %w: %w", ErrStorageUnavailable, err)
	}
	return id, nil
}

// ListRequests returns up to limit non-deleted requests, newest first.
func (s *Store) ListRequests(ctx context.Context, limit int) ([]record.RequestRecord, error) {
	rows := make([]record.RequestRecord, 0, capFor(limit))
	if limit <= 0 {
		return rows, nil
	}
	q := `
	    SELECT ` + requestColumns + `
	    FROM   apibot_request
	    WHERE  deleted_at IS NULL
	    ORDER  BY created_at DESC, id DESC
	    LIMIT  ?`
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListResponses returns up to limit non-deleted responses, newest first.
func (s *Store) ListResponses(ctx context.Context, limit int) ([]record.ResponseRecord, error) {
	rows := make([]record.ResponseRecord, 0, capFor(limit))
	if limit <= 0 {
		return rows, nil
	}
	q := `
	    SELECT ` + responseColumns + `
	    FROM   apibot_response
	    WHERE  deleted_at IS NULL
	    ORDER  BY received_at DESC, id DESC
	    LIMIT  ?`
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// RequestByID fetches one non-deleted request.
func (s *Store) RequestByID(ctx context.Context, id int64) (*record.RequestRecord, error) {
	q := `
	    SELECT ` + requestColumns + `
	    FROM   apibot_request
	    WHERE  id = ?
	      AND  deleted_at IS NULL
	    LIMIT  1`
	var rec record.RequestRecord
	if err := s.db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrRequestNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

// ResponseByID fetches one non-deleted response.
func (s *Store) ResponseByID(ctx context.Context, id int64) (*record.ResponseRecord, error) {
	q := `
	    SELECT ` + responseColumns + `
	    FROM   apibot_response
	    WHERE  id = ?
	      AND  deleted_at IS NULL
	    LIMIT  1`
	var rec record.ResponseRecord
	if err := s.db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrResponseNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

// ResponsesForRequest returns every non-deleted response of one request,
// newest first.
func (s *Store) ResponsesForRequest(ctx context.Context, requestID int64) ([]record.ResponseRecord, error) {
	q := `
	    SELECT ` + responseColumns + `
	    FROM   apibot_response
	    WHERE  request_id = ?
	      AND  deleted_at IS NULL
	    ORDER  BY received_at DESC, id DESC`
	rows := make([]record.ResponseRecord, 0, 4)
	if err := s.db.SelectContext(ctx, &rows, q, requestID); err != nil {
		return nil, err
	}
	return rows, nil
}

// capFor keeps a huge --limit from pre-allocating a huge slice.
func capFor(limit int) int {
	switch {
	case limit <= 0:
		return 0
	case limit > 64:
		return 64
	}
	return limit
}
