// internal/store/store_test.go
//
// Unit-tests for the store using sqlmock (SQL shape) and a throwaway sqlite
// file (ordering, limits, soft delete, bootstrap idempotence).
//
// Run: go test ./internal/store -v

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/apibot/internal/clock"
	"github.com/yanizio/apibot/internal/record"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "apibot_db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Bootstrap(context.Background(), DefaultNamespace, clock.System{}.Now()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return s
}

func requestRow(url, createdAt string) record.RequestRecord {
	return record.RequestRecord{
		Namespace:    DefaultNamespace,
		Method:       "GET",
		Version:      "1.1",
		URL:          url,
		Header:       "{}",
		BodyEncoding: record.EncodingUTF8,
		CreatedAt:    createdAt,
	}
}

func TestInsertRequest_SQL(t *testing.T) {
	s, mock := newMockStore(t)

	rec := requestRow("http://example.test/ping", "2026-10-18 09:30:00.000Z")
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO apibot_request (namespace, method, version, url, header, body, body_encoding, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)).
		WithArgs("default", "GET", "1.1", "http://example.test/ping", "{}", "", "utf8", "2026-10-18 09:30:00.000Z").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := s.InsertRequest(context.Background(), rec)
	if err != nil {
		t.Fatalf("InsertRequest error: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestInsertRequest_StorageUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO apibot_request").WillReturnError(errors.New("disk I/O error"))

	_, err := s.InsertRequest(context.Background(), requestRow("http://x.test", "t"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestListRequests_SQL(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "namespace", "method", "version", "url", "header", "body",
		"body_encoding", "created_at", "updated_at", "deleted_at"}
	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM apibot_request WHERE deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT ?`,
	)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, "default", "POST", "2.0", "https://b.test", `{"A":"1"}`, "x", "utf8", "t2", nil, nil).
			AddRow(1, "default", "GET", "1.1", "http://a.test", "{}", "", "utf8", "t1", nil, nil))

	got, err := s.ListRequests(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].URL != "http://a.test" {
		t.Fatalf("unexpected result: %#v", got)
	}
	if got[0].UpdatedAt != nil || got[0].DeletedAt != nil {
		t.Fatalf("nullable columns not nil: %#v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRequestByID_NotFound_SQL(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM apibot_request WHERE id = ? AND deleted_at IS NULL LIMIT 1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.RequestByID(context.Background(), 99)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}

func TestBootstrap_SQL(t *testing.T) {
	s, mock := newMockStore(t)
	for _, table := range []string{"version", "namespace", "request", "response", "script"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS apibot_" + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM apibot_namespace WHERE name = ?`)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO apibot_namespace (name, description, created_at) VALUES (?, ?, ?)`)).
		WithArgs("default", defaultNamespaceDescription, "now").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.Bootstrap(context.Background(), DefaultNamespace, "now"); err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	if err := s.Bootstrap(ctx, "staging", "now"); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if err := s.Bootstrap(ctx, "staging", "now"); err != nil {
		t.Fatalf("third Bootstrap: %v", err)
	}

	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT name FROM apibot_namespace ORDER BY name`); err != nil {
		t.Fatalf("select namespaces: %v", err)
	}
	if len(names) != 2 || names[0] != "default" || names[1] != "staging" {
		t.Fatalf("namespaces = %v", names)
	}
}

func TestListRequests_LimitAndOrder(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	clk := &clock.Stepper{Start: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), Step: time.Second}

	for i := 0; i < 5; i++ {
		if _, err := s.InsertRequest(ctx, requestRow(fmt.Sprintf("http://h.test/%d", i), clk.Now())); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	got, err := s.ListRequests(ctx, 3)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"http://h.test/4", "http://h.test/3", "http://h.test/2"} {
		if got[i].URL != want {
			t.Fatalf("row %d = %s, want %s", i, got[i].URL, want)
		}
	}

	// A newer row displaces the oldest of the window.
	if _, err := s.InsertRequest(ctx, requestRow("http://h.test/5", clk.Now())); err != nil {
		t.Fatalf("insert newest: %v", err)
	}
	got, _ = s.ListRequests(ctx, 3)
	if got[0].URL != "http://h.test/5" || got[2].URL != "http://h.test/3" {
		t.Fatalf("window after insert = %s .. %s", got[0].URL, got[2].URL)
	}

	if got, _ := s.ListRequests(ctx, 0); len(got) != 0 {
		t.Fatalf("limit 0 returned %d rows", len(got))
	}
}

func TestListRequests_Empty(t *testing.T) {
	s := newSQLiteStore(t)
	got, err := s.ListRequests(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty non-nil slice", got)
	}
}

func TestListResponses_LimitAndOrder(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	clk := &clock.Stepper{Start: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), Step: time.Second}

	reqID, err := s.InsertRequest(ctx, requestRow("http://h.test", clk.Now()))
	if err != nil {
		t.Fatalf("insert request: %v", err)
	}
	insert := func(status int) {
		t.Helper()
		if _, err := s.InsertResponse(ctx, record.ResponseRecord{
			Namespace: DefaultNamespace, RequestID: reqID, StatusCode: status,
			Header: "{}", BodyEncoding: record.EncodingUTF8, ReceivedAt: clk.Now(),
		}); err != nil {
			t.Fatalf("insert response %d: %v", status, err)
		}
	}
	for i := 0; i < 5; i++ {
		insert(200 + i)
	}

	got, err := s.ListResponses(ctx, 3)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int{204, 203, 202} {
		if got[i].StatusCode != want {
			t.Fatalf("row %d = %d, want %d", i, got[i].StatusCode, want)
		}
	}

	// A newer row displaces the oldest of the window.
	insert(205)
	got, _ = s.ListResponses(ctx, 3)
	if len(got) != 3 || got[0].StatusCode != 205 || got[2].StatusCode != 203 {
		t.Fatalf("window after insert = %+v", got)
	}

	if all, _ := s.ListResponses(ctx, 100); len(all) != 6 {
		t.Fatalf("limit above row count returned %d rows, want 6", len(all))
	}
	if got, _ := s.ListResponses(ctx, 0); len(got) != 0 {
		t.Fatalf("limit 0 returned %d rows", len(got))
	}
}

func TestSoftDeleteExcludedEverywhere(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	kept, _ := s.InsertRequest(ctx, requestRow("http://kept.test", "2026-10-18 09:00:00.000Z"))
	gone, _ := s.InsertRequest(ctx, requestRow("http://gone.test", "2026-10-18 09:00:01.000Z"))
	for _, reqID := range []int64{kept, gone} {
		if _, err := s.InsertResponse(ctx, record.ResponseRecord{
			Namespace: DefaultNamespace, RequestID: reqID, StatusCode: 200,
			Header: "{}", BodyEncoding: record.EncodingUTF8, ReceivedAt: "2026-10-18 09:00:02.000Z",
		}); err != nil {
			t.Fatalf("insert response: %v", err)
		}
	}

	stamp := "2026-10-18 10:00:00.000Z"
	if _, err := s.db.ExecContext(ctx, `UPDATE apibot_request SET deleted_at = ? WHERE id = ?`, stamp, gone); err != nil {
		t.Fatalf("soft delete request: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE apibot_response SET deleted_at = ? WHERE request_id = ?`, stamp, gone); err != nil {
		t.Fatalf("soft delete response: %v", err)
	}

	for _, n := range []int{1, 2, 100} {
		reqs, _ := s.ListRequests(ctx, n)
		for _, r := range reqs {
			if r.ID == gone {
				t.Fatalf("soft-deleted request listed with limit %d", n)
			}
		}
		resps, _ := s.ListResponses(ctx, n)
		for _, r := range resps {
			if r.RequestID == gone {
				t.Fatalf("soft-deleted response listed with limit %d", n)
			}
		}
	}

	if _, err := s.RequestByID(ctx, gone); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("RequestByID(soft-deleted) err = %v, want ErrRequestNotFound", err)
	}
	if rec, err := s.RequestByID(ctx, kept); err != nil || rec.URL != "http://kept.test" {
		t.Fatalf("RequestByID(kept) = %+v, %v", rec, err)
	}
	if rs, _ := s.ResponsesForRequest(ctx, gone); len(rs) != 0 {
		t.Fatalf("ResponsesForRequest(soft-deleted) = %d rows", len(rs))
	}
}

func TestResponsesForRequest(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	clk := &clock.Stepper{Start: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), Step: time.Millisecond}

	reqID, _ := s.InsertRequest(ctx, requestRow("http://a.test", clk.Now()))
	other, _ := s.InsertRequest(ctx, requestRow("http://b.test", clk.Now()))
	for i, owner := range []int64{reqID, other, reqID, reqID} {
		_, err := s.InsertResponse(ctx, record.ResponseRecord{
			Namespace: DefaultNamespace, RequestID: owner, StatusCode: 200 + i,
			Header: "{}", Body: "b", BodyEncoding: record.EncodingUTF8, ReceivedAt: clk.Now(),
		})
		if err != nil {
			t.Fatalf("insert response %d: %v", i, err)
		}
	}

	got, err := s.ResponsesForRequest(ctx, reqID)
	if err != nil {
		t.Fatalf("ResponsesForRequest: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].StatusCode != 203 || got[2].StatusCode != 200 {
		t.Fatalf("order = %d .. %d, want newest first", got[0].StatusCode, got[2].StatusCode)
	}

	one, err := s.ResponseByID(ctx, got[1].ID)
	if err != nil || one.StatusCode != 202 {
		t.Fatalf("ResponseByID = %+v, %v", one, err)
	}
	if _, err := s.ResponseByID(ctx, 9999); !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("ResponseByID(missing) err = %v", err)
	}
}
