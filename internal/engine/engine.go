// internal/engine/engine.go
//
// Execution engine: send and retry.
//
// Context
// -------
// The engine is the orchestration point between the record codecs, the
// store, and the transport.
//
// Send
// ----
//  1. Encode and persist the request row, obtaining its id.  A storage
//     failure stops here; nothing is dispatched.
//  2. Dispatch over the transport.
//  3. On success, drain and persist the response row, return the result.
//  4. On transport failure, return *TransportError.  The request row stays
//     as evidence of an unanswered call; no response row is written.
//
// Retry
// -----
// Load the request row by id (soft-deleted rows count as missing), decode
// it, and run steps 2–4 against the SAME id and namespace.  No new request
// row is created, so one request accumulates many responses.
//
// Notes
// -----
//   - There is no automatic retry of failed dispatches.
//   - A response row is written whole or not at all.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/apibot/internal/clock"
	"github.com/yanizio/apibot/internal/httpmsg"
	"github.com/yanizio/apibot/internal/metrics"
	"github.com/yanizio/apibot/internal/record"
	"github.com/yanizio/apibot/internal/store"
)

// TransportError wraps a failed network exchange.
type TransportError struct {
	RequestID int64
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %d: transport failure: %v", e.RequestID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Store is the persistence surface the engine needs.  *store.Store
// satisfies it.
type Store interface {
	InsertRequest(context.Context, record.RequestRecord) (int64, error)
	InsertResponse(context.Context, record.ResponseRecord) (int64, error)
	RequestByID(context.Context, int64) (*record.RequestRecord, error)
}

var _ Store = (*store.Store)(nil)

// Result is what one dispatch produced.
type Result struct {
	RequestID  int64
	ResponseID int64
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Engine runs sends and retries.  Zero value is invalid; use New.
type Engine struct {
	store     Store
	client    httpmsg.Doer
	clock     clock.Clock
	namespace string
	log       *zap.Logger
}

// New builds an Engine.  namespace tags every request row Send writes.
func New(st Store, client httpmsg.Doer, clk clock.Clock, namespace string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:     st,
		client:    client,
		clock:     clk,
		namespace: namespace,
		log:       log.Named("engine"),
	}
}

// Send persists req, dispatches it, and persists the response.
func (e *Engine) Send(ctx context.Context, req *httpmsg.Request) (*Result, error) {
	rec, err := record.EncodeRequest(req, e.namespace, e.clock.Now())
	if err != nil {
		return nil, err
	}
	id, err := e.store.InsertRequest(ctx, rec)
	if err != nil {
		return nil, err
	}
	metrics.RequestsRecordedTotal.Inc()
	e.log.Info("request recorded",
		zap.Int64("request_id", id),
		zap.String("method", rec.Method),
		zap.String("url", rec.URL),
		zap.String("version", rec.Version))

	return e.dispatch(ctx, "send", id, e.namespace, req)
}

// Retry re-dispatches the stored request id and links the new response to it.
func (e *Engine) Retry(ctx context.Context, id int64) (*Result, error) {
	rec, err := e.store.RequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req, err := record.DecodeRequest(*rec)
	if err != nil {
		e.log.Error("stored request does not decode", zap.Int64("request_id", id), zap.Error(err))
		return nil, err
	}
	e.log.Info("retrying request",
		zap.Int64("request_id", id),
		zap.String("method", rec.Method),
		zap.String("url", rec.URL))

	return e.dispatch(ctx, "retry", id, rec.Namespace, req)
}

func (e *Engine) dispatch(ctx context.Context, op string, id int64, namespace string, req *httpmsg.Request) (*Result, error) {
	httpReq, err := req.HTTP(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		metrics.TransportFailuresTotal.WithLabelValues(op).Inc()
		e.log.Warn("dispatch failed", zap.String("op", op), zap.Int64("request_id", id), zap.Error(err))
		return nil, &TransportError{RequestID: id, Err: err}
	}
	defer resp.Body.Close()

	rec, body, err := record.EncodeResponse(resp, id, namespace, e.clock.Now())
	if err != nil {
		metrics.TransportFailuresTotal.WithLabelValues(op).Inc()
		e.log.Warn("response body incomplete", zap.String("op", op), zap.Int64("request_id", id), zap.Error(err))
		return nil, &TransportError{RequestID: id, Err: err}
	}
	metrics.DispatchSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())

	respID, err := e.store.InsertResponse(ctx, rec)
	if err != nil {
		return nil, err
	}
	metrics.ResponsesRecordedTotal.WithLabelValues(op).Inc()
	e.log.Info("response recorded",
		zap.String("op", op),
		zap.Int64("request_id", id),
		zap.Int64("response_id", respID),
		zap.Int("status", rec.StatusCode),
		zap.Int("bytes", len(body)))

	return &Result{
		RequestID:  id,
		ResponseID: respID,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
