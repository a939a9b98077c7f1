package node

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chaingate/internal/failure"
	"chaingate/internal/jsonrpc"
	"chaingate/internal/metrics"
)

// Session owns one WebSocket connection to one endpoint for the lifetime of a
// single orchestration call. It is never shared across concurrent requests and
// is not safe for concurrent use.
type Session struct {
	conn        *websocket.Conn
	endpoint    string
	callTimeout time.Duration
	logger      zerolog.Logger

	reqID     int64
	closeOnce sync.Once
}

// Endpoint returns the endpoint URL this session is bound to.
func (s *Session) Endpoint() string { return s.endpoint }

// Close releases the underlying connection. Idempotent and panic-free:
// callers invoke it unconditionally on every exit path.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Str("endpoint", s.endpoint).Msg("session close")
		}
	})
}

// Call issues one remote procedure call over the open session and returns its
// decoded result. No retries happen here: retry-via-rotation is the caller's
// concern, keeping this a pure one-shot primitive. A JSON null result is
// returned as-is; callers decide whether it means "not found".
func (s *Session) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	metrics.RPCCalls.WithLabelValues(method).Inc()

	id := atomic.AddInt64(&s.reqID, 1)
	req := jsonrpc.NewCall(id, method, params)
	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, &failure.RemoteCallError{Method: method, Message: err.Error()}
	}

	deadline := time.Now().Add(s.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.TextMessage, reqBytes); err != nil {
		metrics.RPCFailures.WithLabelValues(method).Inc()
		return nil, &failure.ConnectivityError{Endpoint: s.endpoint, Err: err}
	}

	for {
		s.conn.SetReadDeadline(deadline)
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			metrics.RPCFailures.WithLabelValues(method).Inc()
			return nil, &failure.ConnectivityError{Endpoint: s.endpoint, Err: err}
		}

		resp, err := jsonrpc.ParseResponse(data)
		if err != nil {
			s.logger.Debug().Err(err).Str("endpoint", s.endpoint).Msg("unparseable frame, skipping")
			continue
		}
		// Frames without our id are notices or leftovers from the node side.
		if !resp.ID.EqualInt(id) {
			continue
		}

		if resp.HasError() {
			metrics.RPCFailures.WithLabelValues(method).Inc()
			if resp.Error.Code == jsonrpc.CodeMethodNotFound {
				return nil, &failure.MethodNotAvailableError{Method: method}
			}
			return nil, &failure.RemoteCallError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return resp.Result, nil
	}
}
