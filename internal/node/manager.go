package node

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
	"chaingate/internal/metrics"
	"chaingate/internal/registry"
)

// Conn is the per-request session surface orchestrators consume.
type Conn interface {
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	Close()
	Endpoint() string
}

// Opener opens a request-scoped session for a chain.
type Opener interface {
	Open(ctx context.Context, ch chain.Chain) (Conn, error)
}

// Manager opens request-scoped sessions against the registry's preferred
// endpoint. Sessions are not pooled: request volume is moderate and failover
// correctness (always knowing which endpoint is current) matters more than
// connection reuse.
type Manager struct {
	registry       *registry.Registry
	connectTimeout time.Duration
	callTimeout    time.Duration
	logger         zerolog.Logger

	dial func(ctx context.Context, url string) (*websocket.Conn, error)
}

// NewManager creates a session manager on top of an endpoint registry.
func NewManager(reg *registry.Registry, connectTimeout, callTimeout time.Duration, logger zerolog.Logger) *Manager {
	m := &Manager{
		registry:       reg,
		connectTimeout: connectTimeout,
		callTimeout:    callTimeout,
		logger:         logger.With().Str("component", "session").Logger(),
	}
	m.dial = func(ctx context.Context, url string) (*websocket.Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: m.connectTimeout}
		conn, _, err := dialer.DialContext(ctx, url, nil)
		return conn, err
	}
	return m
}

// Open connects to the chain's current endpoint. If the head is unreachable
// the registry rotates exactly once, and the remaining candidates are then
// tried in the rotated order without further rotation; later requests start
// from the rotated preference. All candidates failing surfaces the last
// connect error.
func (m *Manager) Open(ctx context.Context, ch chain.Chain) (Conn, error) {
	head := m.registry.Current(ch)
	if head == "" {
		return nil, &failure.ConfigError{Reason: fmt.Sprintf("no endpoints configured for chain %s", ch)}
	}

	conn, err := m.dial(ctx, head)
	if err == nil {
		return m.newSession(conn, head), nil
	}

	var lastErr error = &failure.ConnectivityError{Endpoint: head, Err: err}
	m.logger.Warn().
		Str("chain", ch.String()).
		Str("endpoint", head).
		Err(err).
		Msg("endpoint unreachable, rotating")
	m.registry.Rotate(ch)
	metrics.Rotations.WithLabelValues(ch.String()).Inc()

	// Skip only the first occurrence of the failed head: endpoint lists may
	// legitimately repeat a URL, and the duplicates remain candidates.
	headSkipped := false
	for _, candidate := range m.registry.Snapshot(ch) {
		if !headSkipped && candidate == head {
			headSkipped = true
			continue
		}
		conn, err := m.dial(ctx, candidate)
		if err != nil {
			lastErr = &failure.ConnectivityError{Endpoint: candidate, Err: err}
			m.logger.Warn().
				Str("chain", ch.String()).
				Str("endpoint", candidate).
				Err(err).
				Msg("endpoint unreachable")
			continue
		}
		return m.newSession(conn, candidate), nil
	}
	return nil, lastErr
}

func (m *Manager) newSession(conn *websocket.Conn, endpoint string) *Session {
	m.logger.Debug().Str("endpoint", endpoint).Msg("session opened")
	return &Session{
		conn:        conn,
		endpoint:    endpoint,
		callTimeout: m.callTimeout,
		logger:      m.logger,
	}
}
