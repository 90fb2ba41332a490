package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/telemetry/metrics"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
	"mercator-hq/cwlens/pkg/window"
)

// MessageTypeSnapshot is the push message type carrying a budget snapshot.
const MessageTypeSnapshot = "context_window_snapshot"

// Message is a push stream frame.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

// Event is a decoded snapshot push.
type Event struct {
	SessionID  string
	Snapshot   *window.Snapshot
	ReceivedAt time.Time
}

// Handler receives snapshot events. It runs on the stream's goroutine.
type Handler func(ctx context.Context, ev Event)

// StreamOptions configures a Stream.
type StreamOptions struct {
	URL               string
	Token             string
	ReconnectInterval time.Duration
	ReconnectBurst    int
	HandshakeTimeout  time.Duration
	Logger            *slog.Logger
	Metrics           *metrics.Collector
	Tracer            *tracing.Tracer
}

// StreamOptionsFromConfig builds StreamOptions from the upstream section.
// An empty stream URL is derived from the base URL.
func StreamOptionsFromConfig(cfg config.UpstreamConfig) (StreamOptions, error) {
	streamURL := cfg.Stream.URL
	if streamURL == "" {
		derived, err := DeriveStreamURL(cfg.BaseURL)
		if err != nil {
			return StreamOptions{}, err
		}
		streamURL = derived
	}
	return StreamOptions{
		URL:               streamURL,
		Token:             cfg.Token,
		ReconnectInterval: cfg.Stream.ReconnectInterval,
		ReconnectBurst:    cfg.Stream.ReconnectBurst,
		HandshakeTimeout:  cfg.Stream.HandshakeTimeout,
	}, nil
}

// DeriveStreamURL maps an http(s) base URL to its ws(s) push endpoint.
func DeriveStreamURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid upstream base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("cannot derive stream URL from scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// Stream consumes the snapshot push channel.
type Stream struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewStream creates a Stream. Nothing is dialled until Run.
func NewStream(opts StreamOptions) (*Stream, error) {
	if opts.URL == "" {
		return nil, errors.New("stream URL is required")
	}
	interval := opts.ReconnectInterval
	if interval <= 0 {
		interval = config.DefaultStreamReconnectInterval
	}
	burst := opts.ReconnectBurst
	if burst <= 0 {
		burst = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	return &Stream{
		url:    opts.URL,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		logger:  logger.With("component", "stream"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}, nil
}

// Run connects and delivers snapshot events to handle until ctx is done.
// Connection failures are logged and retried; Run returns nil on
// cancellation.
func (s *Stream) Run(ctx context.Context, handle Handler) error {
	first := true
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
		if !first {
			s.metrics.RecordStreamReconnect()
		}
		first = false

		err := s.session(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("snapshot stream disconnected", "url", s.url, "error", err)
	}
}

// session runs one connection until it fails or ctx ends.
func (s *Stream) session(ctx context.Context, handle Handler) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", s.url, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	s.logger.Info("snapshot stream connected", "url", s.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.dispatch(ctx, data, handle)
	}
}

func (s *Stream) dispatch(ctx context.Context, data []byte, handle Handler) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.metrics.RecordStreamMessage("malformed")
		s.logger.Warn("discarding malformed stream message", "error", err)
		return
	}
	if msg.Type != MessageTypeSnapshot {
		s.metrics.RecordStreamMessage("ignored")
		s.logger.Debug("ignoring stream message", "type", msg.Type)
		return
	}

	ctx, span := s.tracer.Start(ctx, "upstream.snapshot_push")
	defer span.End()
	tracing.SetSessionAttributes(span, msg.SessionID, "")

	if msg.SessionID == "" {
		s.metrics.RecordStreamMessage("malformed")
		s.logger.Warn("discarding snapshot message without session id")
		return
	}

	var snap window.Snapshot
	if len(msg.Snapshot) == 0 {
		s.metrics.RecordStreamMessage("malformed")
		s.logger.Warn("discarding snapshot message without payload", "session", msg.SessionID)
		return
	}
	if err := json.Unmarshal(msg.Snapshot, &snap); err != nil {
		s.metrics.RecordStreamMessage("malformed")
		tracing.SetError(span, err)
		s.logger.Warn("discarding undecodable snapshot", "session", msg.SessionID, "error", err)
		return
	}

	s.metrics.RecordStreamMessage(MessageTypeSnapshot)
	handle(ctx, Event{SessionID: msg.SessionID, Snapshot: &snap, ReceivedAt: time.Now()})
}
