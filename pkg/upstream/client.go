package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/telemetry/metrics"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
	"mercator-hq/cwlens/pkg/window"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Endpoint names used in errors, metrics, and spans.
const (
	EndpointProfiles        = "profiles"
	EndpointWindowType      = "context_window_type"
	EndpointModelLimit      = "model_context_limit"
	EndpointSession         = "session"
	EndpointSetSessionLimit = "set_session_context_limit"
)

// ModelCapability is the model behind an LLM configuration.
type ModelCapability struct {
	MaxContextTokens int    `json:"max_context_tokens"`
	Model            string `json:"model"`
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Collector
	Tracer     *tracing.Tracer
}

// OptionsFromConfig builds Options from the upstream configuration section.
func OptionsFromConfig(cfg config.UpstreamConfig) Options {
	return Options{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}
}

// Client calls the upstream REST endpoints. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	newID   func() string
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("upstream base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    httpClient,
		logger:  logger.With("component", "upstream"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		newID:   uuid.NewString,
	}, nil
}

// Profiles lists the caller's profiles.
func (c *Client) Profiles(ctx context.Context) ([]window.Profile, error) {
	var resp struct {
		Profiles []window.Profile `json:"profiles"`
	}
	if err := c.do(ctx, EndpointProfiles, http.MethodGet, "/profiles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// WindowType fetches a context window type with defaults applied.
func (c *Client) WindowType(ctx context.Context, id string) (*window.Type, error) {
	if id == "" {
		return nil, errors.New("context window type id is required")
	}
	var wt window.Type
	if err := c.do(ctx, EndpointWindowType, http.MethodGet, "/context-window-types/"+url.PathEscape(id), nil, &wt); err != nil {
		return nil, err
	}
	wt.ApplyDefaults()
	return &wt, nil
}

// ModelLimit fetches the context capability of an LLM configuration.
func (c *Client) ModelLimit(ctx context.Context, llmConfigID string) (ModelCapability, error) {
	if llmConfigID == "" {
		return ModelCapability{}, errors.New("llm configuration id is required")
	}
	var capability ModelCapability
	path := "/llm/configurations/" + url.PathEscape(llmConfigID) + "/context-limit"
	if err := c.do(ctx, EndpointModelLimit, http.MethodGet, path, nil, &capability); err != nil {
		return ModelCapability{}, err
	}
	return capability, nil
}

// SessionOverride fetches the session's context limit override.
// A nil result means no override is set.
func (c *Client) SessionOverride(ctx context.Context, sessionID string) (*int, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	var resp struct {
		Override *int `json:"session_context_limit_override"`
	}
	if err := c.do(ctx, EndpointSession, http.MethodGet, "/session/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Override, nil
}

// SetSessionOverride writes the session's context limit override.
// A nil tokens clears it.
func (c *Client) SetSessionOverride(ctx context.Context, sessionID string, tokens *int) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	body := struct {
		ContextLimit *int `json:"context_limit"`
	}{ContextLimit: tokens}
	path := "/sessions/" + url.PathEscape(sessionID) + "/context-limit"
	return c.do(ctx, EndpointSetSessionLimit, http.MethodPost, path, body, nil)
}

// do performs one JSON request. out may be nil.
func (c *Client) do(ctx context.Context, endpoint, method, path string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "upstream."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	requestID := c.newID()
	target := c.baseURL.String() + path
	tracing.SetUpstreamAttributes(span, endpoint, method, target, requestID)

	var status int
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.metrics.RecordUpstreamRequest(endpoint, status, elapsed, err)
		if err != nil {
			tracing.SetError(span, err)
			c.logger.WarnContext(ctx, "upstream request failed",
				"endpoint", endpoint,
				"request_id", requestID,
				"status", status,
				"error", err,
			)
			return
		}
		c.logger.DebugContext(ctx, "upstream request",
			"endpoint", endpoint,
			"request_id", requestID,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		)
	}()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
			RequestID:  requestID,
		}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
	}
	return nil
}
