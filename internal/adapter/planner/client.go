// Package planner provides an HTTP client for the external planning service
// (the LLM-backed agent that breaks a goal into tasks).
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/PlanForge/internal/config"
	"github.com/Strob0t/PlanForge/internal/domain"
	"github.com/Strob0t/PlanForge/internal/domain/plan"
	"github.com/Strob0t/PlanForge/internal/resilience"
)

const (
	planPath   = "/react-agent"
	healthPath = "/health"

	maxResponseSize = 4 << 20 // 4 MB
)

// planRequest is the body sent to the planning endpoint.
type planRequest struct {
	Goal string `json:"goal"`
}

// planResponse is the reply of the planning endpoint. Tasks may be absent.
type planResponse struct {
	Tasks []plan.TaskItem `json:"tasks"`
}

// Client talks to the planning service.
type Client struct {
	baseURL       string
	timeout       time.Duration
	healthTimeout time.Duration
	httpClient    *http.Client
	breaker       *resilience.Breaker
}

// NewClient creates a planning service client from cfg.
func NewClient(cfg config.Planner) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to plan requests. Only failures that
// indicate an unhealthy upstream count against it; 4xx replies do not.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b.CountIf(countsAsOutage)
}

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestPlan sends goal to the planning service and returns its task list.
func (c *Client) RequestPlan(ctx context.Context, goal string) ([]plan.TaskItem, error) {
	body, err := json.Marshal(planRequest{Goal: goal})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal plan request: %w", domain.ErrRequestFailed, err)
	}

	var tasks []plan.TaskItem
	call := func() error {
		var err error
		tasks, err = c.requestPlan(ctx, body)
		return err
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
		}
	} else {
		err = call()
	}
	if err != nil {
		slog.WarnContext(ctx, "planner request failed", "url", c.baseURL+planPath, "error", err)
		return nil, err
	}
	return tasks, nil
}

func (c *Client) requestPlan(ctx context.Context, body []byte) ([]plan.TaskItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+planPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.DebugContext(ctx, "sending goal to planner", "url", req.URL.String(), "bytes", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(resp.StatusCode, data),
		}
	}

	var out planResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode planner response: %w", domain.ErrRequestFailed, err)
	}
	if out.Tasks == nil {
		slog.WarnContext(ctx, "planner response had no task list")
		return []plan.TaskItem{}, nil
	}
	return out.Tasks, nil
}

// CheckHealth probes the planner's health endpoint with a short timeout.
// It reports false on any failure and never returns an error.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "planner health probe failed", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// classifyTransport maps a transport-level failure onto the planner error taxonomy.
func classifyTransport(err error) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	case isTimeout(err):
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrRequestFailed, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// countsAsOutage reports whether err means the planner itself is unhealthy.
func countsAsOutage(err error) bool {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= 500
	}
	return errors.Is(err, domain.ErrServiceUnavailable) ||
		errors.Is(err, domain.ErrUpstreamTimeout) ||
		errors.Is(err, domain.ErrRequestFailed)
}

// upstreamMessage extracts a human-readable message from an error reply:
// the "error" field, else "detail", else the status text.
func upstreamMessage(status int, data []byte) string {
	var body struct {
		Error  any `json:"error"`
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, v := range []any{body.Error, body.Detail} {
			if s := messageString(v); s != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func messageString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
