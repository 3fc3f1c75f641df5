package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio/model"
)

const maxResponseBytes = 64 * 1024

// HTTPTransport talks to the backend's JSON API rooted at base
// (for example http://localhost:5000/api).
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport creates a transport for base. A nil client gets a 10s timeout.
func NewHTTPTransport(base string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTransport{base: strings.TrimRight(base, "/"), client: client}
}

func (t *HTTPTransport) Submit(ctx context.Context, fields model.ContactFields) (model.Ack, error) {
	var ack model.Ack
	status, err := t.do(ctx, "submit contact", http.MethodPost, "/contact", fields, &ack)
	if err != nil {
		return model.Ack{}, err
	}
	if !ack.Success || status >= 300 {
		msg := ack.Message
		if msg == "" {
			msg = "Failed to send message"
		}
		return ack, &ServerError{Status: status, Message: msg}
	}
	return ack, nil
}

func (t *HTTPTransport) Health(ctx context.Context) (model.HealthStatus, error) {
	var h model.HealthStatus
	status, err := t.do(ctx, "health", http.MethodGet, "/health", nil, &h)
	if err != nil {
		return model.HealthStatus{}, err
	}
	if status != http.StatusOK {
		return h, &ServerError{Status: status, Message: "health check failed"}
	}
	return h, nil
}

// PageView posts page-view metadata. The response body is ignored.
func (t *HTTPTransport) PageView(ctx context.Context, view map[string]any) error {
	_, err := t.do(ctx, "page view", http.MethodPost, "/analytics/view", view, nil)
	return err
}

func (t *HTTPTransport) do(ctx context.Context, op, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: encode: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return resp.StatusCode, &NetworkError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, &ServerError{Status: resp.StatusCode, Message: "malformed response"}
	}
	return resp.StatusCode, nil
}
