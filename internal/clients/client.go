package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/config"
)

// baseClient performs JSON calls against one collaborator service with a per-call
// timeout and bounded retries on transport errors and 5xx responses.
type baseClient struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	log          zerolog.Logger
}

func newBaseClient(cfg config.ServiceConfig, log zerolog.Logger) baseClient {
	return baseClient{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		log:          log,
	}
}

// do sends the request and decodes a 2xx body into out. The returned status is 0 only
// when no response was received. Non-2xx statuses are not errors; callers decide.
func (c *baseClient) do(ctx context.Context, method, path string, in, out interface{}) (int, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s %s: encoding body: %w", method, path, err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryBackoff * time.Duration(attempt)
			c.log.Warn().
				Err(lastErr).
				Str("path", path).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Retrying collaborator call")
			select {
			case <-ctx.Done():
				return 0, fmt.Errorf("%s %s: %w", method, path, ctx.Err())
			case <-time.After(wait):
			}
		}

		status, retry, err := c.once(ctx, method, path, payload, out)
		if err == nil || !retry {
			return status, err
		}
		lastErr = err
	}
	return 0, lastErr
}

func (c *baseClient) once(ctx context.Context, method, path string, payload []byte, out interface{}) (int, bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, false, fmt.Errorf("%s %s: building request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled caller context is final; anything else may be transient.
		return 0, ctx.Err() == nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Collaborator call")

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, true, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, false, nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, false, fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return resp.StatusCode, false, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
