package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewHTTPClient returns the client shared by the backends. Per-call deadlines
// come from the context; the client timeout is only a safety net.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

// PostJSON sends body as JSON to url and decodes the 2xx response into out.
// Failures are wrapped with ErrBackendUnavailable or ErrBackendError.
func PostJSON(ctx context.Context, client *http.Client, backend, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: %w: encode request: %v", backend, ErrBackendError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w: build request: %v", backend, ErrBackendError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransport(backend, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return classifyTransport(backend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w: status %d: %s", backend, ErrBackendUnavailable, resp.StatusCode, snippet)
		}
		return fmt.Errorf("%s: %w: status %d: %s", backend, ErrBackendError, resp.StatusCode, snippet)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %v", backend, ErrBackendError, err)
	}
	return nil
}
