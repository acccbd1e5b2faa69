package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/daybookhq/daybook/internal/config"
)

// Request is the JSON body for one save attempt.
type Request struct {
	Text        string `json:"text"`
	Version     int64  `json:"version"`
	NewTitle    string `json:"new_title"`
	NewDate     string `json:"new_date"`
	NewTimezone string `json:"new_timezone"`
}

type saveResponse struct {
	Status           string `json:"status"`
	Version          int64  `json:"version"`
	ModifiedDatetime string `json:"modified_datetime"`
	Message          string `json:"message"`
}

// Client sends one save attempt and maps the response onto the save
// outcome types. Retry policy lives above it in SaveWithRetry.
type Client interface {
	Save(ctx context.Context, req Request) (*Ack, error)
}

// HTTPClient posts saves to an entry's save endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client

	authHeader string
	authValue  string
}

func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetAuthHeader attaches a static credential header to every save, for
// callers that are not riding a browser session.
func (c *HTTPClient) SetAuthHeader(name, value string) {
	c.authHeader = name
	c.authValue = value
}

func (c *HTTPClient) Save(ctx context.Context, req Request) (*Ack, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &FatalError{Message: fmt.Sprintf("encoding save request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &FatalError{Message: fmt.Sprintf("building save request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", config.CTypeJSON)
	if c.authHeader != "" {
		httpReq.Header.Set(c.authHeader, c.authValue)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &RetryableError{Message: "save request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Message: "reading save response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, &ConflictError{Payload: string(raw)}
	case resp.StatusCode >= 500:
		return nil, &RetryableError{Message: serverMessage(raw, resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &FatalError{StatusCode: resp.StatusCode, Message: serverMessage(raw, resp.StatusCode)}
	}

	var sr saveResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, &RetryableError{Message: "decoding save response", Err: err}
	}
	if sr.Status != "success" {
		return nil, &FatalError{Message: sr.Message}
	}

	ack := &Ack{Version: sr.Version}
	if t, err := time.Parse(time.RFC3339, sr.ModifiedDatetime); err == nil {
		ack.Modified = t
	}
	return ack, nil
}

// serverMessage prefers the JSON message field when the error body carries
// one, falling back to the status code.
func serverMessage(raw []byte, code int) string {
	var sr saveResponse
	if err := json.Unmarshal(raw, &sr); err == nil && sr.Message != "" {
		return sr.Message
	}
	return fmt.Sprintf("server returned status %d", code)
}

// SaveWithRetry runs one save cycle: the initial attempt plus up to limit
// retries for retryable failures, doubling the delay each time starting
// from base. Conflicts and fatal errors end the cycle immediately; an
// exhausted cycle returns the last retryable error.
func SaveWithRetry(ctx context.Context, client Client, clock Clock, req Request, base time.Duration, limit int) (*Ack, error) {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil, &RetryableError{Message: "save abandoned", Err: ctx.Err()}
		}

		ack, err := client.Save(ctx, req)
		if err == nil {
			return ack, nil
		}

		var rerr *RetryableError
		if !errors.As(err, &rerr) {
			return nil, err
		}

		failures++
		if failures > limit {
			return nil, err
		}

		delay := base << (failures - 1)
		autosaveLogger.Warn().
			Err(err).
			Int("attempt", failures).
			Dur("retry_in", delay).
			Msg("Save failed, retrying")
		if err := sleep(ctx, clock, delay); err != nil {
			return nil, &RetryableError{Message: "save abandoned", Err: err}
		}
	}
}

func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	done := make(chan struct{})
	t := clock.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
