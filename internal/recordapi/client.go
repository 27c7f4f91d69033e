// Package recordapi is a client for the record service that stores tasks
// remotely, plus the wire types shared with the development server.
package recordapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
)

// Errors returned by Client. Callers test for them with errors.Is.
var (
	// ErrUnavailable means the call did not complete and was not applied.
	ErrUnavailable = errors.New("record service unavailable")

	// ErrOutcomeUnknown means a mutating call was sent but its response was
	// lost, so the change may or may not have been applied.
	ErrOutcomeUnknown = errors.New("record service outcome unknown")

	// ErrUnauthorized means the service rejected the credentials.
	ErrUnauthorized = errors.New("record service rejected credentials")

	// ErrNotFound means the collection or record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Config holds what the client needs to reach one project.
type Config struct {
	BaseURL   string
	ProjectID string
	PublicKey string

	// Token is the session token sent as a Bearer credential.
	Token string

	// Timeout bounds each HTTP attempt. Zero means 30 seconds.
	Timeout time.Duration
}

// Client is a thin HTTP client for the record service. It handles
// authentication headers, JSON encoding, and retry with exponential
// backoff on HTTP 429.
type Client struct {
	baseURL    string
	projectID  string
	publicKey  string
	token      string
	httpClient *http.Client
	maxRetries int
	log        *logrus.Entry
}

// NewClient creates a record service client.
func NewClient(cfg Config, log *logrus.Entry) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		projectID: cfg.ProjectID,
		publicKey: cfg.PublicKey,
		token:     cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
		log:        log.WithField("component", "recordapi"),
	}
}

// Fetch returns the records of collection matching params.
func (c *Client) Fetch(ctx context.Context, collection string, params FetchParams) ([]Record, error) {
	var resp FetchResponse
	if err := c.do(ctx, http.MethodPost, collectionPath(collection, "fetch"), params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetching %s: %w: %s", collection, ErrUnavailable, resp.Message)
	}
	return resp.Data, nil
}

// Create inserts records and returns one result per record.
func (c *Client) Create(ctx context.Context, collection string, records []Record) ([]RecordResult, error) {
	return c.batch(ctx, http.MethodPost, collection, RecordsRequest{Records: records})
}

// Update merges the fields of each record into the stored record with the
// same Id.
func (c *Client) Update(ctx context.Context, collection string, records []Record) ([]RecordResult, error) {
	return c.batch(ctx, http.MethodPatch, collection, RecordsRequest{Records: records})
}

// Delete removes the records with the given ids.
func (c *Client) Delete(ctx context.Context, collection string, ids []string) ([]RecordResult, error) {
	return c.batch(ctx, http.MethodDelete, collection, DeleteRequest{RecordIDs: ids})
}

func (c *Client) batch(ctx context.Context, method, collection string, body any) ([]RecordResult, error) {
	var resp BatchResponse
	if err := c.do(ctx, method, collectionPath(collection, "records"), body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && len(resp.Results) == 0 {
		return nil, fmt.Errorf("%s %s: %w: %s", method, collection, ErrUnavailable, resp.Message)
	}
	return resp.Results, nil
}

func collectionPath(collection, action string) string {
	return "/v1/collections/" + url.PathEscape(collection) + "/" + action
}

// do builds the request, sets auth headers, retries on 429 and decodes
// the JSON response. Transport failures on mutating methods after the
// request may have been sent are reported as ErrOutcomeUnknown.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
) error {
	mutating := method != http.MethodGet && !strings.HasSuffix(path, "/fetch")

	var payload []byte
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if c.publicKey != "" {
			req.Header.Set("X-Api-Key", c.publicKey)
		}
		if c.projectID != "" {
			req.Header.Set("X-Project-Id", c.projectID)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return c.transportError(method, path, mutating, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return c.transportError(method, path, mutating, readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			c.log.WithFields(logrus.Fields{"path": path, "attempt": attempt, "wait": wait}).Warn("rate limited")

			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(wait):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%s %s: %w (%d)", method, path, ErrUnauthorized, resp.StatusCode)
		}

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := string(respBody)
			var apiErr ErrorResponse
			if sonic.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
				msg = apiErr.Message
			}
			sentinel := ErrUnavailable
			if mutating && resp.StatusCode >= 500 {
				sentinel = ErrOutcomeUnknown
			}
			return fmt.Errorf("%w: status %d on %s %s: %s", sentinel, resp.StatusCode, method, path, msg)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := sonic.Unmarshal(respBody, result); err != nil {
			sentinel := ErrUnavailable
			if mutating {
				sentinel = ErrOutcomeUnknown
			}
			return fmt.Errorf("%w: unmarshaling response from %s %s: %w", sentinel, method, path, err)
		}

		return nil
	}

	return fmt.Errorf("%w: max retries (%d) exceeded: %w", ErrUnavailable, c.maxRetries, lastErr)
}

// transportError classifies a failed round trip. A refused dial never
// reached the service, anything later might have.
func (c *Client) transportError(method, path string, mutating bool, err error) error {
	sentinel := ErrUnavailable
	var opErr *net.OpError
	if mutating && !(errors.As(err, &opErr) && opErr.Op == "dial") {
		sentinel = ErrOutcomeUnknown
	}
	c.log.WithFields(logrus.Fields{"method": method, "path": path, "error": err}).Warn("request failed")
	return fmt.Errorf("%w: executing request %s %s: %w", sentinel, method, path, err)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
