// Package supabase is a minimal client for the Supabase Storage and PostgREST APIs.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)

// APIError is a non-2xx response from Supabase
type APIError struct {
	Status     int    `json:"-"`
	StatusCode string `json:"statusCode"` // Storage echoes an HTTP-like code in the body
	ErrorName  string `json:"error"`
	Message    string `json:"message"`
	Code       string `json:"code"` // PostgREST / Postgres error code
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.ErrorName
	}
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, msg)
}

// Is lets callers match API errors against ErrNotFound and ErrAlreadyExists
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.StatusCode == "404"
	case ErrAlreadyExists:
		// 23505 is the Postgres unique_violation code
		return e.Status == http.StatusConflict || e.StatusCode == "409" || e.Code == "23505" ||
			e.ErrorName == "Duplicate" || strings.Contains(strings.ToLower(e.Message), "already exists")
	}
	return false
}

// Client talks to a single Supabase project with a service credential
type Client struct {
	baseURL    string
	key        string
	HTTPClient *http.Client
}

// NewClient creates a client for the project at baseURL
func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// BaseURL returns the project URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, headers map[string]string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	// Best effort; plain-text bodies keep only Body
	_ = json.Unmarshal(body, apiErr)
	return apiErr
}
