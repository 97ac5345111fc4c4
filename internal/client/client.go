// Package client is the HTTP client for the Request Store API. It
// implements the dispatch.Store operations over the store service's
// REST surface and reports remote rejections distinctly from transport
// failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stockflow/stockflow-golang/internal/models"
)

// RemoteError is a completed call the store answered with failure.
// Transport errors (connection refused, timeouts) surface as wrapped
// *url.Error instead.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("store rejected request (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("store rejected request (%d)", e.StatusCode)
}

// Client talks to one Request Store deployment on behalf of one admin.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken replaces the bearer token (after Login).
func (c *Client) SetToken(token string) { c.token = token }

// errorEnvelope is the store's failure body shape.
type errorEnvelope struct {
	Error string `json:"error"`
}

// do runs one call and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &RemoteError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Login exchanges admin credentials for a bearer token and installs it
// on the client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// ListRequests fetches every request in the administrator's scope.
func (c *Client) ListRequests(ctx context.Context, adminID int64) ([]models.RequestRecord, error) {
	var resp struct {
		Requests []models.RequestRecord `json:"requests"`
	}
	path := fmt.Sprintf("/api/requests/%d", adminID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// SetField asks the store to set one whitelisted field. For the four
// milestone fields the value is simply true; the store owns the clock
// and stamps the date itself.
func (c *Client) SetField(ctx context.Context, id string, field string, value any) error {
	body := map[string]any{field: value}
	var resp struct {
		Success bool `json:"success"`
	}
	path := "/api/request/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &RemoteError{StatusCode: http.StatusOK, Message: "field update not applied"}
	}
	return nil
}

// ConfirmOrder triggers the dedicated order-confirmation transition.
func (c *Client) ConfirmOrder(ctx context.Context, id string) error {
	path := "/api/confirm-order/" + url.PathEscape(id)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// DeleteRequest removes a delivered request by its compound key.
func (c *Client) DeleteRequest(ctx context.Context, productCode, requestedEmail string) error {
	path := "/api/request/delete/" + url.PathEscape(productCode) + "/" + url.PathEscape(requestedEmail)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
