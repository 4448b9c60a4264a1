// Package api is the HTTP client both dashboards use to talk to the zone
// routing server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zoneroute/internal/models"
)

// DefaultTimeout bounds a single request when the caller's context has no deadline.
const DefaultTimeout = 10 * time.Second

// StatusError is returned by read calls that get a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("api: unexpected status %d: %s", e.Code, e.Message)
}

// Client wraps the zone routing HTTP API
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Zones fetches GET /zones.
func (c *Client) Zones(ctx context.Context) ([]models.Zone, error) {
	var m map[string]models.ZoneResponse
	if err := c.get(ctx, "/zones", &m); err != nil {
		return nil, err
	}
	return models.ZonesFromResponse(m), nil
}

// Clients fetches GET /clients.
func (c *Client) Clients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := c.get(ctx, "/clients", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Route fetches GET /routes/{worker}.
func (c *Client) Route(ctx context.Context, worker string) ([]models.Client, error) {
	var clients []models.Client
	if err := c.get(ctx, "/routes/"+url.PathEscape(worker), &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Workers fetches GET /workers.
func (c *Client) Workers(ctx context.Context) ([]string, error) {
	var workers []string
	if err := c.get(ctx, "/workers", &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// PhotoLogs fetches GET /clients/{id}/photos.
func (c *Client) PhotoLogs(ctx context.Context, clientID int) ([]models.PhotoLog, error) {
	var logs []models.PhotoLog
	if err := c.get(ctx, "/clients/"+strconv.Itoa(clientID)+"/photos", &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// AssignZone sends POST /assign. err is only set for transport or decoding
// failures; the HTTP status code is returned for the caller to classify.
func (c *Client) AssignZone(ctx context.Context, req models.AssignZoneRequest) (models.AssignZoneResponse, int, error) {
	var resp models.AssignZoneResponse
	code, err := c.send(ctx, http.MethodPost, "/assign", req, &resp)
	return resp, code, err
}

// UpdateClient sends PUT /clients/{id}.
func (c *Client) UpdateClient(ctx context.Context, clientID int, patch models.ClientPatch) (models.UpdateClientResponse, int, error) {
	var resp models.UpdateClientResponse
	code, err := c.send(ctx, http.MethodPut, "/clients/"+strconv.Itoa(clientID), patch, &resp)
	return resp, code, err
}

// AppendPhoto sends POST /clients/{id}/photos.
func (c *Client) AppendPhoto(ctx context.Context, clientID int, req models.AppendPhotoRequest) (models.AppendPhotoResponse, int, error) {
	var resp models.AppendPhotoResponse
	code, err := c.send(ctx, http.MethodPost, "/clients/"+strconv.Itoa(clientID)+"/photos", req, &resp)
	return resp, code, err
}

// RegisterDeviceToken sends POST /workers/{worker}/device-tokens.
func (c *Client) RegisterDeviceToken(ctx context.Context, worker string, req models.RegisterDeviceTokenRequest) error {
	var resp map[string]interface{}
	code, err := c.send(ctx, http.MethodPost, "/workers/"+url.PathEscape(worker)+"/device-tokens", req, &resp)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		msg, _ := resp["message"].(string)
		return &StatusError{Code: code, Message: msg}
	}
	return nil
}

// Diagnostic is a problem report posted to /logs/diagnostic.
type Diagnostic struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Source    string                 `json:"source"`
}

// ReportDiagnostic sends POST /logs/diagnostic. Failures are returned but
// callers usually ignore them.
func (c *Client) ReportDiagnostic(ctx context.Context, d Diagnostic) error {
	if d.Timestamp == "" {
		d.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	var resp map[string]interface{}
	code, err := c.send(ctx, http.MethodPost, "/logs/diagnostic", d, &resp)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		msg, _ := resp["message"].(string)
		return &StatusError{Code: code, Message: msg}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("api: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("api: read %s response: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("api: decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func readErrorMessage(r io.Reader) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || json.Unmarshal(data, &body) != nil {
		return strings.TrimSpace(string(data))
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
