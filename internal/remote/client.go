package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stackguardian/tplsync/internal/models"
)

const (
	// DefaultBaseURL of the template service.
	DefaultBaseURL = "https://api.app.stackguardian.io"

	// templateTypePath is the IAC template collection prefix shared by
	// every endpoint this client talks to.
	templateTypePath = "/api/v1/templatetypes/IAC"

	// defaultTimeout for HTTP calls when the caller does not set one.
	defaultTimeout = 30 * time.Second
)

// Client talks to the template service. Every call carries the API key
// and the organization-scope header; the organization value comes from
// the template reference in use (embedded org segment or explicit org
// parameter, depending on addressing mode).
type Client struct {
	BaseURL    string
	Token      string
	Org        string
	HTTPClient *http.Client
}

// New builds a Client. An empty baseURL falls back to DefaultBaseURL
// and a zero timeout to the default.
func New(baseURL, token, org string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Token:      token,
		Org:        org,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the response wrapper used by every endpoint. A non-null
// "errors" field marks a failure regardless of HTTP status.
type envelope struct {
	Msg    json.RawMessage `json:"msg"`
	Errors json.RawMessage `json:"errors"`
}

// ListRevisions returns the revision descriptors matching templateID,
// oldest first; the last element is the latest revision.
func (c *Client) ListRevisions(ctx context.Context, templateID string) ([]models.RevisionDescriptor, error) {
	path := templateTypePath + "/templates/listall/?TemplateId=" + url.QueryEscape(templateID)
	var descriptors []models.RevisionDescriptor
	if err := c.do(ctx, http.MethodGet, path, nil, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// GetSummary returns the NextRevision counter for org/name. The latest
// existing revision is NextRevision - 1.
func (c *Client) GetSummary(ctx context.Context, org, name string) (int, error) {
	path := fmt.Sprintf("%s/%s/%s/", templateTypePath, org, name)
	var summary struct {
		NextRevision int `json:"NextRevision"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &summary); err != nil {
		return 0, err
	}
	return summary.NextRevision, nil
}

// GetRevision fetches the full detail of a pinned revision. pinnedID is
// the path segment following the IAC prefix, e.g. "/demo-org/vpc:3".
func (c *Client) GetRevision(ctx context.Context, pinnedID string) (*models.RevisionDetails, error) {
	var details models.RevisionDetails
	if err := c.do(ctx, http.MethodGet, templateTypePath+pinnedID, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// PatchRevision applies a partial update to a pinned revision. Only the
// fields present in patch are modified server-side.
func (c *Client) PatchRevision(ctx context.Context, pinnedID string, patch *models.RevisionPatch) (*models.RevisionDetails, error) {
	var details models.RevisionDetails
	if err := c.do(ctx, http.MethodPatch, templateTypePath+pinnedID, patch, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "apikey "+c.Token)
	req.Header.Set("x-sg-orgid", c.Org)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("template service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(data, &env); jsonErr == nil {
		if msg, found := errorMessage(env.Errors); found {
			return &Error{StatusCode: resp.StatusCode, Message: msg}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(env.Msg, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the server-supplied message from an "errors"
// field, which may be a plain string or arbitrary JSON.
func errorMessage(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, true
	}
	return string(raw), true
}
