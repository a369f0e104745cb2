// Package docstore is a small REST client for the external JSON-record
// service ("DocStore", a PocketBase-compatible collection API) that backs
// chat threads, reminder records, and media/journal metadata.
package docstore

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
)

// Client talks to a single DocStore instance.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a Client. baseURL's trailing slash is stripped.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Page is one page of a collection listing.
type Page struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

// ListPage fetches one page of collection, page numbers are 1-based.
func (c *Client) ListPage(ctx context.Context, collection string, page, perPage int, filter string) (Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	if filter != "" {
		q.Set("filter", filter)
	}
	u := fmt.Sprintf("%s/api/collections/%s/records?%s", c.BaseURL, collection, q.Encode())

	var out Page
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return Page{}, err
	}
	return out, nil
}

// Create inserts a new record into collection and returns the created
// record's raw JSON.
func (c *Client) Create(ctx context.Context, collection string, body any) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/api/collections/%s/records", c.BaseURL, collection)
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, u, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Patch applies a partial update to an existing record.
func (c *Client) Patch(ctx context.Context, collection, id string, body any) error {
	u := fmt.Sprintf("%s/api/collections/%s/records/%s", c.BaseURL, collection, id)
	return c.doJSON(ctx, http.MethodPatch, u, body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("docstore: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("docstore: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("docstore: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("docstore: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("docstore: %s %s: status %d: %s", method, url, resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("docstore: decode response: %w", err)
	}
	return nil
}
