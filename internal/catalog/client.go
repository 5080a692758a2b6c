// Package catalog is the HTTP client for the companion edition server.
// Network failures here are surfaced as visible but non-fatal notices;
// retry is manual.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/devdvd/klogame-client/internal/klogame"
)

// Client talks to the catalog collaborator.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ListEditions returns the catalog's edition metadata list.
func (c *Client) ListEditions(ctx context.Context) ([]klogame.EditionMetadata, error) {
	var resp struct {
		Editions []klogame.EditionMetadata `json:"editions"`
	}
	if err := c.getJSON(ctx, "/api/editions", &resp); err != nil {
		return nil, err
	}
	return resp.Editions, nil
}

// EditionDetails returns metadata for one edition, without locations.
func (c *Client) EditionDetails(ctx context.Context, id string) (klogame.EditionMetadata, error) {
	var meta klogame.EditionMetadata
	err := c.getJSON(ctx, "/api/editions/"+id, &meta)
	return meta, err
}

// DownloadEdition fetches the full edition including its locations.
func (c *Client) DownloadEdition(ctx context.Context, id string) (klogame.Edition, error) {
	var e klogame.Edition
	err := c.getJSON(ctx, "/api/editions/"+id+"/download", &e)
	return e, err
}

// Health pings the collaborator. Informational only.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.getJSON(ctx, "/health", &resp)
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("catalog %s: %s", path, errBody.Error)
		}
		return fmt.Errorf("catalog %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding catalog response %s: %w", path, err)
	}
	return nil
}
