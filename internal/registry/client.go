// Package registry talks to the skill marketplace API: searching the
// catalog and fetching a skill's file bundle into memory.
package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

// DefaultURL is the public skill registry.
const DefaultURL = "https://registry.skillguard.dev"

// maxResponseSize bounds registry response reads so a misbehaving server
// cannot exhaust memory. Bundles are small; 64 MB is generous.
const maxResponseSize int64 = 64 << 20

const requestTimeout = 30 * time.Second

// Client is a thin wrapper over the registry's JSON API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient builds a registry client for the given base URL ("" selects
// DefaultURL).
func NewClient(base string) *Client {
	if base == "" {
		base = DefaultURL
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Search queries the marketplace and returns matching skill summaries.
func (c *Client) Search(ctx context.Context, query string) ([]schema.SkillSummary, error) {
	u := fmt.Sprintf("%s/api/v1/skills?q=%s", c.base, url.QueryEscape(query))

	var out struct {
		Skills []schema.SkillSummary `json:"skills"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("search skills: %w", err)
	}
	return out.Skills, nil
}

// Fetch downloads a skill's files into an in-memory FileSet. File content
// arrives base64-encoded; paths are kept exactly as the registry returned
// them (forward-slash relative).
func (c *Client) Fetch(ctx context.Context, name string) (schema.FileSet, error) {
	u := fmt.Sprintf("%s/api/v1/skills/%s/files", c.base, url.PathEscape(name))

	var out struct {
		Files []struct {
			Path    string `json:"path"`
			Content string `json:"content_base64"`
		} `json:"files"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("fetch skill %s: %w", name, err)
	}

	var files schema.FileSet
	for _, f := range out.Files {
		data, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("fetch skill %s: decode %s: %w", name, f.Path, err)
		}
		files = files.Add(f.Path, data)
	}
	return files, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}
