// Package hackernews wires the generic fetchpipeline to the
// HackerNews Firebase API, the exemplar consumer spec.md's fetch
// pipeline component is built around.
package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brainless/nocodo-agentcore/internal/fetchpipeline"
)

const (
	baseURL    = "https://hacker-news.firebaseio.com/v0"
	itemKind   = "item"
	httpClient = 15 * time.Second
)

// StoryType names a top-level listing endpoint.
type StoryType string

const (
	StoryTop  StoryType = "top"
	StoryNew  StoryType = "new"
	StoryBest StoryType = "best"
	StoryAsk  StoryType = "ask"
	StoryShow StoryType = "show"
	StoryJob  StoryType = "job"
)

var storyEndpoints = map[StoryType]string{
	StoryTop:  "topstories",
	StoryNew:  "newstories",
	StoryBest: "beststories",
	StoryAsk:  "askstories",
	StoryShow: "showstories",
	StoryJob:  "jobstories",
}

// hnItem mirrors the Firebase item shape closely enough to extract
// the child/author ids the pipeline needs; the full payload is stored
// as raw JSON, not this struct.
type hnItem struct {
	ID   int64   `json:"id"`
	By   string  `json:"by"`
	Kids []int64 `json:"kids"`
	Dead bool    `json:"dead"`
}

// Client is the fetchpipeline.Fetcher implementation for HackerNews.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a HackerNews API client.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: httpClient}, baseURL: baseURL}
}

func (c *Client) resolvedBaseURL() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return baseURL
}

// FetchStoryIDs returns the id list for a top-level listing.
func (c *Client) FetchStoryIDs(ctx context.Context, storyType StoryType) ([]int64, error) {
	endpoint, ok := storyEndpoints[storyType]
	if !ok {
		return nil, fmt.Errorf("hackernews: unknown story type %q", storyType)
	}
	var ids []int64
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s.json", c.resolvedBaseURL(), endpoint), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// FetchMaxItemID returns the current highest item id, for fetch_all mode.
func (c *Client) FetchMaxItemID(ctx context.Context) (int64, error) {
	var id int64
	if err := c.getJSON(ctx, c.resolvedBaseURL()+"/maxitem.json", &id); err != nil {
		return 0, err
	}
	return id, nil
}

// FetchItem implements fetchpipeline.Fetcher. A nil result with nil
// error means the item doesn't exist or was deleted.
func (c *Client) FetchItem(ctx context.Context, kind string, id int64) (*fetchpipeline.ItemResult, error) {
	raw, err := c.getRaw(ctx, fmt.Sprintf("%s/item/%d.json", c.resolvedBaseURL(), id))
	if err != nil {
		return nil, err
	}
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var parsed hnItem
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("hackernews: decode item %d: %w", id, err)
	}
	if parsed.Dead {
		return nil, nil
	}
	return &fetchpipeline.ItemResult{
		Payload:  raw,
		AuthorID: parsed.By,
		ChildIDs: parsed.Kids,
	}, nil
}

// FetchUser implements fetchpipeline.Fetcher.
func (c *Client) FetchUser(ctx context.Context, id string) ([]byte, error) {
	raw, err := c.getRaw(ctx, fmt.Sprintf("%s/user/%s.json", c.resolvedBaseURL(), id))
	if err != nil {
		return nil, err
	}
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) getRaw(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackernews: GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	raw, err := c.getRaw(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
