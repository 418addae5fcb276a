package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/brainless/nocodo-agentcore/internal/fetchpipeline"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// Config bounds the hackernews tool's fetch behaviour.
type Config struct {
	BatchSize         int
	MaxDepth          int
	RequestsPerSecond float64
	Burst             int
}

// Tool exposes the fetch pipeline as a model-callable tool with two
// modes mirroring the original downloader: a named story-type listing
// (top/new/best/ask/show/job/all) or a fetch_all sweep of the most
// recent max_item_id window.
type Tool struct {
	store  fetchpipeline.Store
	client *Client
	cfg    Config
	log    *slog.Logger
}

// New creates a hackernews tool backed by store.
func New(store fetchpipeline.Store, cfg Config, log *slog.Logger) *Tool {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 5
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.BatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tool{store: store, client: NewClient(), cfg: cfg, log: log}
}

func (t *Tool) Name() string { return "hackernews" }
func (t *Tool) Description() string {
	return "Download HackerNews stories (and their comment trees) into the local store."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode":       map[string]any{"type": "string", "enum": []string{"story_type", "fetch_all"}},
			"story_type": map[string]any{"type": "string", "enum": []string{"top", "new", "best", "ask", "show", "job", "all"}},
			"batch_size": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []string{"mode"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

func (t *Tool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Mode      string `json:"mode"`
		StoryType string `json:"story_type"`
		BatchSize int    `json:"batch_size"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}

	batchSize := t.cfg.BatchSize
	if args.BatchSize > 0 {
		batchSize = args.BatchSize
	}
	limiter := rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)
	pipeline := fetchpipeline.New(t.store, t.client, fetchpipeline.Config{
		BatchSize: batchSize,
		MaxDepth:  t.cfg.MaxDepth,
		Limiter:   limiter,
	}, t.log)

	switch args.Mode {
	case "story_type":
		return t.runStoryType(ctx, pipeline, args.StoryType)
	case "fetch_all":
		return t.runFetchAll(ctx, pipeline, batchSize)
	default:
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(),
			fmt.Sprintf("mode must be story_type or fetch_all, got %q", args.Mode)), nil
	}
}

func (t *Tool) runStoryType(ctx context.Context, pipeline *fetchpipeline.Pipeline, storyType string) (toolregistry.Response, error) {
	if strings.TrimSpace(storyType) == "" {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "story_type is required in story_type mode"), nil
	}

	var ids []int64
	if storyType == "all" {
		for _, st := range []StoryType{StoryTop, StoryNew, StoryBest, StoryAsk, StoryShow, StoryJob} {
			fetched, err := t.client.FetchStoryIDs(ctx, st)
			if err != nil {
				return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
			}
			ids = append(ids, fetched...)
		}
	} else {
		fetched, err := t.client.FetchStoryIDs(ctx, StoryType(storyType))
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		ids = fetched
	}

	stats, err := pipeline.Run(ctx, itemKind, ids)
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}

	return toolregistry.Response{
		Kind: "hackernews",
		Summary: fmt.Sprintf("Downloaded %d item(s), %d user(s) for %q stories (%d skipped, %d failed)",
			stats.Downloaded, stats.UsersFetched, storyType, stats.Skipped, stats.Failed),
		Data: map[string]any{"stats": stats, "mode": "story_type", "story_type": storyType, "has_more": false},
	}, nil
}

func (t *Tool) runFetchAll(ctx context.Context, pipeline *fetchpipeline.Pipeline, batchSize int) (toolregistry.Response, error) {
	maxID, err := t.client.FetchMaxItemID(ctx)
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}

	startID := maxID - int64(batchSize) + 1
	if startID < 1 {
		startID = 1
	}
	ids := make([]int64, 0, maxID-startID+1)
	for id := startID; id <= maxID; id++ {
		ids = append(ids, id)
	}

	stats, err := pipeline.Run(ctx, itemKind, ids)
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}
	stats.HasMore = startID > 1

	return toolregistry.Response{
		Kind: "hackernews",
		Summary: fmt.Sprintf("Downloaded batch %d-%d: %d item(s), %d user(s) (more=%v)",
			startID, maxID, stats.Downloaded, stats.UsersFetched, stats.HasMore),
		Data: map[string]any{"stats": stats, "mode": "fetch_all", "start_id": startID, "max_id": maxID, "has_more": stats.HasMore},
	}, nil
}
