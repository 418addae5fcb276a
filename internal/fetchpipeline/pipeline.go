package fetchpipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/brainless/nocodo-agentcore/internal/metrics"
	"github.com/brainless/nocodo-agentcore/pkg/models"
)

// ItemResult is one fetched external object: Payload is stored
// verbatim, ChildIDs feeds the next depth's recursion, and AuthorID
// (if non-empty) feeds the analogous user-fetch stage. A nil result
// (with nil error) means the id doesn't exist or was deleted upstream
// and is recorded as skipped, not failed.
type ItemResult struct {
	Payload  []byte
	AuthorID string
	ChildIDs []int64
}

// Fetcher is the external-API half of the pipeline: given an id, fetch
// the item (or user) payload. Implementations own their own HTTP
// client and wire format; the pipeline only needs the normalised
// result shape above.
type Fetcher interface {
	FetchItem(ctx context.Context, kind string, id int64) (*ItemResult, error)
	FetchUser(ctx context.Context, id string) ([]byte, error)
}

// Config bounds one pipeline run.
type Config struct {
	BatchSize int
	MaxDepth  int
	Limiter   *rate.Limiter
}

// Pipeline runs a depth-bounded breadth-first expansion over a
// Fetcher, persisting results via a Store. A single item's failure
// never aborts the batch; a storage failure is fatal and propagates.
type Pipeline struct {
	store   Store
	fetcher Fetcher
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Pipeline. cfg.BatchSize defaults to 20, cfg.MaxDepth
// to 5, and cfg.Limiter to an unbounded limiter if nil.
func New(store Store, fetcher Fetcher, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 5
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: store, fetcher: fetcher, cfg: cfg, log: log, metrics: metrics.Default()}
}

// Run fetches kind-typed ids starting at depth 0, recursing into
// ChildIDs up to cfg.MaxDepth and into referenced AuthorIDs via an
// analogous user-fetch stage at every depth.
func (p *Pipeline) Run(ctx context.Context, kind string, seedIDs []int64) (*models.FetchStats, error) {
	stats := &models.FetchStats{}
	if err := p.fetchItemsAtDepth(ctx, kind, seedIDs, 0, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (p *Pipeline) fetchItemsAtDepth(ctx context.Context, kind string, ids []int64, depth int, stats *models.FetchStats) error {
	var toFetch []int64
	for _, id := range ids {
		exists, err := p.store.ItemExists(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("fetchpipeline: check existing item %d: %w", id, err)
		}
		if exists {
			stats.Skipped++
			p.metrics.FetchItemsTotal.WithLabelValues(kind, "skipped").Inc()
			continue
		}
		toFetch = append(toFetch, id)
	}

	for start := 0; start < len(toFetch); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(toFetch) {
			end = len(toFetch)
		}
		if err := p.fetchBatch(ctx, kind, toFetch[start:end], depth, stats); err != nil {
			return err
		}
	}
	return nil
}

type fetchedItem struct {
	id     int64
	result *ItemResult
}

func (p *Pipeline) fetchBatch(ctx context.Context, kind string, ids []int64, depth int, stats *models.FetchStats) error {
	if err := p.store.EnqueueItems(ctx, kind, ids, depth); err != nil {
		return fmt.Errorf("fetchpipeline: enqueue batch: %w", err)
	}

	var mu sync.Mutex
	var fetched []fetchedItem

	group, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		group.Go(func() error {
			if err := p.cfg.Limiter.Wait(gctx); err != nil {
				return nil // context cancelled; let the outer ctx surface it elsewhere
			}
			result, err := p.fetcher.FetchItem(gctx, kind, id)
			if err != nil {
				p.log.Warn("fetchpipeline: item fetch failed", "kind", kind, "id", id, "err", err)
				p.metrics.FetchItemsTotal.WithLabelValues(kind, "failed").Inc()
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return nil
			}
			if result == nil {
				p.metrics.FetchItemsTotal.WithLabelValues(kind, "skipped").Inc()
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			fetched = append(fetched, fetchedItem{id: id, result: result})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var childIDs []int64
	var authorIDs []string
	for _, f := range fetched {
		if err := p.store.SaveItem(ctx, kind, f.id, f.result.Payload); err != nil {
			return fmt.Errorf("fetchpipeline: persist item %d: %w", f.id, err)
		}
		stats.Downloaded++
		p.metrics.FetchItemsTotal.WithLabelValues(kind, "downloaded").Inc()
		if f.result.AuthorID != "" {
			authorIDs = append(authorIDs, f.result.AuthorID)
		}
		childIDs = append(childIDs, f.result.ChildIDs...)
	}

	if err := p.store.DequeueItems(ctx, kind, ids); err != nil {
		return fmt.Errorf("fetchpipeline: dequeue batch: %w", err)
	}

	if len(authorIDs) > 0 {
		if err := p.fetchUsers(ctx, authorIDs, stats); err != nil {
			return err
		}
	}

	if len(childIDs) > 0 && depth < p.cfg.MaxDepth {
		if err := p.fetchItemsAtDepth(ctx, kind, childIDs, depth+1, stats); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) fetchUsers(ctx context.Context, ids []string, stats *models.FetchStats) error {
	var toFetch []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		exists, err := p.store.UserExists(ctx, id)
		if err != nil {
			return fmt.Errorf("fetchpipeline: check existing user %s: %w", id, err)
		}
		if exists {
			stats.UsersSkipped++
			p.metrics.FetchUsersTotal.WithLabelValues("skipped").Inc()
			continue
		}
		toFetch = append(toFetch, id)
	}

	var mu sync.Mutex
	type fetchedUser struct {
		id      string
		payload []byte
	}
	var fetched []fetchedUser

	group, gctx := errgroup.WithContext(ctx)
	for _, id := range toFetch {
		id := id
		group.Go(func() error {
			if err := p.cfg.Limiter.Wait(gctx); err != nil {
				return nil
			}
			payload, err := p.fetcher.FetchUser(gctx, id)
			if err != nil {
				p.log.Warn("fetchpipeline: user fetch failed", "id", id, "err", err)
				p.metrics.FetchUsersTotal.WithLabelValues("failed").Inc()
				mu.Lock()
				stats.UsersFailed++
				mu.Unlock()
				return nil
			}
			if payload == nil {
				return nil
			}
			mu.Lock()
			fetched = append(fetched, fetchedUser{id: id, payload: payload})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, f := range fetched {
		if err := p.store.SaveUser(ctx, f.id, f.payload); err != nil {
			return fmt.Errorf("fetchpipeline: persist user %s: %w", f.id, err)
		}
		stats.UsersFetched++
		p.metrics.FetchUsersTotal.WithLabelValues("fetched").Inc()
	}
	return nil
}
