package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// PageSize is requested for every page (clamped to MaxPageSize)
	PageSize int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default batch fetch configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PageSize:       100,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches a single page of one list endpoint.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, pageSize int) ([]byte, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, page, pageSize int) ([]byte, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page, pageSize int) ([]byte, error) {
	return f(ctx, page, pageSize)
}

// BatchFetcher walks every page of a paged endpoint in parallel.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher. Zero config fields take the
// DefaultConfig values.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	config.PageSize = ClampPageSize(config.PageSize)
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher{fetcher: fetcher, config: config}
}

// FetchAllPages fetches page 1 to learn the page count, then pages 2..n
// with at most MaxConcurrency requests in flight. Pages are keyed by number.
//
// The first failing page stops the walk; the pages fetched so far are
// returned together with the error.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context) (map[int]PagedResult[json.RawMessage], error) {
	start := time.Now()

	first, err := bf.fetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	total := first.TotalPages
	results := map[int]PagedResult[json.RawMessage]{1: first}

	log.Debug().
		Int("total_pages", total).
		Int("page_size", bf.config.PageSize).
		Msg("Walking pages")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)

	for page := 2; page <= total; page++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := bf.fetchPage(gctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			mu.Lock()
			results[page] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", len(results)).
			Int("total_pages", total).
			Msg("Page walk stopped, returning partial results")
		return results, fmt.Errorf("partial data (%d/%d pages): %w", len(results), total, err)
	}

	log.Info().
		Int("pages", total).
		Dur("duration", time.Since(start)).
		Msg("Page walk complete")
	return results, nil
}

// FetchAll fetches every page and decodes the items in page order.
func FetchAll[T any](ctx context.Context, bf *BatchFetcher) ([]T, error) {
	pages, err := bf.FetchAllPages(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0)
	for page := 1; page <= len(pages); page++ {
		decoded, err := DecodeItems[T](pages[page])
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		items = append(items, decoded.Items...)
	}
	return items, nil
}

func (bf *BatchFetcher) fetchPage(ctx context.Context, page int) (PagedResult[json.RawMessage], error) {
	ctx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	body, err := bf.fetcher.FetchPage(ctx, page, bf.config.PageSize)
	if err != nil {
		return PagedResult[json.RawMessage]{}, err
	}
	return Normalize(body, page, bf.config.PageSize)
}
