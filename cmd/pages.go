package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gcis-cli/internal/resilience"
	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// pageLister is the part of gcis.Client the page fan-out needs.
type pageLister interface {
	ListBusinessItems(ctx context.Context, params gcis.ListParams) ([]gcis.BusinessItem, error)
}

// fetchPages requests pages consecutive pages starting at base.Skip, at most
// concurrency at a time, and returns their items in page order. Transient
// page failures are retried per backoff; any other failure cancels the rest.
func fetchPages(ctx context.Context, client pageLister, base gcis.ListParams, pages, concurrency int, backoff resilience.Backoff) ([]gcis.BusinessItem, error) {
	if pages <= 0 {
		return nil, eris.Errorf("pages must be positive, got %d", pages)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	top := base.Top
	if top == 0 {
		top = gcis.DefaultTop
	}

	zap.L().Info("fetching pages",
		zap.Int("pages", pages),
		zap.Int("top", top),
		zap.Int("skip", base.Skip),
		zap.Int("concurrency", concurrency),
	)

	results := make([][]gcis.BusinessItem, pages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range pages {
		params := base
		params.Top = top
		params.Skip = base.Skip + i*top
		g.Go(func() error {
			items, err := resilience.Retry(gctx, backoff, "list business items", func(ctx context.Context) ([]gcis.BusinessItem, error) {
				return client.ListBusinessItems(ctx, params)
			})
			if err != nil {
				return eris.Wrapf(err, "fetch page %d (skip %d)", i, params.Skip)
			}
			results[i] = items
			zap.L().Debug("page fetched", zap.Int("page", i), zap.Int("items", len(items)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]gcis.BusinessItem, 0, pages*top)
	for _, page := range results {
		all = append(all, page...)
	}
	return all, nil
}

// pageBackoff is the retry policy for page fetches from config.
func pageBackoff() resilience.Backoff {
	b := resilience.DefaultBackoff()
	if cfg != nil && cfg.GCIS.RetryAttempts > 0 {
		b.Attempts = cfg.GCIS.RetryAttempts
	}
	return b
}
