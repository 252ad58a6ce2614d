// Package harvest rebuilds the catalog file from the ArcGIS portal search API.
package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/layer-catalog-service/internal/domain"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

// Searcher fetches one page of portal items.
type Searcher interface {
	Search(ctx context.Context, start, num int) (domain.ItemPage, error)
}

// Store reads and replaces the catalog file.
type Store interface {
	Read() ([]string, []domain.Record, error)
	Write(headers []string, records []domain.Record) error
}

// Publisher announces new or updated layers.
type Publisher interface {
	Publish(ctx context.Context, records []domain.Record) error
}

// Options controls paging and record defaults.
type Options struct {
	PageSize     int
	BatchPages   int
	DefaultOwner string
	TopTags      int
}

// Summary describes one harvest run.
type Summary struct {
	Existing  int
	Received  int
	Written   int // new or updated rows
	Published int
	Total     int
	Types     []domain.TypeCount
	TopTags   []domain.TagCount
}

// Harvester orchestrates the search-merge-write cycle.
type Harvester struct {
	searcher  Searcher
	store     Store
	publisher Publisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Harvester. publisher may be nil.
func New(s Searcher, st Store, p Publisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Harvester {
	if opts.TopTags <= 0 {
		opts.TopTags = 10
	}
	return &Harvester{
		searcher:  s,
		store:     st,
		publisher: p,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run performs one harvest. Page failures are logged and treated as empty
// pages; store and publish failures abort the run.
func (h *Harvester) Run(ctx context.Context) (Summary, error) {
	headers, existing, err := h.store.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("read existing catalog: %w", err)
	}
	h.logger.Info("existing catalog loaded", "records", len(existing))

	known := make(map[string]string, len(existing))
	for _, rec := range existing {
		known[rec[domain.FieldID]] = rec[domain.FieldModified]
	}

	items, err := h.fetchAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	h.logger.Info("search complete", "items", len(items))

	fresh := h.selectFresh(items, known)
	merged := domain.MergeRecords(existing, fresh)

	if err := h.store.Write(mergeHeaders(headers), merged); err != nil {
		return Summary{}, fmt.Errorf("write catalog: %w", err)
	}
	h.metrics.HarvestItemsWritten.Add(float64(len(fresh)))

	published := 0
	if h.publisher != nil && len(fresh) > 0 {
		if err := h.publisher.Publish(ctx, fresh); err != nil {
			return Summary{}, fmt.Errorf("publish layers: %w", err)
		}
		published = len(fresh)
		h.metrics.HarvestItemsPublished.Add(float64(published))
	}

	summary := Summary{
		Existing:  len(existing),
		Received:  len(items),
		Written:   len(fresh),
		Published: published,
		Total:     len(merged),
		Types:     domain.TypeCounts(merged),
		TopTags:   domain.BuildTagIndex(merged).Top(h.opts.TopTags),
	}
	h.logSummary(summary)
	return summary, nil
}

// fetchAll requests pages in concurrent batches until a batch comes back
// empty or short.
func (h *Harvester) fetchAll(ctx context.Context) ([]domain.Item, error) {
	pageSize, batch := h.opts.PageSize, h.opts.BatchPages
	var all []domain.Item

	for start := 1; ; start += batch * pageSize {
		pages := make([][]domain.Item, batch)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < batch; i++ {
			pageStart := start + i*pageSize
			g.Go(func() error {
				page, err := h.searcher.Search(gctx, pageStart, pageSize)
				if err != nil {
					h.metrics.HarvestPageErrors.Inc()
					h.logger.Warn("search page failed", "start", pageStart, "error", err)
					return nil
				}
				pages[i] = page.Items
				return nil
			})
		}
		_ = g.Wait() // workers never return errors

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("harvest cancelled: %w", err)
		}

		n := 0
		for _, p := range pages {
			all = append(all, p...)
			n += len(p)
		}
		h.logger.Debug("batch fetched", "start", start, "items", n)

		if n == 0 || n < batch*pageSize {
			return all, nil
		}
	}
}

// selectFresh converts harvestable items that are new or whose modified date
// changed.
func (h *Harvester) selectFresh(items []domain.Item, known map[string]string) []domain.Record {
	var fresh []domain.Record
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if !it.Harvestable() {
			continue
		}
		if mod, ok := known[it.ID]; ok && mod == it.ModifiedDate() {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		fresh = append(fresh, domain.ItemToRecord(it, h.opts.DefaultOwner))
	}
	return fresh
}

func (h *Harvester) logSummary(s Summary) {
	h.logger.Info("catalog updated",
		"total", s.Total,
		"new_or_updated", s.Written,
		"published", s.Published,
	)
	for _, tc := range s.Types {
		h.logger.Info("layers by type", "type", tc.Type, "count", tc.Count)
	}
	for _, tc := range s.TopTags {
		h.logger.Info("top tag", "tag", tc.Tag, "count", tc.Count)
	}
}

// mergeHeaders returns the standard catalog columns followed by any extra
// columns of the existing file.
func mergeHeaders(existing []string) []string {
	out := append([]string(nil), domain.CatalogFields...)
	have := make(map[string]struct{}, len(out))
	for _, h := range out {
		have[h] = struct{}{}
	}
	for _, h := range existing {
		if _, ok := have[h]; ok || h == "" {
			continue
		}
		have[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
