// Package browser owns a catalog browsing session: the loaded catalog, its tag
// index, the current filter selection and the filtered result.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/layer-catalog-service/internal/debounce"
	"github.com/couchcryptid/layer-catalog-service/internal/domain"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

// DefaultSearchDelay is how long search input must be idle before the result
// is recomputed.
const DefaultSearchDelay = 300 * time.Millisecond

// Fetcher returns the raw catalog text.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

type subscriber struct {
	id int
	fn Observer
}

// Controller serialises browsing events and publishes a View after each one.
//
// Observers are called synchronously from the goroutine that handled the
// event, one notification at a time. An observer may read the controller but
// must not send it events.
type Controller struct {
	source      Fetcher
	debouncer   *debounce.Debouncer
	searchDelay time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool

	emitMu sync.Mutex // held from mutation until observers return

	mu       sync.Mutex
	catalog  domain.Catalog
	index    domain.TagIndex
	filter   domain.FilterState
	result   domain.Result
	expanded int
	status   Status
	loadErr  error
	subs     []subscriber
	nextSub  int
}

// New creates a Controller that reads its catalog from source. A zero
// searchDelay applies search text immediately.
func New(source Fetcher, debouncer *debounce.Debouncer, searchDelay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		source:      source,
		debouncer:   debouncer,
		searchDelay: searchDelay,
		logger:      logger,
		metrics:     metrics,
		filter:      domain.NewFilterState(),
		expanded:    NoExpandedCard,
		status:      StatusLoading,
	}
}

// Subscribe registers obs and returns a function that removes it.
func (c *Controller) Subscribe(obs Observer) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: obs})
	c.metrics.SubscriberCount.Set(float64(len(c.subs)))
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					break
				}
			}
			c.metrics.SubscriberCount.Set(float64(len(c.subs)))
		})
	}
}

// Load fetches and parses the catalog. A fetch failure moves the session to
// the failed state and is returned; it is not retried.
func (c *Controller) Load(ctx context.Context) error {
	c.update(func() bool {
		c.status = StatusLoading
		c.loadErr = nil
		return true
	})
	return c.load(ctx, false)
}

// Reload fetches the catalog again while the current one stays visible. The
// filter selection is kept. If the fetch fails after a successful load, the
// previous catalog remains in place.
func (c *Controller) Reload(ctx context.Context) error {
	c.metrics.CatalogReloads.Inc()
	return c.load(ctx, true)
}

func (c *Controller) load(ctx context.Context, reload bool) error {
	start := time.Now()
	text, err := c.source.Fetch(ctx)
	if err != nil {
		c.metrics.LoadFailures.Inc()
		c.logger.Error("catalog load failed", "error", err, "reload", reload)
		c.update(func() bool {
			c.loadErr = err
			if reload && c.status == StatusReady {
				return false
			}
			c.status = StatusFailed
			return true
		})
		return err
	}

	catalog := domain.ParseCatalog(text)
	for _, a := range catalog.Anomalies {
		c.logger.Warn("catalog row field count mismatch", "line", a.Line, "want", a.Want, "got", a.Got)
	}
	index := domain.BuildTagIndex(catalog.Records)

	c.metrics.CatalogLoads.Inc()
	c.metrics.ParseAnomalies.Add(float64(len(catalog.Anomalies)))
	c.metrics.CatalogRecords.Set(float64(catalog.Len()))
	c.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	c.update(func() bool {
		c.catalog = catalog
		c.index = index
		c.status = StatusReady
		c.loadErr = nil
		c.expanded = NoExpandedCard
		c.recompute("load")
		return true
	})
	c.ready.Store(true)

	c.logger.Info("catalog loaded",
		"records", catalog.Len(),
		"tags", index.Len(),
		"anomalies", len(catalog.Anomalies),
		"reload", reload,
	)
	return nil
}

// OnTagToggled flips the selection of tag and returns the resulting view.
// Tags that cannot be selected are ignored and no view is published.
func (c *Controller) OnTagToggled(tag string) View {
	return c.update(func() bool {
		if !c.filter.Toggle(tag) {
			return false
		}
		c.recompute("tag")
		return true
	})
}

// OnTagRemoved unselects tag. Removing a tag that is not selected still
// publishes a view.
func (c *Controller) OnTagRemoved(tag string) View {
	return c.update(func() bool {
		c.filter.Remove(tag)
		c.recompute("tag")
		return true
	})
}

// OnSearchChanged records the search text at once and recomputes the result
// after the search delay. A newer call replaces a pending one. The returned
// view carries the new text; its result is only current when the delay is zero.
func (c *Controller) OnSearchChanged(text string) View {
	if c.searchDelay <= 0 {
		c.mu.Lock()
		c.filter.SetSearch(text)
		c.mu.Unlock()
		return c.applySearch()
	}

	c.mu.Lock()
	c.filter.SetSearch(text)
	view := c.snapshotLocked()
	c.mu.Unlock()

	c.debouncer.Schedule(c.searchDelay, func() { c.applySearch() })
	return view
}

func (c *Controller) applySearch() View {
	return c.update(func() bool {
		c.expanded = NoExpandedCard
		c.recompute("search")
		return true
	})
}

// OnClearFilters drops the tag selection and search text and cancels any
// pending search.
func (c *Controller) OnClearFilters() View {
	c.debouncer.Cancel()
	return c.update(func() bool {
		c.filter.Clear()
		c.expanded = NoExpandedCard
		c.recompute("clear")
		return true
	})
}

// OnCardToggled expands the card at index in the filtered result, or collapses
// it if it is already expanded. It reports false for an index outside the
// result.
func (c *Controller) OnCardToggled(index int) (View, bool) {
	ok := false
	view := c.update(func() bool {
		if index < 0 || index >= c.result.ResultCount {
			return false
		}
		ok = true
		if c.expanded == index {
			c.expanded = NoExpandedCard
		} else {
			c.expanded = index
		}
		return true
	})
	return view, ok
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Cards returns card projections of the filtered records.
func (c *Controller) Cards() []domain.Card {
	return c.View().Cards()
}

// Tags returns the tag counts of the whole catalog, most used first.
func (c *Controller) Tags() []domain.TagCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Ordered()
}

// TypeCounts returns the layer-type distribution of the whole catalog.
func (c *Controller) TypeCounts() []domain.TypeCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.TypeCounts(c.catalog.Records)
}

// CheckReadiness returns nil once a catalog has loaded.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.loadErr != nil {
			return errors.Join(errors.New("catalog not loaded"), c.loadErr)
		}
		return errors.New("catalog not loaded yet")
	}
	return nil
}

// update applies mutate under the state lock and returns the view it left
// behind. The view is published only if mutate reports a change.
func (c *Controller) update(mutate func() bool) View {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	changed := mutate()
	view := c.snapshotLocked()
	if !changed {
		c.mu.Unlock()
		return view
	}
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(view)
	}
	return view
}

func (c *Controller) recompute(trigger string) {
	c.result = domain.Filter(c.catalog.Records, c.filter)
	c.metrics.FilterRecomputes.WithLabelValues(trigger).Inc()
	c.metrics.ResultCount.Set(float64(c.result.ResultCount))
}

func (c *Controller) snapshotLocked() View {
	v := View{
		Status:       c.status,
		Headers:      append([]string(nil), c.catalog.Headers...),
		Records:      append([]domain.Record(nil), c.result.Records...),
		ResultCount:  c.result.ResultCount,
		TotalCount:   c.result.TotalCount,
		Tags:         c.index.Ordered(),
		SelectedTags: c.filter.Selected(),
		Search:       c.filter.Search(),
		Expanded:     c.expanded,
		LastUpdated:  c.catalog.LastUpdated(),
		Anomalies:    len(c.catalog.Anomalies),
	}
	if c.status == StatusFailed {
		v.Message = LoadFailedMessage
	}
	return v
}
