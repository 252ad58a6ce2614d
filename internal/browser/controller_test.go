package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/couchcryptid/layer-catalog-service/internal/debounce"
	"github.com/couchcryptid/layer-catalog-service/internal/domain"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testCatalog = `id,title,description,tags,type,owner,created,modified,view_count,url,last_updated
1,City Parks,Green spaces in the city,"Recreation, Trails, DVFM",Feature Service,alice,2024-01-01,2024-03-01,10,https://example.org/1,2025-06-01 08:30:00
2,Bike Routes,Trails for cycling,"Trails, Transport",Feature Service,bob,2024-01-02,2024-02-01,5,https://example.org/2,2025-06-01 08:30:00
3,Water Mains,Underground pipes,Utilities,Map Service,carol,2024-01-03,2024-01-15,1,https://example.org/3,2025-06-01 08:30:00
`

type stubSource struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubSource) Fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.text, s.err
}

func (s *stubSource) set(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text, s.err = text, err
}

// recorder collects published views.
type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) observe(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *recorder) last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

type fixture struct {
	ctrl    *Controller
	src     *stubSource
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	rec     *recorder
}

func newFixture(t *testing.T, text string, delay time.Duration) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	src := &stubSource{text: text}
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := New(src, debounce.New(clock), delay, logger, metrics)
	rec := &recorder{}
	unsubscribe := ctrl.Subscribe(rec.observe)
	t.Cleanup(unsubscribe)

	return &fixture{ctrl: ctrl, src: src, clock: clock, metrics: metrics, rec: rec}
}

func (f *fixture) searchRecomputes() float64 {
	return testutil.ToFloat64(f.metrics.FilterRecomputes.WithLabelValues("search"))
}

func titles(v View) []string {
	out := make([]string, len(v.Records))
	for i, r := range v.Records {
		out[i] = r.Title()
	}
	return out
}

func TestController_InitialState(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)

	v := f.ctrl.View()
	assert.Equal(t, StatusLoading, v.Status)
	assert.False(t, v.Empty())
	assert.Equal(t, NoExpandedCard, v.Expanded)
	require.Error(t, f.ctrl.CheckReadiness(context.Background()))
}

func TestController_Load(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)

	require.NoError(t, f.ctrl.Load(context.Background()))

	v := f.rec.last()
	assert.Equal(t, StatusReady, v.Status)
	assert.Empty(t, v.Message)
	assert.Equal(t, 3, v.TotalCount)
	assert.Equal(t, 3, v.ResultCount)
	assert.Equal(t, []string{"City Parks", "Bike Routes", "Water Mains"}, titles(v))
	assert.Equal(t, []domain.TagCount{
		{Tag: "Trails", Count: 2},
		{Tag: "Recreation", Count: 1},
		{Tag: "Transport", Count: 1},
		{Tag: "Utilities", Count: 1},
	}, v.Tags)
	assert.Equal(t, "2025-06-01 08:30:00", v.LastUpdated)
	assert.Equal(t, "Showing 3 of 3 layers", v.Summary())
	assert.False(t, v.Empty())

	// loading then ready
	assert.Equal(t, 2, f.rec.count())
	assert.NoError(t, f.ctrl.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.CatalogLoads), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.CatalogRecords), 0)
}

func TestController_LoadHeaderOnly(t *testing.T) {
	f := newFixture(t, "title,description,tags\n", DefaultSearchDelay)

	require.NoError(t, f.ctrl.Load(context.Background()))

	v := f.ctrl.View()
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, 0, v.ResultCount)
	assert.Equal(t, 0, v.TotalCount)
	assert.True(t, v.Empty())
	assert.Empty(t, v.Message)
	assert.Empty(t, v.Tags)
}

func TestController_LoadFailure(t *testing.T) {
	f := newFixture(t, "", DefaultSearchDelay)
	fetchErr := &domain.FetchError{Source: "data/raw_catalog.csv", Err: errors.New("connection refused")}
	f.src.set("", fetchErr)

	err := f.ctrl.Load(context.Background())

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)

	v := f.rec.last()
	assert.Equal(t, StatusFailed, v.Status)
	assert.Equal(t, LoadFailedMessage, v.Message)
	assert.False(t, v.Empty())
	assert.Error(t, f.ctrl.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.LoadFailures), 0)
}

func TestController_LoadRecordsAnomalies(t *testing.T) {
	f := newFixture(t, "title,tags\nA,x\nB,x,extra\n", DefaultSearchDelay)

	require.NoError(t, f.ctrl.Load(context.Background()))

	v := f.ctrl.View()
	assert.Equal(t, 2, v.TotalCount)
	assert.Equal(t, 1, v.Anomalies)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ParseAnomalies), 0)
}

func TestController_TagToggle(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnTagToggled("Trails")
	v := f.rec.last()
	assert.Equal(t, []string{"Trails"}, v.SelectedTags)
	assert.Equal(t, []string{"City Parks", "Bike Routes"}, titles(v))

	f.ctrl.OnTagToggled("Recreation")
	v = f.rec.last()
	assert.Equal(t, []string{"Recreation", "Trails"}, v.SelectedTags)
	assert.Equal(t, []string{"City Parks"}, titles(v))
	assert.Equal(t, "Showing 1 of 3 layers", v.Summary())

	f.ctrl.OnTagToggled("Recreation")
	f.ctrl.OnTagToggled("Trails")
	v = f.rec.last()
	assert.Empty(t, v.SelectedTags)
	assert.Equal(t, 3, v.ResultCount)
}

func TestController_TagSelectionNarrowsResult(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))

	prev := f.ctrl.View().ResultCount
	for _, tag := range []string{"Trails", "Transport", "Utilities"} {
		f.ctrl.OnTagToggled(tag)
		n := f.ctrl.View().ResultCount
		assert.LessOrEqual(t, n, prev, "selecting %s", tag)
		prev = n
	}
	assert.Equal(t, 0, prev)
	assert.True(t, f.ctrl.View().Empty())
}

func TestController_ReservedTagIgnored(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))
	before := f.rec.count()

	f.ctrl.OnTagToggled(domain.ReservedTag)
	f.ctrl.OnTagToggled("")

	assert.Equal(t, before, f.rec.count())
	assert.Empty(t, f.ctrl.View().SelectedTags)
	for _, tc := range f.ctrl.Tags() {
		assert.NotEqual(t, domain.ReservedTag, tc.Tag)
	}
}

func TestController_TagRemoved(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnTagToggled("Utilities")
	require.Equal(t, 1, f.ctrl.View().ResultCount)

	f.ctrl.OnTagRemoved("Utilities")
	f.ctrl.OnTagRemoved("Utilities")
	v := f.rec.last()
	assert.Empty(t, v.SelectedTags)
	assert.Equal(t, 3, v.ResultCount)
}

func TestController_SearchIsDebounced(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))
	before := f.rec.count()

	f.ctrl.OnSearchChanged("PARK")

	// The text is committed but the result is not recomputed yet.
	assert.Equal(t, "PARK", f.ctrl.View().Search)
	assert.Equal(t, 3, f.ctrl.View().ResultCount)
	assert.Equal(t, before, f.rec.count())

	f.clock.Advance(DefaultSearchDelay)
	require.Eventually(t, func() bool { return f.ctrl.View().ResultCount == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"City Parks"}, titles(f.rec.last()))
}

func TestController_SearchBurstCollapses(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnSearchChanged("t")
	f.clock.Advance(100 * time.Millisecond)
	f.ctrl.OnSearchChanged("tr")
	f.clock.Advance(100 * time.Millisecond)
	f.ctrl.OnSearchChanged("trails")
	f.clock.Advance(DefaultSearchDelay - time.Millisecond)

	assert.Never(t, func() bool { return f.searchRecomputes() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	f.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return f.searchRecomputes() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Bike Routes"}, titles(f.ctrl.View()))
}

func TestController_SearchTextUsedByTagEvents(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnSearchChanged("city")
	f.ctrl.OnTagToggled("Trails")

	v := f.rec.last()
	assert.Equal(t, []string{"City Parks"}, titles(v))

	f.ctrl.OnClearFilters()
}

func TestController_ClearCancelsPendingSearch(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnTagToggled("Trails")
	f.ctrl.OnSearchChanged("bike")
	f.ctrl.OnClearFilters()

	v := f.rec.last()
	assert.Empty(t, v.SelectedTags)
	assert.Empty(t, v.Search)
	assert.Equal(t, 3, v.ResultCount)

	f.clock.Advance(time.Second)
	assert.Never(t, func() bool { return f.searchRecomputes() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestController_ZeroDelaySearchAppliesImmediately(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnSearchChanged("pipes")

	assert.Equal(t, []string{"Water Mains"}, titles(f.ctrl.View()))
}

func TestController_CardToggle(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	require.NoError(t, f.ctrl.Load(context.Background()))

	v, ok := f.ctrl.OnCardToggled(1)
	require.True(t, ok)
	assert.Equal(t, 1, v.Expanded)
	assert.Equal(t, 1, f.ctrl.View().Expanded)
	cards := f.ctrl.Cards()
	require.Len(t, cards, 3)
	assert.True(t, cards[1].Expanded)
	assert.False(t, cards[0].Expanded)

	v, ok = f.ctrl.OnCardToggled(2)
	require.True(t, ok)
	assert.Equal(t, 2, v.Expanded)

	v, ok = f.ctrl.OnCardToggled(2)
	require.True(t, ok)
	assert.Equal(t, NoExpandedCard, v.Expanded)

	before := f.rec.count()
	_, ok = f.ctrl.OnCardToggled(3)
	assert.False(t, ok)
	_, ok = f.ctrl.OnCardToggled(-1)
	assert.False(t, ok)
	assert.Equal(t, before, f.rec.count())
}

func TestController_EventsReturnTheirView(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	require.NoError(t, f.ctrl.Load(context.Background()))

	v := f.ctrl.OnTagToggled("Trails")
	assert.Equal(t, []string{"Trails"}, v.SelectedTags)
	assert.Equal(t, f.rec.last(), v)

	v = f.ctrl.OnSearchChanged("city")
	assert.Equal(t, "city", v.Search)
	assert.Equal(t, []string{"City Parks"}, titles(v))
	assert.Equal(t, f.rec.last(), v)

	v = f.ctrl.OnTagRemoved("Trails")
	assert.Empty(t, v.SelectedTags)
	assert.Equal(t, f.rec.last(), v)

	v = f.ctrl.OnClearFilters()
	assert.Empty(t, v.Search)
	assert.Equal(t, 3, v.ResultCount)
	assert.Equal(t, f.rec.last(), v)
}

func TestController_DelayedSearchReturnsCommittedText(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))
	before := f.rec.count()

	v := f.ctrl.OnSearchChanged("pipes")
	assert.Equal(t, "pipes", v.Search)
	assert.Equal(t, 3, v.ResultCount)
	assert.Equal(t, before, f.rec.count())

	f.ctrl.OnClearFilters()
}

func TestController_SearchAndClearCollapseCard(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.ctrl.OnCardToggled(0)
	f.ctrl.OnSearchChanged("city")
	assert.Equal(t, NoExpandedCard, f.ctrl.View().Expanded)

	f.ctrl.OnCardToggled(0)
	f.ctrl.OnClearFilters()
	assert.Equal(t, NoExpandedCard, f.ctrl.View().Expanded)
}

func TestController_ReloadKeepsFilter(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))
	f.ctrl.OnTagToggled("Trails")

	f.src.set(testCatalog+"4,Hiking Loops,Forest trails,Trails,Web Map,dan,2024-01-04,2024-04-01,2,https://example.org/4,2025-06-02 09:00:00\n", nil)
	require.NoError(t, f.ctrl.Reload(context.Background()))

	v := f.ctrl.View()
	assert.Equal(t, []string{"Trails"}, v.SelectedTags)
	assert.Equal(t, 4, v.TotalCount)
	assert.Equal(t, 3, v.ResultCount)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.CatalogReloads), 0)
}

func TestController_ReloadFailureKeepsCatalog(t *testing.T) {
	f := newFixture(t, testCatalog, DefaultSearchDelay)
	require.NoError(t, f.ctrl.Load(context.Background()))
	before := f.rec.count()

	f.src.set("", errors.New("gone"))
	require.Error(t, f.ctrl.Reload(context.Background()))

	v := f.ctrl.View()
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, 3, v.TotalCount)
	assert.Equal(t, before, f.rec.count())
	assert.NoError(t, f.ctrl.CheckReadiness(context.Background()))
}

func TestController_Unsubscribe(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	extra := &recorder{}
	unsubscribe := f.ctrl.Subscribe(extra.observe)
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.SubscriberCount), 0)

	require.NoError(t, f.ctrl.Load(context.Background()))
	got := extra.count()
	require.Positive(t, got)

	unsubscribe()
	unsubscribe()
	f.ctrl.OnTagToggled("Trails")

	assert.Equal(t, got, extra.count())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SubscriberCount), 0)
}

func TestController_TypeCounts(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	require.NoError(t, f.ctrl.Load(context.Background()))

	assert.Equal(t, []domain.TypeCount{
		{Type: "Feature Service", Count: 2},
		{Type: "Map Service", Count: 1},
	}, f.ctrl.TypeCounts())
}

func TestController_ObserverMayReadController(t *testing.T) {
	f := newFixture(t, testCatalog, 0)
	var seen int
	unsubscribe := f.ctrl.Subscribe(func(View) { seen = f.ctrl.View().TotalCount })
	defer unsubscribe()

	require.NoError(t, f.ctrl.Load(context.Background()))
	assert.Equal(t, 3, seen)
}
