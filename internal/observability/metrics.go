package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "layer_catalog"

// Metrics holds the Prometheus counters, histograms, and gauges for the catalog
// browser and the harvester.
type Metrics struct {
	// Catalog loading.
	CatalogLoads    prometheus.Counter
	LoadFailures    prometheus.Counter
	ParseAnomalies  prometheus.Counter
	CatalogRecords  prometheus.Gauge
	LoadDuration    prometheus.Histogram
	CatalogReloads  prometheus.Counter
	SubscriberCount prometheus.Gauge

	// Filtering.
	FilterRecomputes *prometheus.CounterVec // labels: trigger={load,tag,search,clear}
	ResultCount      prometheus.Gauge

	// Harvesting.
	HarvestPages          prometheus.Counter
	HarvestPageErrors     prometheus.Counter
	HarvestItemsWritten   prometheus.Counter
	HarvestItemsPublished prometheus.Counter
	HarvestPageDuration   prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CatalogLoads,
		m.LoadFailures,
		m.ParseAnomalies,
		m.CatalogRecords,
		m.LoadDuration,
		m.CatalogReloads,
		m.SubscriberCount,
		m.FilterRecomputes,
		m.ResultCount,
		m.HarvestPages,
		m.HarvestPageErrors,
		m.HarvestItemsWritten,
		m.HarvestItemsPublished,
		m.HarvestPageDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CatalogLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Total successful catalog loads.",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_load_failures_total",
			Help:      "Total catalog fetches that failed.",
		}),
		ParseAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_parse_anomalies_total",
			Help:      "Rows whose field count differed from the header count.",
		}),
		CatalogRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Records in the currently loaded catalog.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_load_duration_seconds",
			Help:      "Duration of a fetch-and-parse cycle.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 15},
		}),
		CatalogReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Reloads triggered after the initial load.",
		}),
		SubscriberCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_subscribers",
			Help:      "Observers currently subscribed to view updates.",
		}),
		FilterRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_recomputes_total",
			Help:      "Filtered result recomputations by triggering event.",
		}, []string{"trigger"}),
		ResultCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filter_result_count",
			Help:      "Records matching the current filter state.",
		}),
		HarvestPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_pages_total",
			Help:      "Search result pages requested from ArcGIS.",
		}),
		HarvestPageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_page_errors_total",
			Help:      "Search result pages that failed and were treated as empty.",
		}),
		HarvestItemsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_items_written_total",
			Help:      "New or updated layers written to the catalog file.",
		}),
		HarvestItemsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_items_published_total",
			Help:      "Layers published to Kafka.",
		}),
		HarvestPageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "harvest_page_duration_seconds",
			Help:      "ArcGIS search request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}),
	}
}
