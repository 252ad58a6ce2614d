package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Catalog browsing.
	CatalogSource       string
	CatalogFetchTimeout time.Duration
	CatalogWatch        bool
	SearchDebounce      time.Duration

	// ArcGIS harvesting.
	ArcGISSearchURL  string
	ArcGISOrgID      string
	ArcGISOwner      string
	ArcGISProjectTag string
	ArcGISPageSize   int
	ArcGISBatchPages int
	ArcGISTimeout    time.Duration
	HarvestOutput    string

	// Publishing harvested layers.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("CATALOG_FETCH_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	searchDebounce, err := parseDuration("SEARCH_DEBOUNCE", "300ms")
	if err != nil {
		return nil, err
	}
	arcgisTimeout, err := parsePositiveDuration("ARCGIS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	pageSize, err := parsePositiveInt("ARCGIS_PAGE_SIZE", "100")
	if err != nil {
		return nil, err
	}
	batchPages, err := parsePositiveInt("ARCGIS_BATCH_PAGES", "10")
	if err != nil {
		return nil, err
	}
	watch, err := parseBool("CATALOG_WATCH", "false")
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", "false")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CatalogSource:       sharedcfg.EnvOrDefault("CATALOG_SOURCE", "data/raw_catalog.csv"),
		CatalogFetchTimeout: fetchTimeout,
		CatalogWatch:        watch,
		SearchDebounce:      searchDebounce,

		ArcGISSearchURL:  sharedcfg.EnvOrDefault("ARCGIS_SEARCH_URL", "https://uchicago.maps.arcgis.com/sharing/rest/search"),
		ArcGISOrgID:      sharedcfg.EnvOrDefault("ARCGIS_ORG_ID", "ppFhFO7kjyIF441C"),
		ArcGISOwner:      sharedcfg.EnvOrDefault("ARCGIS_OWNER", "amcgallian_UChicago"),
		ArcGISProjectTag: sharedcfg.EnvOrDefault("ARCGIS_PROJECT_TAG", "DVFM"),
		ArcGISPageSize:   pageSize,
		ArcGISBatchPages: batchPages,
		ArcGISTimeout:    arcgisTimeout,
		HarvestOutput:    sharedcfg.EnvOrDefault("HARVEST_OUTPUT", "data/raw_catalog.csv"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "catalog-layer-updates"),
	}

	if cfg.CatalogSource == "" {
		return nil, errors.New("CATALOG_SOURCE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key, def string) (bool, error) {
	b, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
