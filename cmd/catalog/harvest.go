package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/layer-catalog-service/internal/adapter/arcgis"
	"github.com/couchcryptid/layer-catalog-service/internal/adapter/csvstore"
	kafkaadapter "github.com/couchcryptid/layer-catalog-service/internal/adapter/kafka"
	"github.com/couchcryptid/layer-catalog-service/internal/harvest"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

var harvestOutput string

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Rebuild the catalog file from the ArcGIS portal",
	Long: `Searches the ArcGIS portal for items owned by ARCGIS_OWNER in
ARCGIS_ORG_ID that carry ARCGIS_PROJECT_TAG, merges new and updated layers
into the catalog file, and optionally publishes them to Kafka.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().StringVarP(&harvestOutput, "output", "o", "", "catalog file to update (default HARVEST_OUTPUT)")
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output := cfg.HarvestOutput
	if harvestOutput != "" {
		output = harvestOutput
	}

	metrics := observability.NewMetrics()
	query := arcgis.Query{OrgID: cfg.ArcGISOrgID, Owner: cfg.ArcGISOwner, Tag: cfg.ArcGISProjectTag}
	client := arcgis.NewClient(cfg.ArcGISSearchURL, query, cfg.ArcGISTimeout, metrics, logger)
	store := csvstore.New(output)

	var publisher harvest.Publisher
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = w
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	logger.Info("harvest started", "query", query.String(), "output", output)
	h := harvest.New(client, store, publisher, harvest.Options{
		PageSize:     cfg.ArcGISPageSize,
		BatchPages:   cfg.ArcGISBatchPages,
		DefaultOwner: cfg.ArcGISOwner,
	}, logger, metrics)

	summary, err := h.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog saved: %s\n", output)
	fmt.Fprintf(out, "Total items in catalog: %d (%d new or updated)\n", summary.Total, summary.Written)
	if summary.Total == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nSummary by type:")
	for _, tc := range summary.Types {
		fmt.Fprintf(out, "  %-20s %d\n", tc.Type, tc.Count)
	}
	fmt.Fprintln(out, "\nTag summary:")
	for _, tc := range summary.TopTags {
		fmt.Fprintf(out, "  %s: %d\n", tc.Tag, tc.Count)
	}
	return nil
}
