package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/layer-catalog-service/internal/adapter/source"
	"github.com/couchcryptid/layer-catalog-service/internal/browser"
	"github.com/couchcryptid/layer-catalog-service/internal/debounce"
	"github.com/couchcryptid/layer-catalog-service/internal/domain"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

var (
	queryTags   []string
	querySearch string
	queryJSON   bool
	querySource string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter the catalog from the command line",
	Long: `Loads the catalog, applies every --tag (all must match) and the
--search text, and prints the matching layers.

Example:
  catalog query --tag Trails --tag Recreation --search park`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryTags, "tag", "t", nil, "required tag (repeatable)")
	queryCmd.Flags().StringVarP(&querySearch, "search", "s", "", "case-insensitive text matched against title and description")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print cards as JSON")
	queryCmd.Flags().StringVar(&querySource, "source", "", "catalog file or URL (default CATALOG_SOURCE)")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	location := cfg.CatalogSource
	if querySource != "" {
		location = querySource
	}
	src, err := source.New(location, cfg.CatalogFetchTimeout)
	if err != nil {
		return err
	}

	ctrl := browser.New(src, debounce.New(nil), 0, logger, observability.NewMetrics())
	if err := ctrl.Load(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", browser.LoadFailedMessage, err)
	}
	for _, tag := range queryTags {
		if !domain.Selectable(tag) {
			return fmt.Errorf("tag %q cannot be used as a filter", tag)
		}
		if !ctrl.View().IsTagSelected(tag) {
			ctrl.OnTagToggled(tag)
		}
	}
	if querySearch != "" {
		ctrl.OnSearchChanged(querySearch)
	}

	view := ctrl.View()
	if queryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view.Cards())
	}
	printView(cmd.OutOrStdout(), view)
	return nil
}

func printView(w io.Writer, v browser.View) {
	fmt.Fprintln(w, v.Summary())
	if v.Empty() {
		fmt.Fprintln(w, "No layers match the current filters.")
		return
	}
	for _, c := range v.Cards() {
		fmt.Fprintf(w, "\n%s  [%s]\n", c.Title, c.Type)
		if c.Description != "" {
			fmt.Fprintf(w, "  %s\n", c.Description)
		}
		if len(c.Tags) > 0 {
			fmt.Fprintf(w, "  tags: %s\n", strings.Join(c.Tags, ", "))
		}
		fmt.Fprintf(w, "  modified %s, %s views\n  %s\n", c.Modified, c.ViewCount, c.URL)
	}
}
