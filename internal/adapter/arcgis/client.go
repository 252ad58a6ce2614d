package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/layer-catalog-service/internal/domain"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

// Query selects the portal items to harvest.
type Query struct {
	OrgID string
	Owner string
	Tag   string
}

// String renders the portal search expression.
func (q Query) String() string {
	return fmt.Sprintf("orgid:%s AND owner:%s AND tags:%s", q.OrgID, q.Owner, q.Tag)
}

// Client queries the ArcGIS portal search API.
type Client struct {
	query      Query
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a search client for baseURL (the portal's
// /sharing/rest/search endpoint).
func NewClient(baseURL string, query Query, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		query: query,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Search fetches num results starting at the 1-based position start, newest
// modification first.
func (c *Client) Search(ctx context.Context, start, num int) (domain.ItemPage, error) {
	params := url.Values{
		"q":         {c.query.String()},
		"start":     {strconv.Itoa(start)},
		"num":       {strconv.Itoa(num)},
		"f":         {"json"},
		"sortField": {"modified"},
		"sortOrder": {"desc"},
	}

	begin := time.Now()
	c.metrics.HarvestPages.Inc()
	page, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.HarvestPageDuration.Observe(time.Since(begin).Seconds())
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("search page at %d: %w", start, err)
	}

	c.logger.Debug("arcgis page fetched", "start", start, "items", len(page.Items), "total", page.Total)
	return page, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.ItemPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.ItemPage{}, fmt.Errorf("arcgis API error: status %d: %s", resp.StatusCode, body)
	}

	var searchResp response
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return domain.ItemPage{}, fmt.Errorf("decode response: %w", err)
	}

	// The portal reports request errors with a 200 status.
	if searchResp.Error != nil {
		return domain.ItemPage{}, fmt.Errorf("arcgis API error: code %d: %s", searchResp.Error.Code, searchResp.Error.Message)
	}

	return domain.ItemPage{
		Total:     searchResp.Total,
		Start:     searchResp.Start,
		NextStart: searchResp.NextStart,
		Items:     searchResp.Results,
	}, nil
}

// ArcGIS API response types.

type response struct {
	Total     int           `json:"total"`
	Start     int           `json:"start"`
	Num       int           `json:"num"`
	NextStart int           `json:"nextStart"` // -1 after the last page
	Results   []domain.Item `json:"results"`
	Error     *apiError     `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
