package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/layer-catalog-service/internal/browser"
	"github.com/couchcryptid/layer-catalog-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// Browser is the browsing session served over HTTP.
type Browser interface {
	sharedobs.ReadinessChecker
	View() browser.View
	Cards() []domain.Card
	Tags() []domain.TagCount
	TypeCounts() []domain.TypeCount
	OnTagToggled(tag string) browser.View
	OnTagRemoved(tag string) browser.View
	OnSearchChanged(text string) browser.View
	OnClearFilters() browser.View
	OnCardToggled(index int) (browser.View, bool)
}

// Server exposes the catalog API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	browser    Browser
	logger     *slog.Logger
}

// NewServer creates an HTTP server for b listening on addr.
func NewServer(addr string, b Browser, logger *slog.Logger) *Server {
	router := mux.NewRouter()
	router.UseEncodedPath()
	router.NotFoundHandler = unmatched(router)
	router.MethodNotAllowedHandler = router.NotFoundHandler

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		browser: b,
		logger:  logger,
	}

	router.Use(s.logRequests)

	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(b)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/layers", s.handleLayers).Methods(http.MethodGet)
	api.HandleFunc("/cards", s.handleCards).Methods(http.MethodGet)
	api.HandleFunc("/tags", s.handleTags).Methods(http.MethodGet)
	api.HandleFunc("/stats/types", s.handleTypes).Methods(http.MethodGet)
	api.HandleFunc("/filters", s.handleClearFilters).Methods(http.MethodDelete)
	api.HandleFunc("/filters/search", s.handleSearch).Methods(http.MethodPut)
	api.HandleFunc("/filters/tags/{tag}", s.handleToggleTag).Methods(http.MethodPost)
	api.HandleFunc("/filters/tags/{tag}", s.handleRemoveTag).Methods(http.MethodDelete)
	api.HandleFunc("/cards/{index}/toggle", s.handleToggleCard).Methods(http.MethodPost)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// viewResponse is the JSON form of browser.View.
type viewResponse struct {
	Status       browser.Status  `json:"status"`
	Message      string          `json:"message,omitempty"`
	Summary      string          `json:"summary"`
	ResultCount  int             `json:"result_count"`
	TotalCount   int             `json:"total_count"`
	Empty        bool            `json:"empty"`
	SelectedTags []string        `json:"selected_tags"`
	Search       string          `json:"search"`
	Expanded     int             `json:"expanded"`
	LastUpdated  string          `json:"last_updated"`
	Layers       []domain.Record `json:"layers"`
}

func newViewResponse(v browser.View) viewResponse {
	layers := v.Records
	if layers == nil {
		layers = []domain.Record{}
	}
	selected := v.SelectedTags
	if selected == nil {
		selected = []string{}
	}
	return viewResponse{
		Status:       v.Status,
		Message:      v.Message,
		Summary:      v.Summary(),
		ResultCount:  v.ResultCount,
		TotalCount:   v.TotalCount,
		Empty:        v.Empty(),
		SelectedTags: selected,
		Search:       v.Search,
		Expanded:     v.Expanded,
		LastUpdated:  v.LastUpdated,
		Layers:       layers,
	}
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newViewResponse(s.browser.View()))
}

func (s *Server) handleCards(w http.ResponseWriter, _ *http.Request) {
	cards := s.browser.Cards()
	if cards == nil {
		cards = []domain.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browser.Tags())
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browser.TypeCounts())
}

func (s *Server) handleToggleTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagParam(w, r)
	if !ok {
		return
	}
	if !domain.Selectable(tag) {
		writeError(w, http.StatusBadRequest, "tag cannot be selected: "+tag)
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(s.browser.OnTagToggled(tag)))
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(s.browser.OnTagRemoved(tag)))
}

type searchRequest struct {
	Text string `json:"text"`
}

// handleSearch accepts the new search text. The filtered result follows after
// the search delay, so the response only echoes the committed text.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid search body")
		return
	}
	writeJSON(w, http.StatusAccepted, newViewResponse(s.browser.OnSearchChanged(req.Text)))
}

func (s *Server) handleClearFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newViewResponse(s.browser.OnClearFilters()))
}

func (s *Server) handleToggleCard(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "card index must be an integer")
		return
	}
	view, ok := s.browser.OnCardToggled(index)
	if !ok {
		writeError(w, http.StatusNotFound, "no card at index "+strconv.Itoa(index))
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(view))
}

func tagParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	tag, err := url.PathUnescape(mux.Vars(r)["tag"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tag encoding")
		return "", false
	}
	return tag, true
}

var routedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// unmatched answers requests no route accepted. A path that some route serves
// under another method gets 405 with an Allow header, anything else 404. mux
// alone reports 404 for such paths once a subrouter holds routes with
// different methods.
func unmatched(router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range routedMethods {
			if method == r.Method {
				continue
			}
			alt := r.Clone(r.Context())
			alt.Method = method
			var match mux.RouteMatch
			if router.Match(alt, &match) && match.MatchErr == nil {
				allowed = append(allowed, method)
			}
		}
		if len(allowed) == 0 {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

// IsServerClosed reports whether err is the normal result of Shutdown.
func IsServerClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed)
}
