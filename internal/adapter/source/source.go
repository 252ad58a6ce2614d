// Package source retrieves catalog text from a URL or a local file.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/layer-catalog-service/internal/domain"
)

// maxCatalogBytes bounds how much of a response body is read.
const maxCatalogBytes = 64 << 20

// HTTPSource fetches the catalog over HTTP.
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSource creates a source for url with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the catalog. Any failure is returned as *domain.FetchError.
func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", &domain.FetchError{Source: s.url, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &domain.FetchError{Source: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.FetchError{Source: s.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return "", &domain.FetchError{Source: s.url, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// String returns the source location.
func (s *HTTPSource) String() string { return s.url }

// FileSource reads the catalog from disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads the whole file. Any failure is returned as *domain.FetchError.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.FetchError{Source: s.path, Err: err}
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", &domain.FetchError{Source: s.path, Err: err}
	}
	return string(data), nil
}

// Path returns the file path.
func (s *FileSource) Path() string { return s.path }

// String returns the source location.
func (s *FileSource) String() string { return s.path }

// Source is implemented by HTTPSource and FileSource.
type Source interface {
	Fetch(ctx context.Context) (string, error)
	String() string
}

// New picks an HTTP source for http(s) locations and a file source otherwise.
func New(location string, timeout time.Duration) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("empty catalog location")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, timeout), nil
	}
	return NewFileSource(location), nil
}
