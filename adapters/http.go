package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brettbedarf/flatfs"
	"github.com/brettbedarf/flatfs/internal/util"
)

type HTTPMethod = string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodPost HTTPMethod = "POST"
)

var (
	ErrInvalidURL = errors.New("invalid source url")
	ErrHTTPStatus = errors.New("unexpected http status")
)

// HTTPClient is the part of [http.Client] the adapter needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource contains http-specific source request fields
type HTTPSource struct {
	URL     string            `json:"url"`
	Method  *HTTPMethod       `json:"method,omitempty"` // Default is GET
	Headers map[string]string `json:"headers,omitempty"`
}

// HTTPProvider builds [HTTPAdapter]s that share one client
type HTTPProvider struct {
	client HTTPClient
}

// NewHTTPProvider uses [http.DefaultClient] when client is nil
func NewHTTPProvider(client HTTPClient) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{client}
}

func RegisterHTTP(r *Registry) {
	r.Register(HTTPAdapterType, NewHTTPProvider(nil))
}

func (p *HTTPProvider) NewAdapter(raw []byte) (flatfs.ContentAdapter, error) {
	var src HTTPSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	u, err := validateURL(src.URL)
	if err != nil {
		return nil, err
	}
	src.URL = u.String()
	return &HTTPAdapter{client: p.client, source: src}, nil
}

// validateURL accepts absolute http(s) URLs with a host and no user info
func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: user info not allowed", ErrInvalidURL)
	}
	return u, nil
}

// HTTPAdapter implements [flatfs.ContentAdapter] for HTTP sources
type HTTPAdapter struct {
	client HTTPClient
	source HTTPSource
}

func (h *HTTPAdapter) newRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, h.getMethod(), h.source.URL, nil)
	if err != nil {
		return nil, err
	}

	// Add custom headers
	for k, v := range h.source.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Content fetches the whole body. Anything but a 2xx response is an error.
func (h *HTTPAdapter) Content(ctx context.Context) ([]byte, error) {
	logger := util.GetLogger("Adapters.HTTP")

	req, err := h.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s", ErrHTTPStatus, resp.Status, h.source.URL)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("url", h.source.URL).Int("bytes", len(data)).Msg("Fetched content")
	return data, nil
}

func (h *HTTPAdapter) getMethod() HTTPMethod {
	if h.source.Method != nil {
		return *h.source.Method
	}
	return HTTPMethodGet
}
