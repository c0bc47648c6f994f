package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/structures"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultBaseURL   = "https://de2.api.radio-browser.info/json"
	DefaultUserAgent = "perimeterd/1.0"
	DefaultTimeout   = 15 * time.Second
	MaxSearchLimit   = 50
	maxResponseBytes = 4 << 20
)

var ErrUnavailable = errors.New("station directory unavailable")

// RadioBrowser searches the public radio-browser index. Requests are
// serialized through a weighted semaphore so a burst of searches cannot
// pile up connections against the mirror.
type RadioBrowser struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	limit     int
	client    *http.Client
	sem       *semaphore.Weighted
	logger    providers.Logger
}

func (rb *RadioBrowser) Search(ctx context.Context, query string) ([]models.Station, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	var raw []models.DirectoryStation
	if err := rb.getJSON(ctx, "stations/byname/"+url.PathEscape(q), &raw); err != nil {
		return nil, err
	}

	if len(raw) > rb.limit {
		raw = raw[:rb.limit]
	}
	stations := make([]models.Station, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.ToStation(); ok {
			stations = append(stations, s)
		}
	}
	rb.logger.Debugf(providers.TypeDirectory, "Search %q: %d raw, %d usable", q, len(raw), len(stations))
	return stations, nil
}

func (rb *RadioBrowser) getJSON(ctx context.Context, path string, out any) error {
	if err := rb.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rb.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, rb.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rb.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return fmt.Errorf("building directory request: %w", err)
	}
	req.Header.Set("User-Agent", rb.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := rb.client.Do(req)
	if err != nil {
		rb.logger.Warnf(providers.TypeDirectory, "Directory request failed: %v", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rb.logger.Warnf(providers.TypeDirectory, "Directory answered %d for %s", resp.StatusCode, path)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding body: %v", ErrUnavailable, err)
	}
	return nil
}

func NewRadioBrowser(conf *structures.Config, logger providers.Logger) *RadioBrowser {
	dc := conf.Directory
	baseURL := strings.TrimRight(dc.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := dc.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := dc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := dc.SearchLimit
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	concurrent := dc.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 1
	}

	return &RadioBrowser{
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		limit:     limit,
		client:    &http.Client{},
		sem:       semaphore.NewWeighted(concurrent),
		logger:    logger,
	}
}
