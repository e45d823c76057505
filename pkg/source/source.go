// Package source loads the metadata dataset rendered by the graph API.
//
// The bundled dataset is always available. A local file replaces it at startup
// and on reload, and a remote URL can be fetched on demand. A failed load never
// replaces the last good dataset.
package source

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ritzau/service-catalog/pkg/catalog"
	"github.com/ritzau/service-catalog/pkg/logging"
	"github.com/ritzau/service-catalog/pkg/metrics"
	"github.com/ritzau/service-catalog/pkg/model"
)

//go:embed service-metadata.json
var bundled []byte

// Where the current dataset came from
const (
	KindBundled = "bundled"
	KindFile    = "file"
	KindURL     = "url"
)

// DefaultTimeout bounds remote metadata fetches
const DefaultTimeout = 7 * time.Second

const maxPayload = 10 << 20

// ErrNoURL is returned by Refresh when neither an argument nor a configured URL is set.
var ErrNoURL = errors.New("no metadata url configured")

// Status describes the current dataset and the outcome of the last load attempt.
type Status struct {
	Source     string    `json:"source"`
	File       string    `json:"file,omitempty"`
	URL        string    `json:"url,omitempty"`
	FetchError string    `json:"fetchError,omitempty"`
	LoadedAt   time.Time `json:"loadedAt"`
	Count      int       `json:"count"`
	Skipped    int       `json:"skipped"`
}

// Loader owns the metadata dataset.
type Loader struct {
	mu       sync.RWMutex
	services []model.Service
	status   Status

	file    string
	url     string
	timeout time.Duration
	client  *http.Client
	now     func() time.Time
	log     *slog.Logger

	listeners []func(Status)
}

// Option configures a Loader
type Option func(*Loader)

// WithFile sets the local metadata file.
func WithFile(path string) Option {
	return func(l *Loader) { l.file = path }
}

// WithURL sets the default remote metadata URL.
func WithURL(url string) Option {
	return func(l *Loader) { l.url = url }
}

// WithTimeout bounds remote fetches. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithHTTPClient replaces the client used for remote fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithClock overrides the clock used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// New creates a loader holding the bundled dataset.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		timeout: DefaultTimeout,
		client:  http.DefaultClient,
		now:     time.Now,
		log:     logging.New("source"),
	}
	for _, opt := range opts {
		opt(l)
	}

	cat, err := catalog.Parse(bundled)
	if err != nil {
		return nil, fmt.Errorf("parse bundled metadata: %w", err)
	}
	l.replace(cat, Status{Source: KindBundled})
	return l, nil
}

// Load applies the configured file and URL on top of the bundled data.
// A broken file is an error; a failed fetch is only recorded in Status.
func (l *Loader) Load(ctx context.Context) error {
	if l.file != "" {
		if err := l.ReloadFile(); err != nil {
			return err
		}
	}
	if l.url != "" {
		_, _ = l.Refresh(ctx, "")
	}
	return nil
}

// OnLoad registers a callback run with the new status after every load
// attempt, successful or not.
func (l *Loader) OnLoad(fn func(Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Services returns the current dataset. Callers must not modify it.
func (l *Loader) Services() []model.Service {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.services
}

// Status returns the current status.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// File returns the configured metadata file, if any.
func (l *Loader) File() string {
	return l.file
}

// ReloadFile re-reads the configured metadata file.
func (l *Loader) ReloadFile() error {
	if l.file == "" {
		return errors.New("no metadata file configured")
	}

	cat, err := catalog.ParseFile(l.file)
	if err != nil {
		l.log.Warn("metadata file rejected, keeping previous dataset", "file", l.file, "error", err)
		return fmt.Errorf("load %s: %w", l.file, err)
	}

	l.log.Info("loaded metadata file", "file", l.file, "count", len(cat.Services), "skipped", len(cat.Skipped))
	l.replace(cat, Status{Source: KindFile, File: l.file})
	return nil
}

// Refresh fetches url, or the configured URL when url is empty. On failure
// the previous dataset stays and the reason is recorded as FetchError.
func (l *Loader) Refresh(ctx context.Context, url string) (Status, error) {
	if url == "" {
		url = l.url
	}
	if url == "" {
		return l.Status(), ErrNoURL
	}

	cat, result, err := l.fetch(ctx, url)
	metrics.ObserveFetch(result)
	if err != nil {
		l.log.Warn("metadata fetch failed, keeping previous dataset", "url", url, "error", err)
		l.mu.Lock()
		l.status.FetchError = err.Error()
		l.status.URL = url
		status := l.status
		listeners := append([]func(Status){}, l.listeners...)
		l.mu.Unlock()

		for _, fn := range listeners {
			fn(status)
		}
		return status, err
	}

	l.log.Info("fetched metadata", "url", url, "count", len(cat.Services), "skipped", len(cat.Skipped))
	return l.replace(cat, Status{Source: KindURL, URL: url}), nil
}

func (l *Loader) fetch(ctx context.Context, url string) (*catalog.Catalog, string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, metrics.FetchNetwork, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, metrics.FetchTimeout, errors.New("request timed out")
		}
		return nil, metrics.FetchNetwork, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, metrics.FetchHTTP, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		if isTimeout(err) {
			return nil, metrics.FetchTimeout, errors.New("request timed out")
		}
		return nil, metrics.FetchNetwork, fmt.Errorf("read body: %w", err)
	}

	cat, err := catalog.Parse(data)
	if err != nil {
		return nil, metrics.FetchInvalid, err
	}
	return cat, metrics.FetchOK, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (l *Loader) replace(cat *catalog.Catalog, status Status) Status {
	status.LoadedAt = l.now()
	status.Count = len(cat.Services)
	status.Skipped = len(cat.Skipped)

	l.mu.Lock()
	l.services = cat.Services
	l.status = status
	listeners := append([]func(Status){}, l.listeners...)
	l.mu.Unlock()

	metrics.SetDatasetSize("metadata", status.Count)
	for _, fn := range listeners {
		fn(status)
	}
	return status
}
