// Package source fetches the raw price dataset from a local file or an
// HTTP(S) URL.
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

	"github.com/sony/gobreaker"

	"asaankisaan/internal/engine"
)

// Upper bound on a downloaded dataset.
const maxBodyBytes = 64 << 20

var ErrTooLarge = errors.New("dataset exceeds size limit")

// New picks an HTTP source for http:// and https:// locations and a file
// source for anything else.
func New(location string) engine.Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTP(location, nil)
	}
	return File{Path: location}
}

type File struct {
	Path string
}

func (f File) Name() string { return f.Path }

func (f File) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return data, nil
}

// HTTP downloads the dataset. Repeated failures open a circuit breaker so a
// dead endpoint is not hammered by periodic reloads.
type HTTP struct {
	URL     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTP{
		URL:    url,
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "dataset:" + url,
			MaxRequests: 1,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Name drops the query so the store can tell .xlsx from .csv by extension.
func (h *HTTP) Name() string {
	if i := strings.IndexAny(h.URL, "?#"); i != -1 {
		return h.URL[:i]
	}
	return h.URL
}

func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	body, err := h.breaker.Execute(func() (interface{}, error) {
		return h.get(ctx)
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (h *HTTP) State() gobreaker.State { return h.breaker.State() }

func (h *HTTP) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch dataset: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
