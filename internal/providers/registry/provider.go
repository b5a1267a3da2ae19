// Package registry provides dependency search against an npm-compatible
// package registry. Read-only: the playground only needs name/version
// lookups for its dependency picker.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/quickpen/backend/internal/infrastructure/config"
	"github.com/quickpen/backend/internal/infrastructure/resilience"
)

// Package is one search hit.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// searchResponse mirrors the npm search API shape.
type searchResponse struct {
	Objects []struct {
		Package Package `json:"package"`
	} `json:"objects"`
	Total int `json:"total"`
}

// Provider is a registry search client with retry support. A circuit
// breaker sits in front of the registry so a degraded upstream fails
// fast instead of queueing request goroutines.
type Provider struct {
	client  *resty.Client
	breaker *resilience.Breaker
	url     string
}

// New creates a registry provider.
func New(cfg config.RegistryConfig) *Provider {
	// Retryable transport underneath resty, same as the HTTP provider setup.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "quickpen-backend/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Provider{
		client: client,
		breaker: resilience.New("npm-registry", resilience.Settings{
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		}),
		url: cfg.URL,
	}
}

// Search queries the registry. size is clamped to [1, 50].
func (p *Provider) Search(ctx context.Context, query string, size int) ([]Package, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if size < 1 {
		size = 10
	}
	if size > 50 {
		size = 50
	}

	var result searchResponse
	err := p.breaker.Do(func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"text": query,
				"size": fmt.Sprintf("%d", size),
			}).
			SetResult(&result).
			Get(p.url + "/-/v1/search")
		if err != nil {
			return fmt.Errorf("registry search: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("registry search: status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	packages := make([]Package, 0, len(result.Objects))
	for _, obj := range result.Objects {
		packages = append(packages, obj.Package)
	}
	return packages, nil
}
