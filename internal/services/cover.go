package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/desertthunder/yubal/internal/shared"
)

// maxCoverBytes bounds a single artwork download.
const maxCoverBytes = 10 << 20

// CoverCache is a concurrent read-through cache of artwork bytes keyed by URL.
//
// Fetches happen outside the lock; concurrent misses for the same URL may fetch twice and the last write wins.
// There is no eviction.
type CoverCache struct {
	mu     sync.RWMutex
	items  map[string][]byte
	client *http.Client
}

// NewCoverCache creates an empty cache fetching with client (default [http.DefaultClient]).
func NewCoverCache(client *http.Client) *CoverCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &CoverCache{items: make(map[string][]byte), client: client}
}

// Get returns the artwork at url, fetching and storing it on a miss.
func (c *CoverCache) Get(ctx context.Context, url string) ([]byte, error) {
	if data, ok := c.Peek(url); ok {
		return data, nil
	}

	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[url] = data
	c.mu.Unlock()
	return data, nil
}

// Peek returns a cached entry without fetching.
func (c *CoverCache) Peek(url string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.items[url]
	return data, ok
}

// Len returns the number of cached entries.
func (c *CoverCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *CoverCache) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty cover URL", shared.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: cover download returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}
	return data, nil
}
