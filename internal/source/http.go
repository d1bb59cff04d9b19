package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/feed"
)

// maxFeedBytes bounds how much of an upstream response Load will read.
const maxFeedBytes = 64 << 20

// HTTP loads the catalog from an upstream data endpoint returning the
// product feed as a JSON array. Every Load is bounded by the configured
// timeout; expiry counts as a fetch failure.
type HTTP struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

var _ catalog.Source = (*HTTP)(nil)

// NewHTTP returns a Source fetching from url with the given per-fetch
// timeout. A zero timeout disables the deadline.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	return &HTTP{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Load fetches and decodes the feed.
func (s *HTTP) Load(ctx context.Context) ([]catalog.Product, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build feed request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch product feed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch product feed: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read product feed")
	}

	products, err := feed.DecodeProducts(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode feed from %s", s.url)
	}
	return products, nil
}
