package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/purse/internal/domain"
	"github.com/vadiminshakov/purse/pkg/retrier"
)

const (
	defaultFeedTimeout = 10 * time.Second
	maxFeedBody        = 4 << 20
)

// SnapshotFeed pulls the whole price list from a JSON endpoint returning
// an array of {currency, date, price} samples.
type SnapshotFeed struct {
	url     string
	client  *http.Client
	retrier *retrier.Retrier
}

// NewSnapshotFeed creates a feed client for the given endpoint.
func NewSnapshotFeed(url string, timeout time.Duration) *SnapshotFeed {
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}

	return &SnapshotFeed{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retrier: retrier.New(),
	}
}

// Fetch downloads and decodes the price snapshot. Transient failures are
// retried with backoff inside this call; the returned error means the
// whole fetch cycle failed.
func (f *SnapshotFeed) Fetch(ctx context.Context) ([]domain.PriceSample, error) {
	return retrier.DoWithData(f.retrier, ctx, f.fetchOnce)
}

func (f *SnapshotFeed) fetchOnce(ctx context.Context) ([]domain.PriceSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build price feed request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request price feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, errors.Wrap(err, "read price feed body")
	}

	var samples []domain.PriceSample
	if err := json.Unmarshal(payload, &samples); err != nil {
		return nil, errors.Wrap(err, "decode price feed")
	}

	return samples, nil
}
