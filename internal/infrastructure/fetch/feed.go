package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// maxFeedSize caps a feed document to protect against a runaway response.
const maxFeedSize = 64 * 1024 * 1024

// FeedFetcher downloads a full catalog feed in one request and decodes it.
// Feed suppliers have no pagination; the whole document is the catalog.
type FeedFetcher struct {
	client *http.Client
	retry  RetryPolicy
	logger *zap.Logger
}

// NewFeedFetcher creates a feed fetcher.
func NewFeedFetcher(timeout time.Duration, retry RetryPolicy, logger *zap.Logger) *FeedFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedFetcher{
		client: &http.Client{Timeout: timeout},
		retry:  retry,
		logger: logger,
	}
}

// FetchXML downloads the feed at url and decodes it into out, retrying
// transport failures per the retry policy.
func (f *FeedFetcher) FetchXML(ctx context.Context, url string, out any) error {
	return f.retry.Do(ctx, func() error {
		body, err := f.download(ctx, url)
		if err != nil {
			return err
		}
		if err := xml.Unmarshal(body, out); err != nil {
			return syncdomain.ParseError(url, fmt.Errorf("decode feed: %w", err))
		}
		return nil
	})
}

// Probe issues a HEAD-style check against the feed URL without decoding it.
func (f *FeedFetcher) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return syncdomain.ConnectionError("build probe request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return syncdomain.ConnectionError("probe feed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return syncdomain.ConnectionError("probe feed", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (f *FeedFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, syncdomain.ConnectionError("build feed request", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, syncdomain.ConnectionError("fetch feed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncdomain.ConnectionError("fetch feed", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, syncdomain.ConnectionError("read feed body", err)
	}

	f.logger.Debug("feed downloaded",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
