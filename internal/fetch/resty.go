package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/useragent"
)

// RestyFetcher fetches pages with a shared resty client.
type RestyFetcher struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewResty creates a new RestyFetcher.
func NewResty(timeout time.Duration, logger zerolog.Logger) *RestyFetcher {
	return &RestyFetcher{
		client: resty.New().SetTimeout(timeout),
		logger: logger.With().Str("component", "fetch").Str("fetcher", KindResty).Logger(),
	}
}

// Fetch retrieves the page at url.
func (f *RestyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.logger.Debug().Str("url", url).Msg("fetching page")

	res, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", useragent.Random()).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return nil, &StatusError{URL: url, Code: res.StatusCode()}
	}

	f.logger.Debug().Str("url", url).Int("status", res.StatusCode()).Int("bytes", len(res.Body())).Msg("fetched page")
	return res.Body(), nil
}
