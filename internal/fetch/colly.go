package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/useragent"
)

// CollyFetcher fetches pages with a fresh colly collector per request.
type CollyFetcher struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewColly creates a new CollyFetcher.
func NewColly(timeout time.Duration, logger zerolog.Logger) *CollyFetcher {
	return &CollyFetcher{
		timeout: timeout,
		logger:  logger.With().Str("component", "fetch").Str("fetcher", KindColly).Logger(),
	}
}

// Fetch retrieves the page at url.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(useragent.Random()),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	f.logger.Debug().Str("url", url).Msg("fetching page")

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if status != 0 && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		return nil, &StatusError{URL: url, Code: status}
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, fetchErr)
	}

	f.logger.Debug().Str("url", url).Int("status", status).Int("bytes", len(body)).Msg("fetched page")
	return body, nil
}
