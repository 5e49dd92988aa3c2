// Package fetch retrieves raw HTML pages for the source adapters.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrStatus is wrapped by every StatusError.
var ErrStatus = errors.New("unexpected response status")

// StatusError reports a response with a non-success status code.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d fetching %s", ErrStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Fetcher retrieves the raw markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetcher kinds accepted by New.
const (
	KindColly = "colly"
	KindResty = "resty"
)

// New returns the fetcher of the given kind.
func New(kind string, timeout time.Duration, logger zerolog.Logger) (Fetcher, error) {
	switch kind {
	case KindColly, "":
		return NewColly(timeout, logger), nil
	case KindResty:
		return NewResty(timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", kind)
	}
}
