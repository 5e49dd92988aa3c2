// Package normalize converts raw textual price, date and fuel tokens scraped
// from price tables into canonical values.
//
// The normalizers never panic. Failures are reported as errors wrapping
// ErrUnparseablePrice or ErrUnresolvableDate so callers can reject the
// candidate and keep going.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseablePrice is returned when a raw price token cannot be read as a number.
var ErrUnparseablePrice = errors.New("unparseable price")

var priceNoise = regexp.MustCompile(`[^\d,.\-]`)

// Price parses localized price text such as "14,71kr" or "1 234,56".
//
// Everything except digits, comma, dot and minus is dropped. A lone comma
// is the decimal separator. When both separators appear, the rightmost one
// is the decimal separator and the other is a thousands separator.
func Price(raw string) (float64, error) {
	cleaned := priceNoise.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnparseablePrice, raw)
	}

	comma := strings.LastIndex(cleaned, ",")
	dot := strings.LastIndex(cleaned, ".")
	switch {
	case comma >= 0 && dot < 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case comma >= 0 && comma > dot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case comma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseablePrice, raw)
	}
	return value, nil
}
