package scraper

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/models"
	"github.com/andygrunwald/fuel-price-scraper/internal/normalize"
)

// Candidates normalizes extracted rows into records.
//
// Every price cell becomes one candidate. Cells whose price or date cannot
// be normalized, or that have no date at all, are dropped and counted as
// invalid. The scrape date is the calendar date of now.
func Candidates(extracted extract.Result, sourceID string, now time.Time, logger zerolog.Logger) ([]models.PriceRecord, int) {
	scrapeDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		candidates []models.PriceRecord
		invalid    int
	)
	for _, row := range extracted.Rows {
		for _, p := range row.Prices {
			if row.Station == "" {
				invalid++
				continue
			}

			price, err := normalize.Price(p.Text)
			if err != nil {
				logger.Debug().Err(err).Str("station", row.Station).Msg("rejecting candidate")
				invalid++
				continue
			}

			observed, err := normalize.Date(p.Date, now)
			if err != nil {
				logger.Debug().Err(err).Str("station", row.Station).Msg("rejecting candidate")
				invalid++
				continue
			}

			fuel, ok := normalize.Fuel(p.Label)
			if !ok {
				logger.Warn().Str("station", row.Station).Str("fuel", p.Label).Msg("unknown fuel label")
			}

			candidates = append(candidates, models.PriceRecord{
				Station:      row.Station,
				Price:        price,
				ObservedDate: observed,
				FuelCategory: fuel,
				ScrapeDate:   scrapeDate,
				SourceID:     sourceID,
			})
		}
	}
	return candidates, invalid
}
