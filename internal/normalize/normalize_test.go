package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

var now = time.Date(2025, time.January, 10, 15, 4, 5, 0, time.Local)

func TestPrice(t *testing.T) {
	testCases := []struct {
		raw      string
		expected float64
	}{
		{raw: "14,71kr", expected: 14.71},
		{raw: "1 234,56", expected: 1234.56},
		{raw: "1 234,56 kr", expected: 1234.56},
		{raw: "18.49", expected: 18.49},
		{raw: " 17,9 kr/l ", expected: 17.9},
		{raw: "1.234,56", expected: 1234.56},
		{raw: "1,234.56", expected: 1234.56},
		{raw: "-0,5", expected: -0.5},
		{raw: "20", expected: 20},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Price(tc.raw)
			require.NoError(t, err)
			require.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestPrice_Unparseable(t *testing.T) {
	for _, raw := range []string{"abc", "", "kr", "-", "1,2,3", "14.71.", "–"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Price(raw)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrUnparseablePrice))
		})
	}
}

func TestDate(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{raw: "Idag", expected: "2025-01-10"},
		{raw: "idag 14:32", expected: "2025-01-10"},
		{raw: "Today", expected: "2025-01-10"},
		{raw: "Igår", expected: "2025-01-09"},
		{raw: "igar", expected: "2025-01-09"},
		{raw: "Yesterday", expected: "2025-01-09"},
		{raw: "I förrgår", expected: "2025-01-08"},
		{raw: "Förrgår kl. 08:15", expected: "2025-01-08"},
		{raw: "förgår", expected: "2025-01-08"},
		{raw: "Day before yesterday", expected: "2025-01-08"},
		{raw: "2025-09-15", expected: "2025-09-15"},
		{raw: "2024/12/01", expected: "2024-12-01"},
		{raw: "15/9", expected: "2024-09-15"},
		{raw: "10/1", expected: "2025-01-10"},
		{raw: "11/1", expected: "2024-01-11"},
		{raw: "9/1", expected: "2025-01-09"},
		{raw: "15.9.", expected: "2024-09-15"},
		{raw: "15-09", expected: "2024-09-15"},
		{raw: "15/9/24", expected: "2024-09-15"},
		{raw: "15/09/2023", expected: "2023-09-15"},
		{raw: "Datum: 3/1", expected: "2025-01-03"},
		{raw: "uppdaterad: 3/1 kl 09:00", expected: "2025-01-03"},
		{raw: "15 sep", expected: "2024-09-15"},
		{raw: "15 sept. 2023", expected: "2023-09-15"},
		{raw: "2 januari", expected: "2025-01-02"},
		{raw: "5 maj", expected: "2024-05-05"},
		{raw: "Dec 24", expected: "2024-12-24"},
		{raw: "okt 3, 2022", expected: "2022-10-03"},
		{raw: "(4 1)", expected: "2025-01-04"},
		{raw: "15 sep 14.30", expected: "2024-09-15"},
		{raw: "15 sep. kl 14.30", expected: "2024-09-15"},
		{raw: "kl 14.30 15/9", expected: "2024-09-15"},
		{raw: "Igår kl. 18.30", expected: "2025-01-09"},
		{raw: "15/9/99", expected: "1999-09-15"},
		{raw: "10/1/25", expected: "2025-01-10"},
		{raw: "11/1/25", expected: "1925-01-11"},
		{raw: "idagg", expected: "2025-01-10"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Date(tc.raw, now)
			require.NoError(t, err)
			require.Equal(t, tc.expected, got.Format(models.DateLayout))
		})
	}
}

func TestDate_Unresolvable(t *testing.T) {
	for _, raw := range []string{"", "   ", "okänt", "31/2", "2025-02-30", "15", "igag", "n/a", "dag", "igr"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Date(raw, now)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrUnresolvableDate))
		})
	}
}

func TestDate_LeapDayInference(t *testing.T) {
	leapNow := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := Date("29/2", leapNow)
	require.Error(t, err, "2025 has no February 29th")

	got, err := Date("29/2", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", got.Format(models.DateLayout))
}

func TestFuel(t *testing.T) {
	testCases := []struct {
		raw      string
		expected models.FuelCategory
		ok       bool
	}{
		{raw: "95 (E10)", expected: models.FuelRegular95, ok: true},
		{raw: "Bensin 95", expected: models.FuelRegular95, ok: true},
		{raw: "Blyfri 95 E10", expected: models.FuelRegular95, ok: true},
		{raw: "98", expected: models.FuelPremium98, ok: true},
		{raw: "Diesel", expected: models.FuelDiesel, ok: true},
		{raw: "DIESEL (B7)", expected: models.FuelDiesel, ok: true},
		{raw: "Etanol", expected: models.FuelEthanol, ok: true},
		{raw: "E85", expected: models.FuelEthanol, ok: true},
		{raw: "ethanol", expected: models.FuelEthanol, ok: true},
		{raw: "premium-98", expected: models.FuelPremium98, ok: true},
		{raw: "HVO100", expected: models.FuelCategory("HVO100"), ok: false},
		{raw: "Fordonsgas", expected: models.FuelCategory("Fordonsgas"), ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := Fuel(tc.raw)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, got)
		})
	}
}
