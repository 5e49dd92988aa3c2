package normalize

import (
	"strings"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

var fuelAliases = map[string]models.FuelCategory{
	"95":         models.FuelRegular95,
	"95 (e10)":   models.FuelRegular95,
	"e10":        models.FuelRegular95,
	"bensin 95":  models.FuelRegular95,
	"blyfri 95":  models.FuelRegular95,
	"regular-95": models.FuelRegular95,
	"98":         models.FuelPremium98,
	"98 (e5)":    models.FuelPremium98,
	"bensin 98":  models.FuelPremium98,
	"blyfri 98":  models.FuelPremium98,
	"premium-98": models.FuelPremium98,
	"diesel":     models.FuelDiesel,
	"diesel b7":  models.FuelDiesel,
	"etanol":     models.FuelEthanol,
	"ethanol":    models.FuelEthanol,
	"e85":        models.FuelEthanol,
	"etanol e85": models.FuelEthanol,
}

// Fuel maps a free-text fuel label to a known category.
//
// An exact alias match wins, then substring heuristics are tried. Unknown
// labels are returned unchanged with ok set to false so they stay visible
// downstream.
func Fuel(raw string) (models.FuelCategory, bool) {
	key := fold(strings.Join(strings.Fields(raw), " "))
	if category, ok := fuelAliases[key]; ok {
		return category, true
	}

	switch {
	case strings.Contains(key, "diesel"):
		return models.FuelDiesel, true
	case strings.Contains(key, "etanol"), strings.Contains(key, "ethanol"), strings.Contains(key, "e85"):
		return models.FuelEthanol, true
	case strings.Contains(key, "98"):
		return models.FuelPremium98, true
	case strings.Contains(key, "95"):
		return models.FuelRegular95, true
	}

	return models.FuelCategory(raw), false
}
