package entity

import "github.com/joseph-ayodele/price-bulletin/constants"

// Product is one priced item of a bulletin. Field names are the on-disk contract
// read by the dashboard.
type Product struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Unit            string             `json:"unit"`
	PriceMin        float64            `json:"priceMin"`
	PriceMax        float64            `json:"priceMax"`
	Mode            float64            `json:"mode"`
	Average         float64            `json:"average"`
	PricePerKilo    *float64           `json:"pricePerKilo,omitempty"`
	VolatilityIndex float64            `json:"volatilityIndex"`
	Category        constants.Category `json:"category"`
	WeightKg        *int               `json:"weightKg,omitempty"`
}
