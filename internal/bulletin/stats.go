package bulletin

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
)

// PriceStats summarises a product list.
type PriceStats struct {
	MostExpensive     *entity.Product `json:"mostExpensive"`
	Cheapest          *entity.Product `json:"cheapest"`
	HighestVolatility *entity.Product `json:"highestVolatility"`
	TotalProducts     int             `json:"totalProducts"`
}

// ComputeStats compares products on their per-kilo price when they have one,
// and on priceMax (most expensive) or priceMin (cheapest) otherwise. Ties keep
// the earlier product.
func ComputeStats(products []entity.Product) PriceStats {
	if len(products) == 0 {
		return PriceStats{}
	}
	expensive, cheap, volatile := 0, 0, 0
	for i := 1; i < len(products); i++ {
		p := products[i]
		if comparablePrice(p, false) > comparablePrice(products[expensive], false) {
			expensive = i
		}
		if comparablePrice(p, true) < comparablePrice(products[cheap], true) {
			cheap = i
		}
		if p.VolatilityIndex > products[volatile].VolatilityIndex {
			volatile = i
		}
	}
	return PriceStats{
		MostExpensive:     &products[expensive],
		Cheapest:          &products[cheap],
		HighestVolatility: &products[volatile],
		TotalProducts:     len(products),
	}
}

func comparablePrice(p entity.Product, useMin bool) float64 {
	if p.PricePerKilo != nil && *p.PricePerKilo > 0 {
		return *p.PricePerKilo
	}
	if useMin {
		return p.PriceMin
	}
	return p.PriceMax
}

// Filter keeps products whose name or unit contains search (case-insensitive)
// and whose category equals category. An empty search or the "All" category
// disables that filter.
func Filter(products []entity.Product, search, category string) []entity.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]entity.Product, 0, len(products))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Unit), search) {
			continue
		}
		if category != "" && category != constants.AllCategory && string(p.Category) != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories lists "All" followed by the distinct categories present, sorted.
func Categories(products []entity.Product) []string {
	set := make(map[string]struct{})
	for _, p := range products {
		if p.Category != "" {
			set[string(p.Category)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return append([]string{constants.AllCategory}, out...)
}

// VolatilityLevel buckets a volatility index into Low, Medium or High.
func VolatilityLevel(v float64) string {
	switch {
	case v < 0.15:
		return "Low"
	case v < 0.35:
		return "Medium"
	default:
		return "High"
	}
}
