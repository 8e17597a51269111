// Package bulletin turns parser candidates into a Bulletin, derives per-product
// metrics and gates the result with a whole-document validation.
package bulletin

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/classify"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/parser"
)

// Assembler derives products from candidates. It holds no per-run state.
type Assembler struct {
	classifier *classify.Classifier
}

func NewAssembler(classifier *classify.Classifier) *Assembler {
	if classifier == nil {
		classifier = classify.New(nil)
	}
	return &Assembler{classifier: classifier}
}

// Assemble builds the bulletin for date. Products keep candidate order and get
// ids prod-1..prod-N.
func (a *Assembler) Assemble(date string, candidates []parser.Candidate) entity.Bulletin {
	products := make([]entity.Product, 0, len(candidates))
	for i, c := range candidates {
		products = append(products, a.Product(i+1, c))
	}
	return entity.Bulletin{
		Date:     date,
		Source:   constants.Source,
		Products: products,
	}
}

// Product derives the output record for the seq-th accepted candidate.
func (a *Assembler) Product(seq int, c parser.Candidate) entity.Product {
	p := entity.Product{
		ID:              fmt.Sprintf("prod-%d", seq),
		Name:            c.Name,
		Unit:            c.Unit,
		PriceMin:        c.PriceMin.InexactFloat64(),
		PriceMax:        c.PriceMax.InexactFloat64(),
		Mode:            c.Mode.InexactFloat64(),
		Average:         c.Average.InexactFloat64(),
		VolatilityIndex: Volatility(c.PriceMin, c.PriceMax, c.Average).InexactFloat64(),
		Category:        a.classifier.Classify(c.Name),
	}

	// A zero weight yields neither field.
	if kg, ok := classify.ExtractWeightKg(c.Unit); ok && kg > 0 {
		perKilo := c.Average.Div(decimal.NewFromInt(int64(kg))).InexactFloat64()
		p.WeightKg = &kg
		p.PricePerKilo = &perKilo
	}
	return p
}

// Volatility is (max - min) / average, or zero when average is not positive.
func Volatility(priceMin, priceMax, average decimal.Decimal) decimal.Decimal {
	if !average.IsPositive() {
		return decimal.Zero
	}
	return priceMax.Sub(priceMin).Div(average)
}
