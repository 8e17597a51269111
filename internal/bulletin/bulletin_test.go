package bulletin

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/parser"
)

func candidate(name, unit string, min, max, mode, avg int64) parser.Candidate {
	return parser.Candidate{
		Name:     name,
		Unit:     unit,
		PriceMin: decimal.NewFromInt(min),
		PriceMax: decimal.NewFromInt(max),
		Mode:     decimal.NewFromInt(mode),
		Average:  decimal.NewFromInt(avg),
	}
}

func TestAssembleDerivesMetrics(t *testing.T) {
	a := NewAssembler(nil)
	b := a.Assemble("2025-12-23", []parser.Candidate{
		candidate("Tomate", "Unidad", 1200, 1800, 1400, 1500),
		candidate("Papa blanca", "Malla (45 kg)", 9000, 9000, 9000, 9000),
	})

	if b.Source != constants.Source || b.Date != "2025-12-23" {
		t.Fatalf("unexpected header %q %q", b.Source, b.Date)
	}
	if len(b.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(b.Products))
	}

	tomate := b.Products[0]
	if tomate.ID != "prod-1" || tomate.Category != constants.Vegetable {
		t.Fatalf("unexpected tomate %+v", tomate)
	}
	if math.Abs(tomate.VolatilityIndex-0.4) > 1e-12 {
		t.Fatalf("expected volatility 0.4, got %v", tomate.VolatilityIndex)
	}
	if tomate.WeightKg != nil || tomate.PricePerKilo != nil {
		t.Fatalf("unweighted unit must not carry weight fields: %+v", tomate)
	}

	papa := b.Products[1]
	if papa.ID != "prod-2" || papa.Category != constants.Tuber {
		t.Fatalf("unexpected papa %+v", papa)
	}
	if papa.VolatilityIndex != 0 {
		t.Fatalf("min == max must give zero volatility, got %v", papa.VolatilityIndex)
	}
	if papa.WeightKg == nil || *papa.WeightKg != 45 {
		t.Fatalf("expected weight 45, got %v", papa.WeightKg)
	}
	if papa.PricePerKilo == nil || *papa.PricePerKilo != 200 {
		t.Fatalf("expected 9000/45 = 200 per kilo, got %v", papa.PricePerKilo)
	}

	if res := Validate(b); !res.Valid {
		t.Fatalf("expected valid bulletin, got %+v", res.Violations)
	}
}

func TestAssembleZeroWeightHasNoPerKilo(t *testing.T) {
	p := NewAssembler(nil).Product(1, candidate("Cebolla", "Malla (0 kg)", 100, 200, 150, 150))
	if p.WeightKg != nil || p.PricePerKilo != nil {
		t.Fatalf("zero weight must yield neither field: %+v", p)
	}
}

func TestAssembleEmptyIsValid(t *testing.T) {
	b := NewAssembler(nil).Assemble("2025-01-01", nil)
	if b.Products == nil {
		t.Fatal("products must serialize as an empty array")
	}
	if res := Validate(b); !res.Valid {
		t.Fatalf("empty bulletin should be valid: %+v", res.Violations)
	}
}

func validDoc(t *testing.T) map[string]any {
	t.Helper()
	b := NewAssembler(nil).Assemble("2025-12-23", []parser.Candidate{
		candidate("Tomate", "Unidad", 1200, 1800, 1400, 1500),
	})
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func firstProduct(doc map[string]any) map[string]any {
	return doc["products"].([]any)[0].(map[string]any)
}

func validateDoc(t *testing.T, doc map[string]any) ValidationResult {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ValidateJSON(data)
}

func TestValidateRejectsMissingCategory(t *testing.T) {
	doc := validDoc(t)
	delete(firstProduct(doc), "category")

	res := validateDoc(t, doc)
	if res.Valid {
		t.Fatal("expected missing category to reject the bulletin")
	}
	if len(res.Violations) == 0 || !strings.HasPrefix(res.Violations[0].Path, "/products/0") {
		t.Fatalf("expected violation under /products/0, got %+v", res.Violations)
	}
	err := res.Err()
	if !errors.Is(err, common.ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "SCHEMA_VALIDATION" {
		t.Fatalf("expected AppError with SCHEMA_VALIDATION code, got %v", err)
	}
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	cases := map[string]func(doc map[string]any){
		"unknown category": func(doc map[string]any) { firstProduct(doc)["category"] = "Grain" },
		"wrong type":       func(doc map[string]any) { firstProduct(doc)["priceMin"] = "1200" },
		"extra field":      func(doc map[string]any) { firstProduct(doc)["color"] = "red" },
		"weight without per kilo": func(doc map[string]any) {
			firstProduct(doc)["weightKg"] = 45
		},
		"per kilo without weight": func(doc map[string]any) {
			firstProduct(doc)["pricePerKilo"] = 10.5
		},
		"fractional weight": func(doc map[string]any) {
			firstProduct(doc)["weightKg"] = 4.5
			firstProduct(doc)["pricePerKilo"] = 10.0
		},
		"wrong source":  func(doc map[string]any) { doc["source"] = "OTHER" },
		"missing date":  func(doc map[string]any) { delete(doc, "date") },
		"null products": func(doc map[string]any) { doc["products"] = nil },
	}
	for name, mutate := range cases {
		doc := validDoc(t)
		mutate(doc)
		if res := validateDoc(t, doc); res.Valid {
			t.Errorf("%s: expected rejection", name)
		}
	}
}

func TestValidateSemanticRules(t *testing.T) {
	b := NewAssembler(nil).Assemble("2025-12-23", []parser.Candidate{
		candidate("Tomate", "Unidad", 1200, 1800, 1400, 1500),
		candidate("Chile", "Unidad", 100, 200, 150, 160),
	})
	b.Products[1].PriceMin = 5000
	b.Products[1].ID = "prod-1"

	res := Validate(b)
	if res.Valid {
		t.Fatal("expected semantic violations")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected min>max and duplicate id violations, got %+v", res.Violations)
	}
}

func TestValidResultHasNoError(t *testing.T) {
	if err := (ValidationResult{Valid: true}).Err(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestSchemaIsStrictDraft2020(t *testing.T) {
	s := Schema()
	if s["$schema"] != "https://json-schema.org/draft/2020-12/schema" {
		t.Fatalf("unexpected $schema %v", s["$schema"])
	}
	if s["additionalProperties"] != false {
		t.Fatal("bulletin schema must forbid additional properties")
	}
}

func perKilo(v float64) *float64 { return &v }

func TestComputeStats(t *testing.T) {
	products := []entity.Product{
		{ID: "prod-1", Name: "Tomate", PriceMin: 1200, PriceMax: 1800, VolatilityIndex: 0.4},
		{ID: "prod-2", Name: "Papa", PriceMin: 9000, PriceMax: 9500, PricePerKilo: perKilo(200), VolatilityIndex: 0.05},
		{ID: "prod-3", Name: "Culantro", PriceMin: 100, PriceMax: 300, VolatilityIndex: 0.9},
	}
	stats := ComputeStats(products)

	if stats.TotalProducts != 3 {
		t.Fatalf("expected 3 products, got %d", stats.TotalProducts)
	}
	if stats.MostExpensive.ID != "prod-1" {
		t.Errorf("per-kilo price must be compared instead of raw malla price, got %s", stats.MostExpensive.ID)
	}
	if stats.Cheapest.ID != "prod-3" {
		t.Errorf("expected cheapest prod-3, got %s", stats.Cheapest.ID)
	}
	if stats.HighestVolatility.ID != "prod-3" {
		t.Errorf("expected most volatile prod-3, got %s", stats.HighestVolatility.ID)
	}

	empty := ComputeStats(nil)
	if empty.TotalProducts != 0 || empty.MostExpensive != nil {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
}

func TestFilterAndCategories(t *testing.T) {
	products := []entity.Product{
		{Name: "Tomate", Unit: "Caja", Category: constants.Vegetable},
		{Name: "Papa", Unit: "Malla (45 kg)", Category: constants.Tuber},
		{Name: "Mango", Unit: "Unidad", Category: constants.Fruit},
	}

	if got := Filter(products, "MALLA", constants.AllCategory); len(got) != 1 || got[0].Name != "Papa" {
		t.Fatalf("unit search failed: %+v", got)
	}
	if got := Filter(products, "", string(constants.Fruit)); len(got) != 1 || got[0].Name != "Mango" {
		t.Fatalf("category filter failed: %+v", got)
	}
	if got := Filter(products, "tom", ""); len(got) != 1 {
		t.Fatalf("name search failed: %+v", got)
	}

	cats := Categories(products)
	want := []string{"All", "Fruit", "Tuber", "Vegetable"}
	if strings.Join(cats, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, cats)
	}
}

func TestVolatilityLevel(t *testing.T) {
	for v, want := range map[float64]string{0: "Low", 0.149: "Low", 0.15: "Medium", 0.34: "Medium", 0.35: "High", 2: "High"} {
		if got := VolatilityLevel(v); got != want {
			t.Errorf("VolatilityLevel(%v) = %s, want %s", v, got, want)
		}
	}
}
