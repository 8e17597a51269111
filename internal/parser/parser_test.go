package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertPrices(t *testing.T, c Candidate, min, max, mode, avg int64) {
	t.Helper()
	got := []decimal.Decimal{c.PriceMin, c.PriceMax, c.Mode, c.Average}
	want := []int64{min, max, mode, avg}
	for i := range got {
		if !got[i].Equal(dec(want[i])) {
			t.Fatalf("%s: price[%d] = %s, want %d", c.Name, i, got[i], want[i])
		}
	}
}

func TestParseSingleLineEntryAndNoise(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Tomate 1200 1800 1400 1500", "", "PIMA CENADA Boletín"})

	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(res.Candidates))
	}
	c := res.Candidates[0]
	if c.Name != "Tomate" {
		t.Fatalf("expected name Tomate, got %q", c.Name)
	}
	assertPrices(t, c, 1200, 1800, 1400, 1500)
	if c.Unit != "Unidad" {
		t.Fatalf("expected default unit, got %q", c.Unit)
	}
	if res.Discards[DiscardNoise] != 2 {
		t.Fatalf("expected 2 noise discards, got %d", res.Discards[DiscardNoise])
	}
	if res.Lines != 3 {
		t.Fatalf("expected 3 lines, got %d", res.Lines)
	}
}

func TestParseNameOnlyHead(t *testing.T) {
	p := New(Config{})
	res := p.Parse(strings.Split("Zanahoria Extra\n1000 1500 1200 1300", "\n"))

	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d (discards %v)", len(res.Candidates), res.Discards)
	}
	c := res.Candidates[0]
	if c.Name != "Zanahoria Extra" {
		t.Fatalf("expected reassembled name, got %q", c.Name)
	}
	assertPrices(t, c, 1000, 1500, 1200, 1300)
	if c.Line != 0 {
		t.Fatalf("expected entry to start at line 0, got %d", c.Line)
	}
}

func TestParseNameOnlyHeadWithWrappedName(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Chile", "dulce", "700 900 800 820"})
	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(res.Candidates))
	}
	if got := res.Candidates[0].Name; got != "Chile dulce" {
		t.Fatalf("expected %q, got %q", "Chile dulce", got)
	}
}

func TestParseContinuationFeedsUnit(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Culantro 300 500 400 420", "castilla por mata", "Papa 100 200 150 160"})

	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}
	c := res.Candidates[0]
	if c.Name != "Culantro" {
		t.Fatalf("continuation must not extend the captured name, got %q", c.Name)
	}
	if c.Unit != "mata" {
		t.Fatalf("expected unit mata, got %q", c.Unit)
	}
	if !strings.Contains(c.Text, "castilla") {
		t.Fatalf("expected continuation in entry text, got %q", c.Text)
	}
	if res.Candidates[1].Name != "Papa" || res.Candidates[1].Line != 2 {
		t.Fatalf("uppercase line must start a new entry, got %+v", res.Candidates[1])
	}
}

func TestParseDiscards(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{
		"Ayote 100 200",
		"Brócoli 900 500 600 700",
		"1234 5678",
		"Pag. 3",
	})
	if len(res.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", res.Candidates)
	}
	want := map[DiscardReason]int{
		DiscardFewNumerals: 1,
		DiscardMinAboveMax: 1,
		DiscardNoEntry:     1,
		DiscardNoise:       1,
	}
	for reason, n := range want {
		if res.Discards[reason] != n {
			t.Errorf("discards[%s] = %d, want %d", reason, res.Discards[reason], n)
		}
	}
}

func TestParseEqualMinMaxIsKept(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Yuca 500 500 500 500"})
	if len(res.Candidates) != 1 {
		t.Fatalf("expected min == max to be accepted, got %v", res.Discards)
	}
}

func TestParseDropsZeroTokensAndExtraNumerals(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Limón 0 1000 2000 1500 1600 9999"})
	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %v", res.Discards)
	}
	assertPrices(t, res.Candidates[0], 1000, 2000, 1500, 1600)
}

func TestParseThousandsSeparators(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Cebolla 1.200 1.800 1.400 1.500,50"})
	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %v", res.Discards)
	}
	c := res.Candidates[0]
	if !c.Average.Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("expected average 1500.50, got %s", c.Average)
	}
	if !c.PriceMin.Equal(dec(1200)) {
		t.Fatalf("expected min 1200, got %s", c.PriceMin)
	}
}

func TestParseMillionsWithDecimalComma(t *testing.T) {
	p := New(Config{})
	res := p.Parse([]string{"Res 950.000,00 1.050.000,00 1.000.000,00 1.010.000,00 12"})
	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got discards %v", res.Discards)
	}
	c := res.Candidates[0]
	if c.Name != "Res" {
		t.Fatalf("unexpected name %q", c.Name)
	}
	want := []decimal.Decimal{dec(950000), dec(1050000), dec(1000000), dec(1010000)}
	got := []decimal.Decimal{c.PriceMin, c.PriceMax, c.Mode, c.Average}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("field %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseWeightedUnits(t *testing.T) {
	p := New(Config{})
	cases := []struct {
		line, name, unit string
	}{
		{"Papa Malla (45 kg) 8000 9000 8500 8600", "Papa Malla", "Malla (45 kg)"},
		{"Mango 100 200 150 160 caja (20 kg) por kg", "Mango", "caja (20 kg)"},
		{"Repollo 100 200 150 160 kilo", "Repollo", "kilo"},
		{"Plátano 100 200 150 160 racimo", "Plátano", "racimo"},
	}
	for _, tc := range cases {
		res := p.Parse([]string{tc.line})
		if len(res.Candidates) != 1 {
			t.Fatalf("%q: expected 1 candidate, got %v", tc.line, res.Discards)
		}
		c := res.Candidates[0]
		if c.Name != tc.name || c.Unit != tc.unit {
			t.Errorf("%q: got name %q unit %q, want %q %q", tc.line, c.Name, c.Unit, tc.name, tc.unit)
		}
	}

	res := p.Parse([]string{"Papa Malla (45 kg) 8000 9000 8500 8600"})
	assertPrices(t, res.Candidates[0], 8000, 9000, 8500, 8600)
}

func TestNextIsPureAndAdvances(t *testing.T) {
	p := New(Config{})
	lines := []string{"Culantro 300 500 400 420", "castilla", "", "Tomate 1200 1800 1400 1500"}

	first := p.Next(lines, 0)
	again := p.Next(lines, 0)
	if first.Next != again.Next || first.Candidate.Name != again.Candidate.Name {
		t.Fatalf("Next must be deterministic: %+v vs %+v", first, again)
	}
	if first.Next != 2 {
		t.Fatalf("expected cursor 2 after continuation, got %d", first.Next)
	}
	for cursor := range lines {
		if step := p.Next(lines, cursor); step.Next <= cursor {
			t.Fatalf("Next(%d) did not advance: %d", cursor, step.Next)
		}
	}
}

func TestCustomDefaultUnitAndRules(t *testing.T) {
	rules, err := LoadUnitRules(strings.NewReader(`[{"name":"saco","pattern":"(?i)\\b(saco)\\b"}]`))
	if err != nil {
		t.Fatalf("LoadUnitRules: %v", err)
	}
	p := New(Config{UnitRules: rules, DefaultUnit: "Unit"})

	res := p.Parse([]string{"Frijol 100 200 150 160 saco", "Arroz 100 200 150 160 kilo"})
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", res.Discards)
	}
	if res.Candidates[0].Unit != "saco" {
		t.Errorf("expected custom rule to match, got %q", res.Candidates[0].Unit)
	}
	if res.Candidates[1].Unit != "Unit" {
		t.Errorf("expected default unit when rules replaced, got %q", res.Candidates[1].Unit)
	}
}

func TestLoadUnitRulesRejectsBadPattern(t *testing.T) {
	if _, err := LoadUnitRules(strings.NewReader(`[{"name":"bad","pattern":"("}]`)); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if _, err := LoadUnitRules(strings.NewReader(`{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSplitPages(t *testing.T) {
	pages := SplitPages("a\nb\fc\n\f")
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[1][0] != "c" {
		t.Fatalf("unexpected second page %q", pages[1])
	}
	if got := SplitLines("a\r\nb\fc"); len(got) != 3 {
		t.Fatalf("expected 3 lines, got %q", got)
	}
}

func TestParsePagesKeepsPageOrder(t *testing.T) {
	p := New(Config{})
	text := "PIMA CENADA\nTomate 1200 1800 1400 1500\n\fPag. 2\nPapa 100 200 150 160\nYuca 300 400 350 360"

	res, err := p.ParsePages(context.Background(), SplitPages(text))
	if err != nil {
		t.Fatalf("ParsePages: %v", err)
	}
	names := []string{}
	for _, c := range res.Candidates {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "Tomate,Papa,Yuca" {
		t.Fatalf("unexpected order %v", names)
	}
	if res.Candidates[1].Line != 4 {
		t.Fatalf("expected global line index 4, got %d", res.Candidates[1].Line)
	}
	if res.Discards[DiscardNoise] != 3 {
		t.Fatalf("expected 3 noise discards, got %d", res.Discards[DiscardNoise])
	}

	sequential := p.Parse(SplitLines(text))
	if len(sequential.Candidates) != len(res.Candidates) {
		t.Fatalf("page-parallel and sequential parse disagree: %d vs %d", len(res.Candidates), len(sequential.Candidates))
	}
}

func TestParsePagesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{}).ParsePages(ctx, [][]string{{"Tomate 1200 1800 1400 1500"}}); err == nil {
		t.Fatal("expected context error")
	}
}
