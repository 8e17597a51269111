// Package parser recovers product entries from the linearized text of a price
// bulletin.
//
// The scan is cursor based: Next looks at lines[cursor], consumes whatever
// continuation lines belong to the same entry, and reports the cursor where the
// following scan must start. Parse simply drives Next until the lines run out.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-bulletin/internal/normalize"
)

const upperInitials = `A-ZÁÉÍÓÚÑ`

var (
	reEntryStart = regexp.MustCompile(`^([` + upperInitials + `][a-záéíóúñ` + upperInitials + `\s\-()/]+?)\s+\d`)
	reNameOnly   = regexp.MustCompile(`^[` + upperInitials + `][a-záéíóúñ` + upperInitials + `\s\-()/]*$`)
	reUpperStart = regexp.MustCompile(`^[` + upperInitials + `]`)
	reNumeral    = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	reWeightNote = regexp.MustCompile(`(?i)\(\s*\d+\s*kg\s*\)`)
)

// DiscardReason says why a scan step produced no candidate.
type DiscardReason string

const (
	DiscardNoise              DiscardReason = "noise"
	DiscardNoEntry            DiscardReason = "no_entry"
	DiscardFewNumerals        DiscardReason = "few_numerals"
	DiscardMinAboveMax        DiscardReason = "min_gt_max"
	DiscardNonPositiveAverage DiscardReason = "non_positive_average"
)

// Candidate is an extracted price row before bulletin assembly.
type Candidate struct {
	Name     string
	Unit     string
	PriceMin decimal.Decimal
	PriceMax decimal.Decimal
	Mode     decimal.Decimal
	Average  decimal.Decimal
	Line     int    // index of the first physical line of the entry
	Text     string // merged entry text the numbers were read from
}

// Step is the outcome of one scan at a cursor.
type Step struct {
	Candidate Candidate
	Next      int
	Discard   DiscardReason
}

// OK reports whether the step produced a candidate.
func (s Step) OK() bool { return s.Discard == "" }

// Config holds the data tables the scan runs on.
type Config struct {
	NoisePatterns []*regexp.Regexp
	UnitRules     []UnitRule
	DefaultUnit   string
}

// Parser is immutable after New and safe for concurrent use.
type Parser struct {
	noise       []*regexp.Regexp
	units       []UnitRule
	defaultUnit string
}

func New(cfg Config) *Parser {
	p := &Parser{
		noise:       cfg.NoisePatterns,
		units:       cfg.UnitRules,
		defaultUnit: cfg.DefaultUnit,
	}
	if len(p.noise) == 0 {
		p.noise = DefaultNoisePatterns
	}
	if len(p.units) == 0 {
		p.units = DefaultUnitRules
	}
	if p.defaultUnit == "" {
		p.defaultUnit = "Unidad"
	}
	return p
}

// Result is the output of a full pass over a line sequence.
type Result struct {
	Candidates []Candidate
	Discards   map[DiscardReason]int
	Lines      int
}

// Parse scans every line once. It never fails; unusable lines are counted in
// Discards.
func (p *Parser) Parse(lines []string) Result {
	res := Result{Discards: make(map[DiscardReason]int), Lines: len(lines)}
	for cursor := 0; cursor < len(lines); {
		step := p.Next(lines, cursor)
		if step.OK() {
			res.Candidates = append(res.Candidates, step.Candidate)
		} else {
			res.Discards[step.Discard]++
		}
		cursor = step.Next
	}
	return res
}

// Next scans the entry starting at lines[cursor]. Step.Next is always > cursor.
func (p *Parser) Next(lines []string, cursor int) Step {
	line := strings.TrimSpace(lines[cursor])
	if p.isNoise(line) {
		return Step{Next: cursor + 1, Discard: DiscardNoise}
	}

	// Packaging weights like "(45 kg)" would otherwise put a digit inside the name.
	if m := reEntryStart.FindStringSubmatch(reWeightNote.ReplaceAllString(line, " ")); m != nil {
		parts := []string{line}
		last := p.absorb(lines, cursor, &parts)
		return p.finish(strings.TrimSpace(m[1]), strings.Join(parts, " "), cursor, last+1)
	}

	// A name on its own line whose numbers follow on the next digit-led line.
	if reNameOnly.MatchString(line) {
		nameParts := []string{line}
		last := p.absorb(lines, cursor, &nameParts)
		if last+1 < len(lines) {
			numbers := strings.TrimSpace(lines[last+1])
			if startsWithDigit(numbers) {
				name := strings.Join(nameParts, " ")
				return p.finish(name, name+" "+numbers, cursor, last+2)
			}
		}
	}

	return Step{Next: cursor + 1, Discard: DiscardNoEntry}
}

// absorb appends continuation lines after index i to parts and returns the
// index of the last line consumed.
func (p *Parser) absorb(lines []string, i int, parts *[]string) int {
	for i+1 < len(lines) {
		next := strings.TrimSpace(lines[i+1])
		if p.isNoise(next) || reUpperStart.MatchString(next) || startsWithDigit(next) {
			break
		}
		*parts = append(*parts, next)
		i++
	}
	return i
}

func (p *Parser) finish(name, text string, first, next int) Step {
	nums := numerals(text)
	if len(nums) < 4 {
		return Step{Next: next, Discard: DiscardFewNumerals}
	}
	c := Candidate{
		Name:     name,
		Unit:     p.unit(text),
		PriceMin: nums[0],
		PriceMax: nums[1],
		Mode:     nums[2],
		Average:  nums[3],
		Line:     first,
		Text:     text,
	}
	if c.PriceMin.GreaterThan(c.PriceMax) {
		return Step{Next: next, Discard: DiscardMinAboveMax}
	}
	if !c.Average.IsPositive() {
		return Step{Next: next, Discard: DiscardNonPositiveAverage}
	}
	return Step{Candidate: c, Next: next}
}

func (p *Parser) isNoise(line string) bool {
	if line == "" {
		return true
	}
	for _, re := range p.noise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *Parser) unit(text string) string {
	for _, r := range p.units {
		if u, ok := r.Match(text); ok {
			return u
		}
	}
	return p.defaultUnit
}

// numerals returns the non-zero price values in text, left to right. Packaging
// weights such as "(45 kg)" are not prices and are skipped.
func numerals(text string) []decimal.Decimal {
	masked := reWeightNote.ReplaceAllString(text, " ")
	var out []decimal.Decimal
	for _, tok := range reNumeral.FindAllString(masked, -1) {
		if !normalize.IsPlausibleNumeral(tok) {
			continue
		}
		v := normalize.Price(tok)
		if v.IsZero() {
			continue
		}
		out = append(out, v)
	}
	return out
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}
