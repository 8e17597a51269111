package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
)

// DefaultNoisePatterns match publication headers, footers, page markers and
// column titles. Any line matching one of them never starts or extends an entry.
var DefaultNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)PIMA`),
	regexp.MustCompile(`(?i)CENADA`),
	regexp.MustCompile(`(?i)Pag\.\s*\d+`),
	regexp.MustCompile(`(?i)Boletín`),
	regexp.MustCompile(`(?i)Producto`),
	regexp.MustCompile(`(?i)Mínimo`),
	regexp.MustCompile(`(?i)Máximo`),
	regexp.MustCompile(`(?i)Plaza`),
	regexp.MustCompile(`(?i)Fecha`),
}

// UnitRule recognizes one unit-of-sale spelling. When the pattern has a capture
// group the first group is the unit text, otherwise the whole match is.
type UnitRule struct {
	Name string
	re   *regexp.Regexp
}

// NewUnitRule compiles pattern into a rule.
func NewUnitRule(name, pattern string) (UnitRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return UnitRule{}, fmt.Errorf("unit rule %q: %w", name, err)
	}
	return UnitRule{Name: name, re: re}, nil
}

func mustUnitRule(name, pattern string) UnitRule {
	r, err := NewUnitRule(name, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Match returns the unit text found in s.
func (r UnitRule) Match(s string) (string, bool) {
	m := r.re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if len(m) > 1 && m[1] != "" {
		return m[1], true
	}
	return m[0], true
}

// DefaultUnitRules are tried in order; weighted malla/caja forms come first so
// the packaging weight survives into the unit string.
var DefaultUnitRules = []UnitRule{
	mustUnitRule("malla-kg", `(?i)malla\s*\(\s*\d+\s*kg\s*\)`),
	mustUnitRule("caja-kg", `(?i)caja\s*\(\s*\d+\s*kg\s*\)`),
	mustUnitRule("kilo", `(?i)\b(kilo|kg)\b`),
	mustUnitRule("mata", `(?i)\b(mata)\b`),
	mustUnitRule("unidad", `(?i)\b(unidad|unit)\b`),
	mustUnitRule("caja", `(?i)\b(caja)\b`),
	mustUnitRule("malla", `(?i)\b(malla)\b`),
	mustUnitRule("mano", `(?i)\b(mano)\b`),
	mustUnitRule("racimo", `(?i)\b(racimo)\b`),
}

// LoadUnitRules decodes a JSON array of {name, pattern} objects, in priority order.
func LoadUnitRules(r io.Reader) ([]UnitRule, error) {
	var raw []struct {
		Name    string `json:"name"`
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode unit rules: %w", err)
	}
	rules := make([]UnitRule, 0, len(raw))
	for _, item := range raw {
		rule, err := NewUnitRule(item.Name, item.Pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadUnitRulesFile reads unit rules from path.
func LoadUnitRulesFile(path string) ([]UnitRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open unit rules: %w", err)
	}
	defer f.Close()
	return LoadUnitRules(f)
}
