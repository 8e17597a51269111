// Package classify maps free-text product names onto the closed category set
// and recovers packaging weights from unit strings.
package classify

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/price-bulletin/constants"
)

// Mapping pairs a category with the keywords that select it.
type Mapping struct {
	Category constants.Category `json:"category"`
	Keywords []string           `json:"keywords"`
}

// DefaultMappings is the keyword table used when no table file is configured.
// Order matters: the first category with a matching keyword wins.
var DefaultMappings = []Mapping{
	{
		Category: constants.Vegetable,
		Keywords: []string{
			"apio", "brócoli", "brocoli", "coliflor", "repollo",
			"lechuga", "chile", "tomate", "cebolla", "zanahoria",
			"vainica", "espinaca", "ayote", "calabaza", "chayote",
			"pepino", "remolacha", "rábano", "cilantro", "perejil",
			"elote", "maíz",
		},
	},
	{
		Category: constants.Fruit,
		Keywords: []string{
			"banano", "banana", "plátano", "piña", "papaya",
			"mango", "sandía", "melón", "naranja", "limón",
			"mandarina", "fresa", "uva", "manzana", "pera",
			"guayaba", "cas", "maracuyá", "carambola", "granadilla",
		},
	},
	{
		Category: constants.Tuber,
		Keywords: []string{
			"papa", "yuca", "camote", "ñame", "ñampí",
			"tiquisque", "jengibre", "malanga",
		},
	},
	{
		Category: constants.Protein,
		Keywords: []string{
			"huevo", "carne", "pollo", "pescado", "res",
			"cerdo", "pavo", "atún", "tilapia",
		},
	},
}

var reWeightKg = regexp.MustCompile(`(?i)\((\d+)\s*kg\)`)

// Classifier assigns categories by keyword containment.
type Classifier struct {
	mappings []Mapping
}

// New builds a classifier over mappings; nil or empty uses DefaultMappings.
// Keywords are folded the same way names are, so "PIÑA" in a table still matches.
func New(mappings []Mapping) *Classifier {
	if len(mappings) == 0 {
		mappings = DefaultMappings
	}
	c := &Classifier{}
	c.mappings = make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		folded := Mapping{Category: m.Category, Keywords: make([]string, 0, len(m.Keywords))}
		for _, kw := range m.Keywords {
			if kw = c.fold(kw); kw != "" {
				folded.Keywords = append(folded.Keywords, kw)
			}
		}
		c.mappings = append(c.mappings, folded)
	}
	return c
}

// fold builds a Caser per call; Casers are stateful and the classifier is shared
// across workers.
func (c *Classifier) fold(s string) string {
	return cases.Lower(language.Spanish).String(norm.NFC.String(strings.TrimSpace(s)))
}

// Classify returns the first category whose keyword occurs in name, else Other.
func (c *Classifier) Classify(name string) constants.Category {
	folded := c.fold(name)
	if folded == "" {
		return constants.Other
	}
	for _, m := range c.mappings {
		for _, kw := range m.Keywords {
			if strings.Contains(folded, kw) {
				return m.Category
			}
		}
	}
	return constants.Other
}

// Mappings returns a copy of the folded table in tie-break order.
func (c *Classifier) Mappings() []Mapping {
	out := make([]Mapping, len(c.mappings))
	for i, m := range c.mappings {
		out[i] = Mapping{Category: m.Category, Keywords: append([]string(nil), m.Keywords...)}
	}
	return out
}

// ExtractWeightKg returns N from a "(N kg)" group in unit.
func ExtractWeightKg(unit string) (int, bool) {
	m := reWeightKg.FindStringSubmatch(unit)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// LoadMappings decodes a JSON array of {category, keywords} objects.
// Category labels go through constants.Canonicalize; unknown labels are rejected.
func LoadMappings(r io.Reader) ([]Mapping, error) {
	var raw []struct {
		Category string   `json:"category"`
		Keywords []string `json:"keywords"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode category table: %w", err)
	}
	out := make([]Mapping, 0, len(raw))
	for i, m := range raw {
		cat, ok := constants.Canonicalize(m.Category)
		if !ok {
			return nil, fmt.Errorf("category table entry %d: unknown category %q", i, m.Category)
		}
		out = append(out, Mapping{Category: cat, Keywords: m.Keywords})
	}
	return out, nil
}

// LoadMappingsFile reads a category table from path.
func LoadMappingsFile(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open category table: %w", err)
	}
	defer f.Close()
	return LoadMappings(f)
}
