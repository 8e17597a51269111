package bulletin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
)

// Violation is one reason a bulletin was rejected. Path is a JSON pointer into
// the bulletin document.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of the whole-bulletin gate.
type ValidationResult struct {
	Valid      bool
	Violations []Violation
}

// Err returns nil for a valid result, otherwise an AppError wrapping
// common.ErrSchemaValidation.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Path, v.Message))
	}
	return common.NewAppError("SCHEMA_VALIDATION",
		fmt.Sprintf("bulletin rejected (%d violations): %s", len(r.Violations), strings.Join(parts, "; ")),
		common.ErrSchemaValidation)
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(Schema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("bulletin.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("bulletin.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// Validate checks b as it would be written to disk.
func Validate(b entity.Bulletin) ValidationResult {
	data, err := json.Marshal(b)
	if err != nil {
		return invalid(Violation{Path: "/", Message: fmt.Sprintf("marshal bulletin: %v", err)})
	}
	return ValidateJSON(data)
}

// ValidateJSON checks a serialized bulletin: structure first, then the
// cross-field rules the schema cannot express.
func ValidateJSON(data []byte) ValidationResult {
	schema, err := compiledSchema()
	if err != nil {
		return invalid(Violation{Path: "/", Message: err.Error()})
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return invalid(Violation{Path: "/", Message: fmt.Sprintf("unmarshal bulletin: %v", err)})
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return invalid(flatten(ve)...)
		}
		return invalid(Violation{Path: "/", Message: err.Error()})
	}

	var b entity.Bulletin
	if err := json.Unmarshal(data, &b); err != nil {
		return invalid(Violation{Path: "/", Message: fmt.Sprintf("decode bulletin: %v", err)})
	}
	if vs := semanticViolations(b); len(vs) > 0 {
		return invalid(vs...)
	}
	return ValidationResult{Valid: true}
}

func semanticViolations(b entity.Bulletin) []Violation {
	var out []Violation
	seen := make(map[string]int, len(b.Products))
	for i, p := range b.Products {
		path := fmt.Sprintf("/products/%d", i)
		if p.PriceMin > p.PriceMax {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("priceMin %v exceeds priceMax %v", p.PriceMin, p.PriceMax)})
		}
		if p.Average <= 0 {
			out = append(out, Violation{Path: path + "/average", Message: "average must be positive"})
		}
		if p.VolatilityIndex < 0 {
			out = append(out, Violation{Path: path + "/volatilityIndex", Message: "volatilityIndex must not be negative"})
		}
		if first, dup := seen[p.ID]; dup {
			out = append(out, Violation{Path: path + "/id", Message: fmt.Sprintf("duplicate id %q (first at /products/%d)", p.ID, first)})
		} else {
			seen[p.ID] = i
		}
	}
	return out
}

// flatten collects the leaf errors of a jsonschema error tree.
func flatten(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		path := ve.InstanceLocation
		if path == "" {
			path = "/"
		}
		return []Violation{{Path: path, Message: ve.Message}}
	}
	var out []Violation
	for _, c := range ve.Causes {
		out = append(out, flatten(c)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func invalid(vs ...Violation) ValidationResult {
	return ValidationResult{Valid: false, Violations: vs}
}
