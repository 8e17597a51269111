package bulletin

import "github.com/joseph-ayodele/price-bulletin/constants"

// Schema returns the JSON Schema (draft 2020-12) every published bulletin must
// satisfy.
func Schema() map[string]any {
	number := func(extra map[string]any) map[string]any {
		m := map[string]any{"type": "number"}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	nonEmpty := map[string]any{"type": "string", "minLength": 1}

	product := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []string{
			"id", "name", "unit", "priceMin", "priceMax", "mode",
			"average", "volatilityIndex", "category",
		},
		"properties": map[string]any{
			"id":              map[string]any{"type": "string", "pattern": `^prod-[0-9]+$`},
			"name":            nonEmpty,
			"unit":            nonEmpty,
			"priceMin":        number(map[string]any{"exclusiveMinimum": 0}),
			"priceMax":        number(map[string]any{"exclusiveMinimum": 0}),
			"mode":            number(map[string]any{"exclusiveMinimum": 0}),
			"average":         number(map[string]any{"exclusiveMinimum": 0}),
			"pricePerKilo":    number(map[string]any{"exclusiveMinimum": 0}),
			"volatilityIndex": number(map[string]any{"minimum": 0}),
			"category": map[string]any{
				"type": "string",
				"enum": constants.AsStringSlice(),
			},
			"weightKg": map[string]any{"type": "integer", "exclusiveMinimum": 0},
		},
		"dependentRequired": map[string]any{
			"weightKg":     []string{"pricePerKilo"},
			"pricePerKilo": []string{"weightKg"},
		},
	}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"date", "source", "products"},
		"properties": map[string]any{
			"date":   nonEmpty,
			"source": map[string]any{"type": "string", "const": constants.Source},
			"products": map[string]any{
				"type":  "array",
				"items": product,
			},
		},
	}
}
