package annotate

// BuildAnnotationJSONSchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map. We pass this to the vision model as a structured output
// constraint and also use it locally to validate both providers.
func BuildAnnotationJSONSchema() map[string]any {
	props := map[string]any{
		"payee_name":                        map[string]any{"type": "string"},
		"payee_address":                     map[string]any{"type": "string"},
		"payment_date_extracted":            map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"payment_purpose":                   map[string]any{"type": "string"},
		"validity_score":                    scoreProp(),
		"validity_reason":                   map[string]any{"type": "string"},
		"transparency_score":                scoreProp(),
		"alternative_suggestion":            map[string]any{"type": "string"},
		"news_value_potential_score":        scoreProp(),
		"news_value_potential_score_reason": map[string]any{"type": "string"},
		"business_type":                     map[string]any{"type": "string"},
		"website":                           map[string]any{"type": "string"},
		"payee_detail":                      map[string]any{"type": "string"},
	}

	// every field is optional; absence means "could not determine"
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func scoreProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}
