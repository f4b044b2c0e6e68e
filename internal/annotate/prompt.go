package annotate

import (
	"encoding/json"
	"strings"
)

// buildInstruction is the fixed instruction sent with every receipt crop.
func buildInstruction() string {
	parts := []string{
		"You are an auditor reading one receipt image from a Japanese political fund report.",
		"Return ONLY JSON that matches the JSON Schema provided.",
		"Every field is optional: omit any field you cannot read from the image. Never output null.",
		"Put the payment date in 'payment_date_extracted' as ISO-8601 (YYYY-MM-DD) when determinable.",
		"'validity_score', 'transparency_score' and 'news_value_potential_score' are numbers between 0.0 and 1.0.",
		"'validity_score' rates whether this looks like a legitimate receipt for the stated purpose; explain briefly in 'validity_reason'.",
		"'transparency_score' rates how completely the receipt discloses the spend.",
		"'news_value_potential_score' rates how newsworthy the spend would be to a reader of political fund reports; explain briefly in 'news_value_potential_score_reason'.",
		"'alternative_suggestion' names a cheaper or more transparent alternative for the spend, if one is apparent.",
		"'business_type' is a short label for the payee's line of business, 'website' its URL if printed, 'payee_detail' a one-line description of the payee.",
		"Reason texts should be short Japanese sentences.",
	}
	return strings.Join(parts, " ")
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
