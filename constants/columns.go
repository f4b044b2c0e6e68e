package constants

import "strings"

// AIColumn names one annotation field produced by the vision stage.
type AIColumn string

// The full annotation column set. Output order follows this declaration order
// regardless of how a selection names them.
const (
	AIPayeeName            AIColumn = "payee_name"
	AIPayeeAddress         AIColumn = "payee_address"
	AIPaymentDate          AIColumn = "payment_date_extracted"
	AIPaymentPurpose       AIColumn = "payment_purpose"
	AIValidityScore        AIColumn = "validity_score"
	AIValidityReason       AIColumn = "validity_reason"
	AITransparencyScore    AIColumn = "transparency_score"
	AIAlternative          AIColumn = "alternative_suggestion"
	AINewsValueScore       AIColumn = "news_value_potential_score"
	AINewsValueReason      AIColumn = "news_value_potential_score_reason"
	AIBusinessType         AIColumn = "business_type"
	AIWebsite              AIColumn = "website"
	AIPayeeDetail          AIColumn = "payee_detail"
)

// AIColumnPrefix namespaces annotation columns in the output so they never
// collide with OCR-native field names.
const AIColumnPrefix = "AI__"

var allAIColumns = []AIColumn{
	AIPayeeName,
	AIPayeeAddress,
	AIPaymentDate,
	AIPaymentPurpose,
	AIValidityScore,
	AIValidityReason,
	AITransparencyScore,
	AIAlternative,
	AINewsValueScore,
	AINewsValueReason,
	AIBusinessType,
	AIWebsite,
	AIPayeeDetail,
}

// AIColumns returns the annotation column names in canonical order.
func AIColumns() []string {
	result := make([]string, len(allAIColumns))
	for i, col := range allAIColumns {
		result[i] = string(col)
	}
	return result
}

// CanonicalizeAIColumn resolves user input (with or without the output
// prefix, any case) to a canonical column name.
func CanonicalizeAIColumn(input string) (AIColumn, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimPrefix(normalized, strings.ToLower(AIColumnPrefix))
	if normalized == "" {
		return "", false
	}

	for _, col := range allAIColumns {
		if normalized == string(col) {
			return col, true
		}
	}

	return "", false
}
