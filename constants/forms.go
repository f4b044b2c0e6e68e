package constants

import "strings"

// FormType identifies one of the supported political-fund report forms.
type FormType string

const (
	Form65  FormType = "6-5"   // expenditure itemization
	Form625 FormType = "6-2-5" // expenditure itemization, branch offices
	Form75  FormType = "7-5"   // political activity expenses
	Form735 FormType = "7-3-5" // political activity expenses, branch offices
)

var allFormTypes = []FormType{
	Form65,
	Form625,
	Form75,
	Form735,
}

// FormTypes returns the supported form types in declaration order.
func FormTypes() []string {
	result := make([]string, len(allFormTypes))
	for i, ft := range allFormTypes {
		result[i] = string(ft)
	}
	return result
}

// ParseFormType canonicalizes user input into a FormType.
func ParseFormType(input string) (FormType, bool) {
	normalized := strings.TrimSpace(input)
	if normalized == "" {
		return "", false
	}

	for _, ft := range allFormTypes {
		if normalized == string(ft) {
			return ft, true
		}
	}

	return "", false
}
