package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormType(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   FormType
		wantOK bool
	}{
		{name: "exact match", input: "6-5", want: Form65, wantOK: true},
		{name: "surrounding whitespace", input: "  7-3-5 ", want: Form735, wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "unknown", input: "9-9", wantOK: false},
		{name: "no partial match", input: "6-5-1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFormType(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormTypesOrder(t *testing.T) {
	assert.Equal(t, []string{"6-5", "6-2-5", "7-5", "7-3-5"}, FormTypes())
}

func TestAIColumnsOrder(t *testing.T) {
	want := []string{
		"payee_name",
		"payee_address",
		"payment_date_extracted",
		"payment_purpose",
		"validity_score",
		"validity_reason",
		"transparency_score",
		"alternative_suggestion",
		"news_value_potential_score",
		"news_value_potential_score_reason",
		"business_type",
		"website",
		"payee_detail",
	}
	assert.Equal(t, want, AIColumns())
}

func TestCanonicalizeAIColumn(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   AIColumn
		wantOK bool
	}{
		{name: "bare name", input: "payee_name", want: AIPayeeName, wantOK: true},
		{name: "prefixed name", input: "AI__validity_score", want: AIValidityScore, wantOK: true},
		{name: "mixed case", input: "Business_Type", want: AIBusinessType, wantOK: true},
		{name: "whitespace", input: " website ", want: AIWebsite, wantOK: true},
		{name: "unknown", input: "payee_rating", wantOK: false},
		{name: "prefix only", input: "AI__", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalizeAIColumn(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormatForExt(t *testing.T) {
	assert.Equal(t, "PDF", FormatForExt(".pdf"))
	assert.Equal(t, "PDF", FormatForExt("PDF"))
	assert.Equal(t, "IMAGE", FormatForExt(".jpg"))
	assert.Equal(t, "IMAGE", FormatForExt("tiff"))
}
