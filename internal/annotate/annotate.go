// Package annotate sends cropped receipt images to a vision model and
// parses the response into the fixed annotation record.
package annotate

import (
	"context"
	"strconv"

	"github.com/polifund/fundscan/constants"
)

// Annotation is the vision model's reading of one receipt. Nil means the
// model could not determine that attribute; that is data, not a failure.
type Annotation struct {
	PayeeName         *string  `json:"payee_name,omitempty"`
	PayeeAddress      *string  `json:"payee_address,omitempty"`
	PaymentDate       *string  `json:"payment_date_extracted,omitempty"`
	PaymentPurpose    *string  `json:"payment_purpose,omitempty"`
	ValidityScore     *float64 `json:"validity_score,omitempty"`
	ValidityReason    *string  `json:"validity_reason,omitempty"`
	TransparencyScore *float64 `json:"transparency_score,omitempty"`
	Alternative       *string  `json:"alternative_suggestion,omitempty"`
	NewsValueScore    *float64 `json:"news_value_potential_score,omitempty"`
	NewsValueReason   *string  `json:"news_value_potential_score_reason,omitempty"`
	BusinessType      *string  `json:"business_type,omitempty"`
	Website           *string  `json:"website,omitempty"`
	PayeeDetail       *string  `json:"payee_detail,omitempty"`
}

// Value renders the output cell for one canonical column. A nil receiver
// stands for a missing annotation and yields empty cells throughout.
func (a *Annotation) Value(col constants.AIColumn) string {
	if a == nil {
		return ""
	}
	switch col {
	case constants.AIPayeeName:
		return strVal(a.PayeeName)
	case constants.AIPayeeAddress:
		return strVal(a.PayeeAddress)
	case constants.AIPaymentDate:
		return strVal(a.PaymentDate)
	case constants.AIPaymentPurpose:
		return strVal(a.PaymentPurpose)
	case constants.AIValidityScore:
		return scoreVal(a.ValidityScore)
	case constants.AIValidityReason:
		return strVal(a.ValidityReason)
	case constants.AITransparencyScore:
		return scoreVal(a.TransparencyScore)
	case constants.AIAlternative:
		return strVal(a.Alternative)
	case constants.AINewsValueScore:
		return scoreVal(a.NewsValueScore)
	case constants.AINewsValueReason:
		return strVal(a.NewsValueReason)
	case constants.AIBusinessType:
		return strVal(a.BusinessType)
	case constants.AIWebsite:
		return strVal(a.Website)
	case constants.AIPayeeDetail:
		return strVal(a.PayeeDetail)
	}
	return ""
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func scoreVal(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// Provider is one vision backend. It returns the raw JSON document for a
// receipt crop; parsing and sanitation happen in the Service.
type Provider interface {
	Name() string
	Model() string
	Annotate(ctx context.Context, imageJPEG []byte) ([]byte, error)
}
