// Package formtype maps form-type identifiers to their OCR model ids and
// expected field sets. The per-form schemas are data, not code: adding a
// form means adding a table entry.
package formtype

import (
	"fmt"
	"strings"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/common"
)

// ReceiptAreaField names the OCR field whose bounding regions mark receipt
// sub-images on a page. It is consumed by receipt extraction and never
// emitted as an output column.
const ReceiptAreaField = "receipt_area"

// Definition describes one supported form: its output fields in column
// order.
type Definition struct {
	Type   constants.FormType
	Fields []string
}

var definitions = map[constants.FormType]Definition{
	constants.Form65: {
		Type: constants.Form65,
		Fields: []string{
			"item", "amount", "date",
			"payee_name", "payee_address", "purpose", "notes",
		},
	},
	constants.Form625: {
		Type: constants.Form625,
		Fields: []string{
			"item", "amount", "date",
			"payee_name", "payee_address", "purpose", "branch_name", "notes",
		},
	},
	constants.Form75: {
		Type: constants.Form75,
		Fields: []string{
			"activity_type", "item", "amount", "date",
			"payee_name", "payee_address", "purpose", "notes",
		},
	},
	constants.Form735: {
		Type: constants.Form735,
		Fields: []string{
			"activity_type", "item", "amount", "date",
			"payee_name", "payee_address", "purpose", "branch_name", "notes",
		},
	},
}

// Registry resolves form-type input to a schema definition and the OCR
// model id configured for it.
type Registry struct {
	models map[constants.FormType]string
}

// NewRegistry builds a registry over the configured model mapping. Form
// types absent from the mapping are still resolvable to a definition but
// fail ModelID.
func NewRegistry(models map[constants.FormType]string) *Registry {
	if models == nil {
		models = map[constants.FormType]string{}
	}
	return &Registry{models: models}
}

// Definition resolves raw form-type input to its schema definition.
func (r *Registry) Definition(input string) (Definition, error) {
	ft, ok := constants.ParseFormType(input)
	if !ok {
		msg := fmt.Sprintf("unknown form type %q (supported: %s)",
			input, strings.Join(constants.FormTypes(), ", "))
		return Definition{}, common.NewAppError("FORM_TYPE_ERROR", msg, common.ErrUnknownFormType)
	}
	return definitions[ft], nil
}

// ModelID returns the OCR model id configured for a form type.
func (r *Registry) ModelID(ft constants.FormType) (string, error) {
	model, ok := r.models[ft]
	if !ok || model == "" {
		msg := fmt.Sprintf("form type %s has no OCR model id (set MODEL_ID_FORM_%s or model_mapping)",
			ft, strings.ReplaceAll(string(ft), "-", "_"))
		return "", common.NewAppError("FORM_TYPE_ERROR", msg, common.ErrModelMissing)
	}
	return model, nil
}

// Resolve combines Definition and ModelID for one form-type input.
func (r *Registry) Resolve(input string) (Definition, string, error) {
	def, err := r.Definition(input)
	if err != nil {
		return Definition{}, "", err
	}
	model, err := r.ModelID(def.Type)
	if err != nil {
		return Definition{}, "", err
	}
	return def, model, nil
}
