package intake

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/productreg/internal/domain"
)

// ValidationErrors maps a field name to a user-facing message. A missing key
// or an empty message means the field is valid.
type ValidationErrors map[string]string

// Has reports whether field currently carries a message.
func (e ValidationErrors) Has(field string) bool {
	return e[field] != ""
}

// Empty reports whether no field carries a message.
func (e ValidationErrors) Empty() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

func (e ValidationErrors) clone() ValidationErrors {
	out := make(ValidationErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

const (
	msgFileTypes    = "Only image files (jpg, png, gif) are allowed"
	msgFileRequired = "At least one file must be uploaded"
	msgFileStorage  = "The files could not be stored, please try again"
)

// fieldNames maps FormRecord struct fields to their form/wire names.
var fieldNames = map[string]string{
	"Category":      domain.FieldCategory,
	"Model":         domain.FieldModel,
	"SerialNumber":  domain.FieldSerialNumber,
	"DateOfInvoice": domain.FieldDateOfInvoice,
}

// messages maps a form field and the failing validator tag to its message.
// validator stops at the first failing tag of a field, so "required" and the
// format checks never report together.
var messages = map[string]map[string]string{
	domain.FieldCategory: {
		"required": "Category is required",
		"oneof":    "Select a valid category",
	},
	domain.FieldModel: {
		"required": "Model is required",
		"oneof":    "Select a valid model",
	},
	domain.FieldSerialNumber: {
		"required": "Serial number is required",
		"alphanum": "Special Character not allowed",
	},
	domain.FieldDateOfInvoice: {
		"required": "Date of Invoice is required",
		"datetime": "Date of Invoice must be a valid date",
	},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks form and the staged files and returns every failing rule.
// It never short-circuits across fields.
func Validate(form domain.FormRecord, files []domain.StagedFile) ValidationErrors {
	errs := ValidationErrors{}

	var fieldErrs validator.ValidationErrors
	if err := validate.Struct(form); errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			name := fieldNames[fe.StructField()]
			msg, ok := messages[name][fe.Tag()]
			if !ok {
				msg = fe.Error()
			}
			errs[name] = msg
		}
	}

	if len(files) == 0 {
		errs[domain.FieldFiles] = msgFileRequired
	}
	return errs
}
