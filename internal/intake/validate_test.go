package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/productreg/internal/domain"
)

var oneFile = []domain.StagedFile{{Name: "a.jpg", MediaType: "image/jpeg", StorageKey: "k"}}

func validForm() domain.FormRecord {
	return domain.FormRecord{
		Category:      "Utensils and Gadgets",
		Model:         "Model 4004",
		SerialNumber:  "abc123XYZ",
		DateOfInvoice: "2024-03-05",
	}
}

func TestValidateValidForm(t *testing.T) {
	assert.True(t, Validate(validForm(), oneFile).Empty())
}

func TestValidateReportsExactlyMissingFields(t *testing.T) {
	required := map[string]string{
		domain.FieldCategory:      "Category is required",
		domain.FieldModel:         "Model is required",
		domain.FieldSerialNumber:  "Serial number is required",
		domain.FieldDateOfInvoice: "Date of Invoice is required",
	}
	clear := map[string]func(*domain.FormRecord){
		domain.FieldCategory:      func(f *domain.FormRecord) { f.Category = "" },
		domain.FieldModel:         func(f *domain.FormRecord) { f.Model = "" },
		domain.FieldSerialNumber:  func(f *domain.FormRecord) { f.SerialNumber = "" },
		domain.FieldDateOfInvoice: func(f *domain.FormRecord) { f.DateOfInvoice = "" },
	}
	fields := []string{domain.FieldCategory, domain.FieldModel, domain.FieldSerialNumber, domain.FieldDateOfInvoice}

	// Every non-empty subset of the four fields.
	for mask := 1; mask < 1<<len(fields); mask++ {
		form := validForm()
		want := ValidationErrors{}
		for i, name := range fields {
			if mask&(1<<i) != 0 {
				clear[name](&form)
				want[name] = required[name]
			}
		}
		got := Validate(form, oneFile)
		assert.Equal(t, want, got, "mask %04b", mask)
	}
}

func TestValidateSerialNumberPattern(t *testing.T) {
	for _, sn := range []string{"SN-1", "abc 123", "a_b", "über1", "12.3", "!"} {
		form := validForm()
		form.SerialNumber = sn
		errs := Validate(form, oneFile)
		assert.Equal(t, ValidationErrors{domain.FieldSerialNumber: "Special Character not allowed"}, errs, sn)
	}
}

func TestValidateRequiresFiles(t *testing.T) {
	errs := Validate(validForm(), nil)
	assert.Equal(t, ValidationErrors{domain.FieldFiles: "At least one file must be uploaded"}, errs)
}

func TestValidateCollectsAllRules(t *testing.T) {
	form := domain.FormRecord{SerialNumber: "bad#sn"}
	errs := Validate(form, nil)

	assert.Equal(t, ValidationErrors{
		domain.FieldCategory:      "Category is required",
		domain.FieldModel:         "Model is required",
		domain.FieldSerialNumber:  "Special Character not allowed",
		domain.FieldDateOfInvoice: "Date of Invoice is required",
		domain.FieldFiles:         "At least one file must be uploaded",
	}, errs)
}

func TestValidateClosedSets(t *testing.T) {
	form := validForm()
	form.Category = "Garden"
	form.Model = "Model 9999"
	form.DateOfInvoice = "05/03/2024"

	errs := Validate(form, oneFile)
	assert.Equal(t, "Select a valid category", errs[domain.FieldCategory])
	assert.Equal(t, "Select a valid model", errs[domain.FieldModel])
	assert.Equal(t, "Date of Invoice must be a valid date", errs[domain.FieldDateOfInvoice])
}

func TestValidateAcceptsEveryListedOption(t *testing.T) {
	for _, cat := range domain.Categories[1:] {
		for _, model := range domain.Models[1:] {
			form := validForm()
			form.Category = cat.Value
			form.Model = model.Value
			assert.True(t, Validate(form, oneFile).Empty(), "%s / %s", cat.Value, model.Value)
		}
	}
}
