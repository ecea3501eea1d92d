package domain

import "time"

// Field names as they appear in form posts, validation errors and on the wire.
const (
	FieldCategory      = "category"
	FieldModel         = "model"
	FieldSerialNumber  = "sNumber"
	FieldDateOfInvoice = "dateOfInvoice"
	FieldFiles         = "files"
)

// Option is one entry of a closed select list. The entry with an empty Value
// is the "unselected" sentinel.
type Option struct {
	Value string
	Label string
}

var Categories = []Option{
	{Value: "", Label: "Select Category"},
	{Value: "Cookware", Label: "Cookware"},
	{Value: "Utensils and Gadgets", Label: "Utensils and Gadgets"},
	{Value: "Storage", Label: "Storage"},
	{Value: "Dinnerware", Label: "Dinnerware"},
	{Value: "Cleaning", Label: "Cleaning"},
	{Value: "Tools", Label: "Tools"},
}

var Models = []Option{
	{Value: "", Label: "Select Model"},
	{Value: "Model 1001", Label: "Model 1001"},
	{Value: "Model 2002", Label: "Model 2002"},
	{Value: "Model 3003", Label: "Model 3003"},
	{Value: "Model 4004", Label: "Model 4004"},
}

// AllowedMediaTypes is the set of media types accepted for staged files.
var AllowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// FormRecord is the product registration being edited in an intake session.
// DateOfInvoice is kept as the ISO string the date input produces.
type FormRecord struct {
	Category      string `validate:"required,oneof=Cookware 'Utensils and Gadgets' Storage Dinnerware Cleaning Tools"`
	Model         string `validate:"required,oneof='Model 1001' 'Model 2002' 'Model 3003' 'Model 4004'"`
	SerialNumber  string `validate:"required,alphanum"`
	DateOfInvoice string `validate:"required,datetime=2006-01-02"`
}

// StagedFile is an attachment accepted into an intake session. The binary
// lives in a stage store under StorageKey.
type StagedFile struct {
	Name       string
	MediaType  string
	Size       int64
	StorageKey string
	StagedAt   time.Time
}

// Record is the wire shape shared by the register and getdata endpoints.
type Record struct {
	Category      string `json:"category" binding:"required"`
	Model         string `json:"model" binding:"required"`
	SNumber       string `json:"sNumber" binding:"required"`
	DateOfInvoice string `json:"dateOfInvoice" binding:"required"`
}

// ToRecord maps the form onto the wire shape, renaming SerialNumber to sNumber.
func (f FormRecord) ToRecord() Record {
	return Record{
		Category:      f.Category,
		Model:         f.Model,
		SNumber:       f.SerialNumber,
		DateOfInvoice: f.DateOfInvoice,
	}
}

// SubmittedRecord is a read-only row of the listing. DateOfInvoice holds the
// display form once the listing has formatted it.
type SubmittedRecord struct {
	Category      string
	Model         string
	SNumber       string
	DateOfInvoice string
}
