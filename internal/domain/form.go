package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the semantic classification of a form control, independent of
// its HTML tag.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTel      FieldType = "tel"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeTel, FieldTypeTextarea,
		FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	}
	return false
}

// DetectedField describes one control of a detected form.
type DetectedField struct {
	Name     string    `json:"name" db:"name"`
	Type     FieldType `json:"field_type" db:"field_type"`
	Selector string    `json:"selector" db:"selector"`
	Label    string    `json:"label,omitempty" db:"label"`
	Required bool      `json:"required" db:"required"`
	Options  []string  `json:"options,omitempty" db:"options"`
}

// DetectedForm is the structural description of a located inquiry form. It is
// produced by the analyzer, persisted, and read back unchanged by the
// submission driver.
type DetectedForm struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	CompanyID      uuid.UUID       `json:"company_id" db:"company_id"`
	FormURL        string          `json:"form_url" db:"form_url"`
	Fields         []DetectedField `json:"fields"`
	SubmitSelector string          `json:"submit_selector" db:"submit_selector"`
	HasCaptcha     bool            `json:"has_captcha" db:"has_captcha"`
	DetectedAt     time.Time       `json:"detected_at" db:"detected_at"`
}

// NewDetectedForm creates a form record with a fresh ID and timestamp.
func NewDetectedForm(companyID uuid.UUID, formURL string) *DetectedForm {
	return &DetectedForm{
		ID:         uuid.New(),
		CompanyID:  companyID,
		FormURL:    formURL,
		DetectedAt: time.Now().UTC(),
	}
}

// Validate checks the invariants a stored form must satisfy. Forms with fewer
// than two fields are rejected at analysis time and must never be persisted.
func (f *DetectedForm) Validate() error {
	if f.FormURL == "" {
		return ValidationError("form_url", "form URL is required")
	}
	if len(f.Fields) < 2 {
		return ValidationError("fields", "a detected form needs at least 2 fields")
	}
	for _, fld := range f.Fields {
		if !fld.Type.IsValid() {
			return ValidationError("fields", "unknown field type: "+string(fld.Type))
		}
		if fld.Selector == "" {
			return ValidationError("fields", "field "+fld.Name+" has no selector")
		}
	}
	return nil
}

// Field returns the field with the given name, if present.
func (f *DetectedForm) Field(name string) (DetectedField, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return DetectedField{}, false
}

// RequiredFields returns the subset of fields marked required, in order.
func (f *DetectedForm) RequiredFields() []DetectedField {
	var out []DetectedField
	for _, fld := range f.Fields {
		if fld.Required {
			out = append(out, fld)
		}
	}
	return out
}
