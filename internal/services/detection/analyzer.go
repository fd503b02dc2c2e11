package detection

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// minFormControls is the noise filter: forms with fewer input-like controls
// are decorative or single-purpose (search boxes) and are rejected.
const minFormControls = 2

// Analyzer extracts structured form descriptions from a loaded page.
type Analyzer struct {
	logger *zap.Logger
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// AnalyzeFormsOnPage describes every qualifying form on the page. A failure
// analyzing one form or one field skips only that unit.
func (a *Analyzer) AnalyzeFormsOnPage(page playwright.Page, pageURL string) []*domain.DetectedForm {
	formElements, err := page.Locator("form").All()
	if err != nil {
		a.logger.Warn("listing form elements failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	var forms []*domain.DetectedForm
	for i, formEl := range formElements {
		form, err := a.analyzeSingleForm(page, formEl, pageURL)
		if err != nil {
			a.logger.Warn("form analysis failed",
				zap.String("url", pageURL),
				zap.Int("form_index", i),
				zap.Error(err),
			)
			continue
		}
		if form != nil {
			forms = append(forms, form)
		}
	}
	return forms
}

// AnalyzeFirstForm returns the first qualifying form on the page, or nil.
func (a *Analyzer) AnalyzeFirstForm(page playwright.Page, pageURL string) *domain.DetectedForm {
	forms := a.AnalyzeFormsOnPage(page, pageURL)
	if len(forms) == 0 {
		return nil
	}
	return forms[0]
}

func (a *Analyzer) analyzeSingleForm(page playwright.Page, formEl playwright.Locator, pageURL string) (*domain.DetectedForm, error) {
	controls, err := formEl.Locator("input, textarea, select").All()
	if err != nil {
		return nil, fmt.Errorf("listing form controls: %w", err)
	}
	if len(controls) < minFormControls {
		return nil, nil
	}

	var fields []domain.DetectedField
	for _, control := range controls {
		field, err := a.analyzeField(page, control)
		if err != nil {
			a.logger.Debug("field analysis failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		fields = append(fields, field)
	}

	submitSelector := ""
	if submit := findSubmitControl(formEl); submit != nil {
		submitSelector = buildSelectorFor(submit)
	}

	form := &domain.DetectedForm{
		FormURL:        pageURL,
		Fields:         fields,
		SubmitSelector: submitSelector,
		HasCaptcha:     detectCaptcha(formEl, page),
		DetectedAt:     time.Now().UTC(),
	}
	return form, nil
}

func (a *Analyzer) analyzeField(page playwright.Page, control playwright.Locator) (domain.DetectedField, error) {
	tagName, err := control.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return domain.DetectedField{}, fmt.Errorf("reading tag name: %w", err)
	}
	tag, _ := tagName.(string)

	typeAttr := attrOrEmpty(control, "type")
	name := attrOrEmpty(control, "name")
	id := attrOrEmpty(control, "id")
	placeholder := attrOrEmpty(control, "placeholder")

	required := false
	if v, err := control.Evaluate("el => el.required", nil); err == nil {
		required, _ = v.(bool)
	}

	label := findFieldLabel(page, control, id)
	fieldType := determineFieldType(tag, typeAttr, name, id, placeholder, label)
	selector := buildSelectorFor(control)

	var options []string
	if tag == "select" {
		optionEls, err := control.Locator("option").All()
		if err == nil {
			for _, opt := range optionEls {
				if text, err := opt.TextContent(); err == nil {
					trimmed := strings.TrimSpace(text)
					if trimmed != "" {
						options = append(options, trimmed)
					}
				}
			}
		}
	}

	fieldName := name
	if fieldName == "" {
		fieldName = id
	}
	if fieldName == "" {
		fieldName = "field_" + selector
	}

	return domain.DetectedField{
		Name:     fieldName,
		Type:     fieldType,
		Selector: selector,
		Label:    label,
		Required: required,
		Options:  options,
	}, nil
}

// findFieldLabel resolves a control's label by priority: aria-label, a label
// bound by for=id, an ancestor label, then the immediately preceding sibling
// when its text is short. First match wins.
func findFieldLabel(page playwright.Page, control playwright.Locator, id string) string {
	if aria := attrOrEmpty(control, "aria-label"); aria != "" {
		return strings.TrimSpace(aria)
	}

	if id != "" {
		if text, err := page.Locator(fmt.Sprintf("label[for='%s']", id)).TextContent(); err == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed
			}
		}
	}

	if text, err := control.Locator("xpath=ancestor::label[1]").TextContent(); err == nil {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}

	if text, err := control.Locator("xpath=preceding-sibling::*[1]").TextContent(); err == nil {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" && len(trimmed) < 50 {
			return trimmed
		}
	}

	return ""
}

// determineFieldType classifies a control. Tag names win, then the explicit
// type attribute, then keyword inference over the combined attribute text,
// then text as the default.
func determineFieldType(tag, typeAttr, name, id, placeholder, label string) domain.FieldType {
	if tag == "textarea" {
		return domain.FieldTypeTextarea
	}
	if tag == "select" {
		return domain.FieldTypeSelect
	}

	switch strings.ToLower(typeAttr) {
	case "email":
		return domain.FieldTypeEmail
	case "tel", "phone":
		return domain.FieldTypeTel
	case "radio":
		return domain.FieldTypeRadio
	case "checkbox":
		return domain.FieldTypeCheckbox
	}

	var parts []string
	for _, p := range []string{typeAttr, name, id, placeholder, label} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	combined := strings.ToLower(strings.Join(parts, " "))

	for _, entry := range fieldTypePatterns {
		if entry.pattern.MatchString(combined) {
			return entry.fieldType
		}
	}

	return domain.FieldTypeText
}

// buildSelector derives a stored selector by priority: id, name, first CSS
// class, type attribute, then the bare tag.
func buildSelector(id, name, class, typeAttr, tag string) string {
	if id != "" {
		return "#" + id
	}
	if name != "" {
		return fmt.Sprintf("[name='%s']", name)
	}
	if class != "" {
		if classes := strings.Fields(class); len(classes) > 0 {
			return "." + classes[0]
		}
	}
	if typeAttr != "" {
		return fmt.Sprintf("input[type='%s']", typeAttr)
	}
	if tag != "" {
		return tag
	}
	return "input"
}

func buildSelectorFor(control playwright.Locator) string {
	tag := ""
	if v, err := control.Evaluate("el => el.tagName.toLowerCase()", nil); err == nil {
		tag, _ = v.(string)
	}
	return buildSelector(
		attrOrEmpty(control, "id"),
		attrOrEmpty(control, "name"),
		attrOrEmpty(control, "class"),
		attrOrEmpty(control, "type"),
		tag,
	)
}

// findSubmitControl searches a form by priority: an explicit type=submit
// control, a button whose text matches the submit keywords, then an input
// whose value attribute does.
func findSubmitControl(formEl playwright.Locator) playwright.Locator {
	explicit := formEl.Locator("input[type='submit'], button[type='submit']")
	if count, err := explicit.Count(); err == nil && count > 0 {
		return explicit.First()
	}

	if buttons, err := formEl.Locator("button").All(); err == nil {
		for _, button := range buttons {
			if text, err := button.TextContent(); err == nil && matchesSubmitKeyword(text) {
				return button
			}
		}
	}

	if inputs, err := formEl.Locator("input").All(); err == nil {
		for _, input := range inputs {
			if value, err := input.GetAttribute("value"); err == nil && matchesSubmitKeyword(value) {
				return input
			}
		}
	}

	return nil
}

func matchesSubmitKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range submitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// detectCaptcha checks the CAPTCHA fingerprints inside the form and page
// wide. Mere presence counts here; visibility is re-checked at submit time.
func detectCaptcha(formEl playwright.Locator, page playwright.Page) bool {
	for _, selector := range recaptchaSelectors {
		if count, err := formEl.Locator(selector).Count(); err == nil && count > 0 {
			return true
		}
	}
	for _, selector := range recaptchaSelectors {
		if count, err := page.Locator(selector).Count(); err == nil && count > 0 {
			return true
		}
	}
	return false
}

func attrOrEmpty(l playwright.Locator, name string) string {
	v, err := l.GetAttribute(name)
	if err != nil {
		return ""
	}
	return v
}
