package submission

import (
	"strings"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// labelKeywordGroups map label substrings to canonical data bag keys.
// Checked in order; within a group any keyword hit resolves to its key.
var labelKeywordGroups = []struct {
	bagKey   string
	keywords []string
}{
	{"company_name", []string{"会社名", "企業名", "company", "corporation"}},
	{"contact_name", []string{"名前", "お名前", "担当者", "name", "contact"}},
	{"email", []string{"メール", "email", "mail"}},
	{"phone", []string{"電話", "tel", "phone"}},
	{"message", []string{"内容", "メッセージ", "問い合わせ", "message", "inquiry", "content"}},
}

// mapFieldValue resolves the value to fill into a field from the data bag.
// Resolution order: exact field name match, label keyword match, then
// semantic type fallback. Returns ok=false when nothing resolves.
func mapFieldValue(field domain.DetectedField, bag map[string]string) (string, bool) {
	if v, ok := bag[field.Name]; ok {
		return v, true
	}

	if field.Label != "" {
		labelLower := strings.ToLower(field.Label)
		for _, group := range labelKeywordGroups {
			for _, kw := range group.keywords {
				if strings.Contains(labelLower, kw) {
					v, ok := bag[group.bagKey]
					return v, ok
				}
			}
		}
	}

	switch field.Type {
	case domain.FieldTypeEmail:
		v, ok := bag["email"]
		return v, ok
	case domain.FieldTypeTel:
		v, ok := bag["phone"]
		return v, ok
	case domain.FieldTypeTextarea:
		v, ok := bag["message"]
		return v, ok
	}

	return "", false
}
