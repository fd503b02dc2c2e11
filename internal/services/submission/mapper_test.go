package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

func TestMapFieldValue_ExactNameMatch(t *testing.T) {
	field := domain.DetectedField{Name: "your_email", Type: domain.FieldTypeText}
	bag := map[string]string{"your_email": "a@b.com", "email": "other@b.com"}

	got, ok := mapFieldValue(field, bag)

	assert.True(t, ok)
	assert.Equal(t, "a@b.com", got)
}

func TestMapFieldValue_LabelKeywordGroups(t *testing.T) {
	bag := map[string]string{
		"company_name": "Acme",
		"contact_name": "Yamada",
		"email":        "a@b.com",
		"phone":        "03-1234-5678",
		"message":      "hello",
	}

	tests := []struct {
		label string
		want  string
	}{
		{"会社名", "Acme"},
		{"Company Name", "Acme"},
		{"お名前", "Yamada"},
		{"ご担当者", "Yamada"},
		{"メールアドレス", "a@b.com"},
		{"電話番号", "03-1234-5678"},
		{"お問い合わせ内容", "hello"},
		{"Message", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			field := domain.DetectedField{Name: "f1", Type: domain.FieldTypeText, Label: tt.label}
			got, ok := mapFieldValue(field, bag)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapFieldValue_TypeFallbackWithoutLabel(t *testing.T) {
	bag := map[string]string{"email": "a@b.com", "phone": "123", "message": "hi"}

	tests := []struct {
		fieldType domain.FieldType
		want      string
	}{
		{domain.FieldTypeEmail, "a@b.com"},
		{domain.FieldTypeTel, "123"},
		{domain.FieldTypeTextarea, "hi"},
	}

	for _, tt := range tests {
		field := domain.DetectedField{Name: "f1", Type: tt.fieldType}
		got, ok := mapFieldValue(field, bag)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got)
	}
}

func TestMapFieldValue_NothingResolves(t *testing.T) {
	field := domain.DetectedField{Name: "favorite_color", Type: domain.FieldTypeText}
	bag := map[string]string{"email": "a@b.com"}

	_, ok := mapFieldValue(field, bag)
	assert.False(t, ok)
}

func TestMapFieldValue_LabelMatchWinsOverTypeFallback(t *testing.T) {
	// Label points at phone even though the type fallback would pick email.
	field := domain.DetectedField{Name: "f1", Type: domain.FieldTypeEmail, Label: "電話番号"}
	bag := map[string]string{"email": "a@b.com", "phone": "123"}

	got, ok := mapFieldValue(field, bag)

	assert.True(t, ok)
	assert.Equal(t, "123", got)
}

func TestMapFieldValue_LabelMatchWithMissingBagKey(t *testing.T) {
	// A matched label group with no bag entry resolves to nothing rather than
	// falling through to the type fallback.
	field := domain.DetectedField{Name: "f1", Type: domain.FieldTypeEmail, Label: "会社名"}
	bag := map[string]string{"email": "a@b.com"}

	_, ok := mapFieldValue(field, bag)
	assert.False(t, ok)
}
