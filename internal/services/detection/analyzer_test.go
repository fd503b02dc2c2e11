package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

func TestDetermineFieldType(t *testing.T) {
	tests := []struct {
		name        string
		tag         string
		typeAttr    string
		fieldName   string
		id          string
		placeholder string
		label       string
		want        domain.FieldType
	}{
		{
			name: "textarea tag wins over everything",
			tag:  "textarea", typeAttr: "text", fieldName: "email",
			want: domain.FieldTypeTextarea,
		},
		{
			name: "select tag",
			tag:  "select",
			want: domain.FieldTypeSelect,
		},
		{
			name: "email type attribute regardless of name",
			tag:  "input", typeAttr: "email", fieldName: "telephone",
			want: domain.FieldTypeEmail,
		},
		{
			name: "tel type attribute",
			tag:  "input", typeAttr: "tel",
			want: domain.FieldTypeTel,
		},
		{
			name: "phone counts as tel type attribute",
			tag:  "input", typeAttr: "phone",
			want: domain.FieldTypeTel,
		},
		{
			name: "radio type attribute",
			tag:  "input", typeAttr: "radio", fieldName: "mail_preference",
			want: domain.FieldTypeRadio,
		},
		{
			name: "checkbox type attribute",
			tag:  "input", typeAttr: "checkbox",
			want: domain.FieldTypeCheckbox,
		},
		{
			name: "keyword inference on name",
			tag:  "input", typeAttr: "text", fieldName: "mail_address",
			want: domain.FieldTypeEmail,
		},
		{
			name: "japanese phone keyword on label",
			tag:  "input", typeAttr: "text", label: "電話番号",
			want: domain.FieldTypeTel,
		},
		{
			name: "message keyword infers textarea semantics even on an input",
			tag:  "input", typeAttr: "text", fieldName: "inquiry_message",
			want: domain.FieldTypeTextarea,
		},
		{
			name: "placeholder keyword",
			tag:  "input", typeAttr: "", placeholder: "メールアドレスを入力",
			want: domain.FieldTypeEmail,
		},
		{
			name: "no hints defaults to text",
			tag:  "input", typeAttr: "text", fieldName: "subject",
			want: domain.FieldTypeText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := determineFieldType(tt.tag, tt.typeAttr, tt.fieldName, tt.id, tt.placeholder, tt.label)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSelector(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		ctrlName string
		class    string
		typeAttr string
		tag      string
		want     string
	}{
		{"id wins", "email-input", "email", "form-control", "email", "input", "#email-input"},
		{"name second", "", "email", "form-control", "email", "input", "[name='email']"},
		{"first class third", "", "", "form-control required", "email", "input", ".form-control"},
		{"type attribute fourth", "", "", "", "email", "input", "input[type='email']"},
		{"bare tag last", "", "", "", "", "textarea", "textarea"},
		{"fallback when nothing known", "", "", "", "", "", "input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSelector(tt.id, tt.ctrlName, tt.class, tt.typeAttr, tt.tag)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesSubmitKeyword(t *testing.T) {
	assert.True(t, matchesSubmitKeyword("送信する"))
	assert.True(t, matchesSubmitKeyword("Submit"))
	assert.True(t, matchesSubmitKeyword("SEND MESSAGE"))
	assert.True(t, matchesSubmitKeyword("内容を確認"))
	assert.True(t, matchesSubmitKeyword("登録"))
	assert.False(t, matchesSubmitKeyword("キャンセル"))
	assert.False(t, matchesSubmitKeyword("reset"))
}
