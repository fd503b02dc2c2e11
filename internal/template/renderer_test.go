package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedRenderer() *Renderer {
	return &Renderer{now: func() time.Time {
		return time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	}}
}

func TestRender_SubstitutesVariables(t *testing.T) {
	r := fixedRenderer()

	got := r.Render("{{company_name}}様\n{{message}}", map[string]string{
		"company_name": "株式会社サンプル",
		"message":      "お世話になっております。",
	})

	assert.Equal(t, "株式会社サンプル様\nお世話になっております。", got)
}

func TestRender_UserValuesOverrideDefaults(t *testing.T) {
	r := fixedRenderer()

	got := r.Render("{{email}}", map[string]string{"email": "a@b.com"})
	assert.Equal(t, "a@b.com", got)
}

func TestRender_DefaultsFillGaps(t *testing.T) {
	r := fixedRenderer()

	assert.Equal(t, "2026年03月07日", r.Render("{{date}}", nil))
	assert.Equal(t, "2026", r.Render("{{current_year}}", nil))
	assert.Equal(t, "3", r.Render("{{current_month}}", nil))
}

func TestRender_UnknownPlaceholderLeftVerbatim(t *testing.T) {
	r := fixedRenderer()

	got := r.Render("hello {{no_such_key}}", nil)
	assert.Equal(t, "hello {{no_such_key}}", got)
}

func TestRender_WhitespaceInsidePlaceholder(t *testing.T) {
	r := fixedRenderer()

	got := r.Render("{{ email }}", map[string]string{"email": "a@b.com"})
	assert.Equal(t, "a@b.com", got)
}

func TestExtractVariables(t *testing.T) {
	used := ExtractVariables("{{b}} then {{a}} and {{b}} again, not {not_one}")
	assert.Equal(t, []string{"a", "b"}, used)
}

func TestValidate_ReportsUnboundKeys(t *testing.T) {
	r := fixedRenderer()

	used, unbound := r.Validate("{{email}} {{custom_field}}", map[string]string{})

	assert.Equal(t, []string{"custom_field", "email"}, used)
	assert.Equal(t, []string{"custom_field"}, unbound)
}

func TestValidate_UserVariablesSatisfyBindings(t *testing.T) {
	r := fixedRenderer()

	_, unbound := r.Validate("{{custom_field}}", map[string]string{"custom_field": "x"})
	assert.Empty(t, unbound)
}
