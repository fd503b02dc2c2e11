// Package template renders inquiry message templates. Substitution is
// opaque {{key}} replacement; the engine downstream never parses template
// syntax itself.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Renderer substitutes {{key}} placeholders from a variable map merged over
// date-aware defaults.
type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// DefaultVariables returns the built-in variable set. User-supplied values
// override these on render.
func (r *Renderer) DefaultVariables() map[string]string {
	now := r.now()
	return map[string]string{
		"company_name":   "企業名",
		"date":           fmt.Sprintf("%d年%02d月%02d日", now.Year(), int(now.Month()), now.Day()),
		"current_year":   strconv.Itoa(now.Year()),
		"current_month":  strconv.Itoa(int(now.Month())),
		"current_day":    strconv.Itoa(now.Day()),
		"user_name":      "ユーザー名",
		"contact_person": "担当者名",
		"department":     "部署名",
		"phone":          "電話番号",
		"email":          "メールアドレス",
		"website":        "ウェブサイト",
		"service_name":   "サービス名",
	}
}

// Render replaces every {{key}} with its value from variables merged over the
// defaults. Unknown placeholders are left verbatim so missing data stays
// visible in previews instead of silently vanishing.
func (r *Renderer) Render(templateText string, variables map[string]string) string {
	merged := r.DefaultVariables()
	for k, v := range variables {
		merged[k] = v
	}

	return placeholderPattern.ReplaceAllStringFunc(templateText, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := merged[key]; ok {
			return v
		}
		return match
	})
}

// ExtractVariables lists the distinct placeholder keys used in a template,
// sorted for stable output.
func ExtractVariables(templateText string) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(templateText, -1) {
		seen[m[1]] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports the placeholders a template uses and which of them have
// no binding in the given variables or the defaults.
func (r *Renderer) Validate(templateText string, variables map[string]string) (used, unbound []string) {
	defaults := r.DefaultVariables()
	used = ExtractVariables(templateText)
	for _, key := range used {
		if _, ok := variables[key]; ok {
			continue
		}
		if _, ok := defaults[key]; ok {
			continue
		}
		unbound = append(unbound, key)
	}
	return used, unbound
}
