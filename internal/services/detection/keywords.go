package detection

import (
	"regexp"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// contactKeywords match anchor text and hrefs pointing at inquiry pages.
// Japanese variants dominate because the target population is Japanese
// corporate sites.
var contactKeywords = []string{
	"お問い合わせ", "問い合わせ", "contact", "お客様相談", "お客様窓口",
	"inquiry", "お問合せ", "お問合わせ", "コンタクト", "ご相談",
	"support", "help", "お客様サポート", "サポート",
}

// defaultContactPaths are conventional inquiry locations appended as a
// fallback net even when no matching link is found.
var defaultContactPaths = []string{"/contact", "/contact-us", "/inquiry", "/support"}

// submitKeywords match submit-control text and value attributes.
var submitKeywords = []string{"送信", "submit", "send", "確認", "登録"}

// recaptchaSelectors are the CAPTCHA fingerprints checked at detection time,
// both inside the form and page wide.
var recaptchaSelectors = []string{
	".g-recaptcha",
	"[data-sitekey]",
	"iframe[src*='recaptcha']",
	".recaptcha",
	"#recaptcha",
}

// excludeURLPatterns reject non-navigable or binary targets from the
// candidate contact link set.
var excludeURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)mailto:`),
	regexp.MustCompile(`(?i)tel:`),
	regexp.MustCompile(`#`),
	regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|pdf|doc|docx)$`),
}

// fieldTypePatterns drive keyword-based type inference. Tag and type
// attribute checks run first; these patterns only apply when both are
// inconclusive.
var fieldTypePatterns = []struct {
	fieldType domain.FieldType
	pattern   *regexp.Regexp
}{
	{domain.FieldTypeEmail, regexp.MustCompile(`(?i)email|mail|メール`)},
	{domain.FieldTypeTel, regexp.MustCompile(`(?i)tel|phone|電話|でんわ`)},
	{domain.FieldTypeTextarea, regexp.MustCompile(`(?i)message|content|内容|メッセージ|詳細|問い合わせ内容`)},
}
