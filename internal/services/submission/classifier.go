package submission

import (
	"fmt"
	"strings"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// successPhrases classify a post-submit page as an accepted inquiry.
var successPhrases = []string{
	"ありがとうございました", "送信完了", "受付完了", "thank you",
	"success", "submitted", "送信いたしました", "お問い合わせを受け付けました",
}

// errorPhrases classify a post-submit page as a validation failure.
var errorPhrases = []string{
	"エラー", "error", "失敗", "failed", "必須", "required",
	"正しく", "invalid", "入力してください", "確認してください",
}

// classifyOutcome derives the submission status from the post-click page.
// Success phrases are checked before the URL comparison so confirmation pages
// served in place win over the redirect heuristic. With no signals at all the
// result is success with an undetermined narrative: a false "failed" would
// trigger wasteful retries against a site that actually accepted the inquiry.
func classifyOutcome(content, currentURL, originalURL string) (domain.SubmissionStatus, string) {
	lower := strings.ToLower(content)

	for _, phrase := range successPhrases {
		if strings.Contains(lower, phrase) {
			return domain.SubmissionStatusSuccess, fmt.Sprintf("submission accepted: matched %q", phrase)
		}
	}

	if currentURL != originalURL {
		return domain.SubmissionStatusSuccess, fmt.Sprintf("submission accepted: redirected to %s", currentURL)
	}

	for _, phrase := range errorPhrases {
		if strings.Contains(lower, phrase) {
			return domain.SubmissionStatusFailed, fmt.Sprintf("submission rejected: matched %q", phrase)
		}
	}

	return domain.SubmissionStatusSuccess, "submission completed: outcome undetermined"
}
