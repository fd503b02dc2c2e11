package workflows

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

func TestSummarizeResults(t *testing.T) {
	results := []SubmitFormOutput{
		{FormID: uuid.New(), Status: string(domain.SubmissionStatusSuccess)},
		{FormID: uuid.New(), Status: string(domain.SubmissionStatusSuccess)},
		{FormID: uuid.New(), Status: string(domain.SubmissionStatusCaptchaRequired)},
		{FormID: uuid.New(), Status: string(domain.SubmissionStatusFailed)},
		{FormID: uuid.New(), Status: ""},
	}

	summary := summarizeResults(results)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.CaptchaRequired)
	assert.Equal(t, 2, summary.Failed)
}

func TestSummarizeResultsEmpty(t *testing.T) {
	summary := summarizeResults(nil)

	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Succeeded)
	assert.Zero(t, summary.Failed)
}
