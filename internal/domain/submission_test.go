package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewSubmission(t *testing.T) {
	companyID, formID, templateID := uuid.New(), uuid.New(), uuid.New()
	data := map[string]string{"email": "a@b.com"}

	sub := NewSubmission(companyID, formID, templateID, data)

	if sub.Status != SubmissionStatusPending {
		t.Errorf("Status = %v, want pending", sub.Status)
	}
	if sub.FormID != formID {
		t.Errorf("FormID = %v, want %v", sub.FormID, formID)
	}
	if sub.SubmittedData["email"] != "a@b.com" {
		t.Error("SubmittedData should be kept")
	}
	if sub.SubmittedAt.IsZero() {
		t.Error("SubmittedAt should not be zero")
	}
}

func TestSubmission_ApplyOutcome(t *testing.T) {
	sub := NewSubmission(uuid.New(), uuid.New(), uuid.New(), nil)

	sub.ApplyOutcome(SubmissionOutcome{
		Status:        SubmissionStatusCaptchaRequired,
		Response:      "captcha detected, manual intervention required",
		ScreenshotURL: "s3://inquiry/submissions/x/captcha.png",
	})

	if sub.Status != SubmissionStatusCaptchaRequired {
		t.Errorf("Status = %v, want captcha_required", sub.Status)
	}
	if sub.ScreenshotURL == "" {
		t.Error("ScreenshotURL should be set")
	}
}

func TestSubmissionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status SubmissionStatus
		want   bool
	}{
		{SubmissionStatusPending, false},
		{SubmissionStatusSuccess, true},
		{SubmissionStatusFailed, true},
		{SubmissionStatusCaptchaRequired, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCompany_DetectionLifecycle(t *testing.T) {
	c := NewCompany("Acme", "https://acme.example.com")
	if c.DetectionStatus != DetectionStatusPending {
		t.Errorf("Status = %v, want pending", c.DetectionStatus)
	}

	c.StartDetection()
	if c.DetectionStatus != DetectionStatusInProgress {
		t.Errorf("Status = %v, want in_progress", c.DetectionStatus)
	}

	c.CompleteDetection(3)
	if c.DetectionStatus != DetectionStatusCompleted {
		t.Errorf("Status = %v, want completed", c.DetectionStatus)
	}
	if c.DetectedFormsCount != 3 {
		t.Errorf("DetectedFormsCount = %d, want 3", c.DetectedFormsCount)
	}
	if c.DetectionCompletedAt == nil {
		t.Error("DetectionCompletedAt should be set")
	}

	c.FailDetection("compliance blocked")
	if c.DetectionStatus != DetectionStatusError {
		t.Errorf("Status = %v, want error", c.DetectionStatus)
	}
	if c.DetectionError != "compliance blocked" {
		t.Errorf("DetectionError = %q", c.DetectionError)
	}
}
