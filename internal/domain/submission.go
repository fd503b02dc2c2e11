package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the terminal classification of one submission attempt.
type SubmissionStatus string

const (
	SubmissionStatusPending         SubmissionStatus = "pending"
	SubmissionStatusSuccess         SubmissionStatus = "success"
	SubmissionStatusFailed          SubmissionStatus = "failed"
	SubmissionStatusCaptchaRequired SubmissionStatus = "captcha_required"
)

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusSuccess,
		SubmissionStatusFailed, SubmissionStatusCaptchaRequired:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the attempt. CAPTCHA is terminal
// and never retried automatically; it signals a need for a human.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusSuccess || s == SubmissionStatusFailed ||
		s == SubmissionStatusCaptchaRequired
}

// SubmissionOutcome is the result of driving one form submission. The caller
// persists it; the engine never surfaces a raw stack trace.
type SubmissionOutcome struct {
	Status        SubmissionStatus `json:"status"`
	Response      string           `json:"response,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	ScreenshotURL string           `json:"screenshot_url,omitempty"`
}

// Submission is the persisted record of one attempt against a stored form.
type Submission struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	CompanyID     uuid.UUID         `json:"company_id" db:"company_id"`
	FormID        uuid.UUID         `json:"form_id" db:"form_id"`
	TemplateID    uuid.UUID         `json:"template_id" db:"template_id"`
	Status        SubmissionStatus  `json:"status" db:"status"`
	SubmittedData map[string]string `json:"submitted_data"`
	Response      string            `json:"response,omitempty" db:"response"`
	ErrorMessage  string            `json:"error_message,omitempty" db:"error_message"`
	ScreenshotURL string            `json:"screenshot_url,omitempty" db:"screenshot_url"`
	SubmittedAt   time.Time         `json:"submitted_at" db:"submitted_at"`
}

// NewSubmission creates a pending submission record.
func NewSubmission(companyID, formID, templateID uuid.UUID, data map[string]string) *Submission {
	return &Submission{
		ID:            uuid.New(),
		CompanyID:     companyID,
		FormID:        formID,
		TemplateID:    templateID,
		Status:        SubmissionStatusPending,
		SubmittedData: data,
		SubmittedAt:   time.Now().UTC(),
	}
}

// ApplyOutcome copies a driver outcome onto the record.
func (s *Submission) ApplyOutcome(o SubmissionOutcome) {
	s.Status = o.Status
	s.Response = o.Response
	s.ErrorMessage = o.ErrorMessage
	s.ScreenshotURL = o.ScreenshotURL
}
