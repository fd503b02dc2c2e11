package workflows

import (
	"time"

	"github.com/google/uuid"
)

// DetectFormsInput is the input for the form detection workflow
type DetectFormsInput struct {
	CompanyID uuid.UUID `json:"company_id"`
	SiteURL   string    `json:"site_url"`
}

// DetectFormsOutput is the output of the form detection workflow
type DetectFormsOutput struct {
	CompanyID   uuid.UUID     `json:"company_id"`
	FormIDs     []uuid.UUID   `json:"form_ids"`
	FormsFound  int           `json:"forms_found"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// SubmitFormInput is the input for the single-form submission workflow
type SubmitFormInput struct {
	FormID     uuid.UUID `json:"form_id"`
	TemplateID uuid.UUID `json:"template_id"`

	// TemplateText is rendered against Variables before field mapping.
	TemplateText string            `json:"template_text,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`

	// Data holds the resolved field values. Keys are matched against
	// detected field names, labels, and types.
	Data map[string]string `json:"data"`

	DryRun         bool `json:"dry_run"`
	TakeScreenshot bool `json:"take_screenshot"`
}

// SubmitFormOutput is the output of the single-form submission workflow
type SubmitFormOutput struct {
	SubmissionID  uuid.UUID     `json:"submission_id"`
	FormID        uuid.UUID     `json:"form_id"`
	Status        string        `json:"status"`
	Response      string        `json:"response,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ScreenshotURL string        `json:"screenshot_url,omitempty"`
	CompletedAt   time.Time     `json:"completed_at"`
	Duration      time.Duration `json:"duration"`
}

// BulkSubmissionInput is the input for the bulk submission workflow
type BulkSubmissionInput struct {
	TemplateID uuid.UUID         `json:"template_id"`
	FormIDs    []uuid.UUID       `json:"form_ids"`
	Data       map[string]string `json:"data"`

	DryRun         bool `json:"dry_run"`
	TakeScreenshot bool `json:"take_screenshot"`

	// MaxParallel caps concurrent submissions. Politeness pacing happens
	// per target site inside the activity, so this only bounds browser use.
	MaxParallel int `json:"max_parallel"`
}

// BulkSubmissionOutput is the output of the bulk submission workflow
type BulkSubmissionOutput struct {
	Results     []SubmitFormOutput `json:"results"`
	Summary     *BulkSummary       `json:"summary"`
	CompletedAt time.Time          `json:"completed_at"`
	Duration    time.Duration      `json:"duration"`
}

// BulkSummary contains bulk submission statistics
type BulkSummary struct {
	Total           int `json:"total"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	CaptchaRequired int `json:"captcha_required"`
}

// DetectionActivityInput is input for the detection activity
type DetectionActivityInput struct {
	CompanyID uuid.UUID `json:"company_id"`
	SiteURL   string    `json:"site_url"`
}

// DetectionActivityOutput is output from the detection activity
type DetectionActivityOutput struct {
	FormIDs    []uuid.UUID   `json:"form_ids"`
	FormsFound int           `json:"forms_found"`
	Duration   time.Duration `json:"duration"`
}

// SubmissionActivityInput is input for the submission activity
type SubmissionActivityInput struct {
	FormID         uuid.UUID         `json:"form_id"`
	TemplateID     uuid.UUID         `json:"template_id"`
	Data           map[string]string `json:"data"`
	DryRun         bool              `json:"dry_run"`
	TakeScreenshot bool              `json:"take_screenshot"`
}

// SubmissionActivityOutput is output from the submission activity
type SubmissionActivityOutput struct {
	SubmissionID  uuid.UUID     `json:"submission_id"`
	Status        string        `json:"status"`
	Response      string        `json:"response,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ScreenshotURL string        `json:"screenshot_url,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// RenderTemplateActivityInput is input for the template rendering activity
type RenderTemplateActivityInput struct {
	TemplateText string            `json:"template_text"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// RenderTemplateActivityOutput is output from the template rendering activity
type RenderTemplateActivityOutput struct {
	Rendered string   `json:"rendered"`
	Unbound  []string `json:"unbound,omitempty"`
}
