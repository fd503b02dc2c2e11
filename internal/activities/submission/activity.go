package submission

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
	submissionservice "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/services/submission"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/template"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/workflows"
)

// Activity implements the form submission activity
type Activity struct {
	service  *submissionservice.Service
	renderer *template.Renderer
}

// NewActivity creates a new submission activity
func NewActivity(service *submissionservice.Service) *Activity {
	return &Activity{
		service:  service,
		renderer: template.NewRenderer(),
	}
}

// Execute drives one form submission end to end. The outcome, including a
// CAPTCHA stop or a classification failure, comes back as a status rather
// than an error; errors here mean the attempt could not be recorded at all.
func (a *Activity) Execute(ctx context.Context, input workflows.SubmissionActivityInput) (*workflows.SubmissionActivityOutput, error) {
	logger := activity.GetLogger(ctx)
	startTime := time.Now()

	logger.Info("Starting submission activity",
		"form_id", input.FormID.String(),
		"template_id", input.TemplateID.String(),
		"dry_run", input.DryRun,
	)

	activity.RecordHeartbeat(ctx, "Loading form...")

	sub, err := a.service.Submit(ctx, input.FormID, input.TemplateID, input.Data, submissionservice.Options{
		DryRun:         input.DryRun,
		TakeScreenshot: input.TakeScreenshot,
	})
	if err != nil {
		observability.GetMetrics().RecordActivityExecution(workflows.SubmitFormActivityName, "failed")
		if code := domain.ErrorCode(err); code != "" {
			return nil, temporal.NewApplicationError(err.Error(), code)
		}
		return nil, err
	}
	observability.GetMetrics().RecordActivityExecution(workflows.SubmitFormActivityName, "completed")

	logger.Info("Submission activity completed",
		"form_id", input.FormID.String(),
		"submission_id", sub.ID.String(),
		"status", string(sub.Status),
	)

	return &workflows.SubmissionActivityOutput{
		SubmissionID:  sub.ID,
		Status:        string(sub.Status),
		Response:      sub.Response,
		ErrorMessage:  sub.ErrorMessage,
		ScreenshotURL: sub.ScreenshotURL,
		Duration:      time.Since(startTime),
	}, nil
}

// RenderTemplate renders a message template against the default and
// user-supplied variables
func (a *Activity) RenderTemplate(ctx context.Context, input workflows.RenderTemplateActivityInput) (*workflows.RenderTemplateActivityOutput, error) {
	_, unbound := a.renderer.Validate(input.TemplateText, input.Variables)
	observability.GetMetrics().RecordActivityExecution(workflows.RenderTemplateActivityName, "completed")

	return &workflows.RenderTemplateActivityOutput{
		Rendered: a.renderer.Render(input.TemplateText, input.Variables),
		Unbound:  unbound,
	}, nil
}
