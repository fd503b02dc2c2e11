package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// Activity names - must match registered activity names
const (
	DetectFormsActivityName    = "DetectFormsActivity"
	SubmitFormActivityName     = "SubmitFormActivity"
	RenderTemplateActivityName = "RenderTemplateActivity"
)

// Error types the retry policies treat as terminal. A compliance block or a
// visible CAPTCHA does not go away on retry; hammering the site would defeat
// the point of the governor.
var nonRetryableErrorTypes = []string{
	domain.ErrCodePolicyBlocked,
	domain.ErrCodeCaptchaRequired,
	domain.ErrCodeValidation,
	domain.ErrCodeNotFound,
}

// DetectFormsWorkflow runs form detection for a single company site.
func DetectFormsWorkflow(ctx workflow.Context, input DetectFormsInput) (*DetectFormsOutput, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	logger.Info("Starting form detection workflow",
		"company_id", input.CompanyID.String(),
		"site_url", input.SiteURL,
	)

	output := &DetectFormsOutput{
		CompanyID: input.CompanyID,
		Status:    "running",
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: nonRetryableErrorTypes,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var result DetectionActivityOutput
	err := workflow.ExecuteActivity(ctx, DetectFormsActivityName, DetectionActivityInput{
		CompanyID: input.CompanyID,
		SiteURL:   input.SiteURL,
	}).Get(ctx, &result)

	output.CompletedAt = workflow.Now(ctx)
	output.Duration = output.CompletedAt.Sub(startTime)

	if err != nil {
		output.Status = "failed"
		output.Error = err.Error()
		logger.Error("Form detection workflow failed",
			"company_id", input.CompanyID.String(),
			"error", err,
		)
		return output, nil // Return output even on failure for visibility
	}

	output.Status = "completed"
	output.FormIDs = result.FormIDs
	output.FormsFound = result.FormsFound

	logger.Info("Form detection workflow completed",
		"company_id", input.CompanyID.String(),
		"forms_found", result.FormsFound,
		"duration", output.Duration,
	)

	return output, nil
}

// SubmitFormWorkflow drives a single form submission, optionally rendering a
// message template first.
func SubmitFormWorkflow(ctx workflow.Context, input SubmitFormInput) (*SubmitFormOutput, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	logger.Info("Starting submission workflow",
		"form_id", input.FormID.String(),
		"template_id", input.TemplateID.String(),
		"dry_run", input.DryRun,
	)

	data := input.Data
	if data == nil {
		data = map[string]string{}
	}

	// Render the message template before touching the browser. Rendering is
	// deterministic and cheap; one attempt is enough.
	if input.TemplateText != "" {
		renderOptions := workflow.ActivityOptions{
			StartToCloseTimeout: 30 * time.Second,
			RetryPolicy: &temporal.RetryPolicy{
				MaximumAttempts: 1,
			},
		}
		renderCtx := workflow.WithActivityOptions(ctx, renderOptions)

		var rendered RenderTemplateActivityOutput
		err := workflow.ExecuteActivity(renderCtx, RenderTemplateActivityName, RenderTemplateActivityInput{
			TemplateText: input.TemplateText,
			Variables:    input.Variables,
		}).Get(renderCtx, &rendered)
		if err != nil {
			return nil, fmt.Errorf("rendering template: %w", err)
		}

		if len(rendered.Unbound) > 0 {
			logger.Warn("Template has unbound placeholders", "placeholders", rendered.Unbound)
		}
		if _, ok := data["message"]; !ok {
			data["message"] = rendered.Rendered
		}
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        2,
			NonRetryableErrorTypes: nonRetryableErrorTypes,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var result SubmissionActivityOutput
	err := workflow.ExecuteActivity(ctx, SubmitFormActivityName, SubmissionActivityInput{
		FormID:         input.FormID,
		TemplateID:     input.TemplateID,
		Data:           data,
		DryRun:         input.DryRun,
		TakeScreenshot: input.TakeScreenshot,
	}).Get(ctx, &result)

	output := &SubmitFormOutput{
		FormID:      input.FormID,
		CompletedAt: workflow.Now(ctx),
	}
	output.Duration = output.CompletedAt.Sub(startTime)

	if err != nil {
		output.Status = string(domain.SubmissionStatusFailed)
		output.ErrorMessage = err.Error()
		logger.Error("Submission workflow failed",
			"form_id", input.FormID.String(),
			"error", err,
		)
		return output, nil
	}

	output.SubmissionID = result.SubmissionID
	output.Status = result.Status
	output.Response = result.Response
	output.ErrorMessage = result.ErrorMessage
	output.ScreenshotURL = result.ScreenshotURL

	logger.Info("Submission workflow completed",
		"form_id", input.FormID.String(),
		"submission_id", result.SubmissionID.String(),
		"status", result.Status,
		"duration", output.Duration,
	)

	return output, nil
}

// BulkSubmissionWorkflow submits the same template to many forms. Submissions
// run as child workflows in bounded batches; one CAPTCHA or failure never
// stops the rest of the batch.
func BulkSubmissionWorkflow(ctx workflow.Context, input BulkSubmissionInput) (*BulkSubmissionOutput, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	logger.Info("Starting bulk submission workflow",
		"template_id", input.TemplateID.String(),
		"form_count", len(input.FormIDs),
		"dry_run", input.DryRun,
	)

	maxParallel := input.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 2
	}

	output := &BulkSubmissionOutput{
		Results: make([]SubmitFormOutput, 0, len(input.FormIDs)),
	}

	for start := 0; start < len(input.FormIDs); start += maxParallel {
		end := start + maxParallel
		if end > len(input.FormIDs) {
			end = len(input.FormIDs)
		}
		batch := input.FormIDs[start:end]

		futures := make([]workflow.ChildWorkflowFuture, len(batch))
		for i, formID := range batch {
			childOptions := workflow.ChildWorkflowOptions{
				WorkflowID: fmt.Sprintf("%s/submit/%s", workflow.GetInfo(ctx).WorkflowExecution.ID, formID),
			}
			childCtx := workflow.WithChildOptions(ctx, childOptions)

			futures[i] = workflow.ExecuteChildWorkflow(childCtx, SubmitFormWorkflow, SubmitFormInput{
				FormID:         formID,
				TemplateID:     input.TemplateID,
				Data:           input.Data,
				DryRun:         input.DryRun,
				TakeScreenshot: input.TakeScreenshot,
			})
		}

		for i, future := range futures {
			var result SubmitFormOutput
			if err := future.Get(ctx, &result); err != nil {
				logger.Warn("Bulk submission child workflow failed",
					"form_id", batch[i].String(),
					"error", err,
				)
				result = SubmitFormOutput{
					FormID:       batch[i],
					Status:       string(domain.SubmissionStatusFailed),
					ErrorMessage: err.Error(),
					CompletedAt:  workflow.Now(ctx),
				}
			}
			output.Results = append(output.Results, result)
		}
	}

	output.Summary = summarizeResults(output.Results)
	output.CompletedAt = workflow.Now(ctx)
	output.Duration = output.CompletedAt.Sub(startTime)

	logger.Info("Bulk submission workflow completed",
		"total", output.Summary.Total,
		"succeeded", output.Summary.Succeeded,
		"failed", output.Summary.Failed,
		"captcha_required", output.Summary.CaptchaRequired,
		"duration", output.Duration,
	)

	return output, nil
}

func summarizeResults(results []SubmitFormOutput) *BulkSummary {
	summary := &BulkSummary{Total: len(results)}
	for _, r := range results {
		switch domain.SubmissionStatus(r.Status) {
		case domain.SubmissionStatusSuccess:
			summary.Succeeded++
		case domain.SubmissionStatusCaptchaRequired:
			summary.CaptchaRequired++
		default:
			summary.Failed++
		}
	}
	return summary
}
