package detection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
	detectionservice "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/services/detection"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/workflows"
)

// Activity implements the form detection activity
type Activity struct {
	service *detectionservice.Service
}

// NewActivity creates a new detection activity
func NewActivity(service *detectionservice.Service) *Activity {
	return &Activity{service: service}
}

// Execute scans a company site for inquiry forms and persists what it finds
func (a *Activity) Execute(ctx context.Context, input workflows.DetectionActivityInput) (*workflows.DetectionActivityOutput, error) {
	logger := activity.GetLogger(ctx)
	startTime := time.Now()

	logger.Info("Starting detection activity",
		"company_id", input.CompanyID.String(),
		"site_url", input.SiteURL,
	)

	activity.RecordHeartbeat(ctx, "Checking site policy...")

	forms, err := a.service.DetectForms(ctx, input.CompanyID, input.SiteURL)
	if err != nil {
		observability.GetMetrics().RecordActivityExecution(workflows.DetectFormsActivityName, "failed")
		// Tag the error so retry policies can distinguish a blocked site
		// from a transient browser failure.
		if code := domain.ErrorCode(err); code != "" {
			return nil, temporal.NewApplicationError(err.Error(), code)
		}
		return nil, err
	}
	observability.GetMetrics().RecordActivityExecution(workflows.DetectFormsActivityName, "completed")

	formIDs := make([]uuid.UUID, len(forms))
	for i, form := range forms {
		formIDs[i] = form.ID
	}

	logger.Info("Detection activity completed",
		"company_id", input.CompanyID.String(),
		"forms_found", len(forms),
	)

	return &workflows.DetectionActivityOutput{
		FormIDs:    formIDs,
		FormsFound: len(forms),
		Duration:   time.Since(startTime),
	}, nil
}
