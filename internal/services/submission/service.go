package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/browser"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
)

// submitWaitTimeout bounds the post-click load wait. AJAX submissions never
// navigate, so a timeout here is tolerated.
const submitWaitTimeout = 10 * time.Second

// checkboxTruthy are the tokens interpreted as "check this box".
var checkboxTruthy = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true, "checked": true,
}

// formSession is the browser surface one submission attempt drives. The
// playwright implementation lives in driver.go; tests substitute fakes.
type formSession interface {
	Navigate(url string) error
	Settle(d time.Duration)
	HasVisibleCaptcha() bool
	FieldExists(selector string) bool
	FillText(selector, value string) error
	SelectOption(selector, value string) error
	CheckRadio(selector, value string) error
	SetCheckbox(selector string, checked bool) error
	Submit(storedSelector string) error
	AwaitLoad(timeout time.Duration)
	CurrentURL() string
	Content() (string, error)
	Screenshot() ([]byte, error)
}

// FormLoader reads back stored form descriptions.
type FormLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DetectedForm, error)
}

// SubmissionStore persists submission records.
type SubmissionStore interface {
	Save(ctx context.Context, sub *domain.Submission) error
	Update(ctx context.Context, sub *domain.Submission) error
}

// ScreenshotStore uploads evidence captures and returns their URLs.
type ScreenshotStore interface {
	SaveScreenshot(ctx context.Context, submissionID uuid.UUID, stage string, png []byte) (string, error)
}

// Options control one submission attempt.
type Options struct {
	TakeScreenshot bool
	DryRun         bool
}

// Service drives stored forms to completion. One attempt is one sequential
// state machine over a single leased page; concurrency happens across
// attempts, never inside one.
type Service struct {
	forms       FormLoader
	submissions SubmissionStore
	screenshots ScreenshotStore
	pool        *browser.Pool
	cfg         config.BrowserConfig
	logger      *zap.Logger
	metrics     *observability.Metrics
}

func NewService(
	forms FormLoader,
	submissions SubmissionStore,
	screenshots ScreenshotStore,
	pool *browser.Pool,
	cfg config.BrowserConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		forms:       forms,
		submissions: submissions,
		screenshots: screenshots,
		pool:        pool,
		cfg:         cfg,
		logger:      logger,
		metrics:     observability.GetMetrics(),
	}
}

// Submit fills and sends the stored form using values resolved from the data
// bag. The returned record always carries a terminal status; driver failures
// become a failed outcome, never a raw error, so the orchestration layer can
// decide on retry from the status alone.
func (s *Service) Submit(
	ctx context.Context,
	formID, templateID uuid.UUID,
	dataBag map[string]string,
	opts Options,
) (*domain.Submission, error) {
	start := time.Now()

	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("loading form %s: %w", formID, err)
	}

	sub := domain.NewSubmission(form.CompanyID, formID, templateID, dataBag)
	if err := s.submissions.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("creating submission record: %w", err)
	}

	s.logger.Info("form submission started",
		zap.String("submission_id", sub.ID.String()),
		zap.String("form_url", form.FormURL),
		zap.Bool("dry_run", opts.DryRun),
	)

	lease, err := s.pool.Acquire(ctx, nil)
	if err != nil {
		outcome := domain.SubmissionOutcome{
			Status:       domain.SubmissionStatusFailed,
			ErrorMessage: fmt.Sprintf("acquiring browser page: %v", err),
		}
		s.finish(ctx, sub, outcome, opts, start)
		return sub, nil
	}
	defer lease.Close()

	sess := newPlaywrightSession(lease.Page, s.cfg, s.logger)
	outcome := s.drive(ctx, sess, form, dataBag, sub.ID, opts)
	s.finish(ctx, sub, outcome, opts, start)
	return sub, nil
}

func (s *Service) finish(ctx context.Context, sub *domain.Submission, outcome domain.SubmissionOutcome, opts Options, start time.Time) {
	sub.ApplyOutcome(outcome)
	if err := s.submissions.Update(ctx, sub); err != nil {
		s.logger.Error("saving submission outcome",
			zap.String("submission_id", sub.ID.String()),
			zap.Error(err),
		)
	}
	s.metrics.RecordSubmission(string(sub.Status), opts.DryRun, time.Since(start))
	s.logger.Info("form submission finished",
		zap.String("submission_id", sub.ID.String()),
		zap.String("status", string(sub.Status)),
	)
}

// drive runs the attempt state machine: navigate, captcha check, fill,
// optional screenshot, then either the dry-run exit or submit and classify.
// Every failure path lands on a failed outcome with an evidence screenshot
// when enabled.
func (s *Service) drive(
	ctx context.Context,
	sess formSession,
	form *domain.DetectedForm,
	bag map[string]string,
	submissionID uuid.UUID,
	opts Options,
) domain.SubmissionOutcome {
	if err := sess.Navigate(form.FormURL); err != nil {
		return domain.SubmissionOutcome{
			Status:        domain.SubmissionStatusFailed,
			ErrorMessage:  fmt.Sprintf("navigating to form: %v", err),
			ScreenshotURL: s.capture(ctx, sess, submissionID, "error", opts),
		}
	}
	sess.Settle(s.cfg.SettleDelay)

	// The stored flag only says a CAPTCHA was present at detection time.
	// Submission refuses only when one is actually visible now.
	if form.HasCaptcha && sess.HasVisibleCaptcha() {
		s.logger.Warn("visible captcha on form page, manual intervention required",
			zap.String("form_url", form.FormURL),
		)
		return domain.SubmissionOutcome{
			Status:        domain.SubmissionStatusCaptchaRequired,
			Response:      "CAPTCHA detected. Manual intervention required.",
			ScreenshotURL: s.capture(ctx, sess, submissionID, "captcha", opts),
		}
	}

	if err := s.fillFields(sess, form, bag); err != nil {
		return domain.SubmissionOutcome{
			Status:        domain.SubmissionStatusFailed,
			ErrorMessage:  err.Error(),
			ScreenshotURL: s.capture(ctx, sess, submissionID, "error", opts),
		}
	}

	screenshotURL := s.capture(ctx, sess, submissionID, "before_submit", opts)

	if opts.DryRun {
		return domain.SubmissionOutcome{
			Status:        domain.SubmissionStatusSuccess,
			Response:      "Dry run completed successfully",
			ScreenshotURL: screenshotURL,
		}
	}

	originalURL := sess.CurrentURL()
	if err := sess.Submit(form.SubmitSelector); err != nil {
		return domain.SubmissionOutcome{
			Status:        domain.SubmissionStatusFailed,
			ErrorMessage:  fmt.Sprintf("clicking submit: %v", err),
			ScreenshotURL: s.capture(ctx, sess, submissionID, "error", opts),
		}
	}

	sess.AwaitLoad(submitWaitTimeout)
	sess.Settle(s.cfg.SettleDelay)

	content, err := sess.Content()
	if err != nil {
		s.logger.Warn("reading post-submit page content", zap.Error(err))
	}
	status, narrative := classifyOutcome(content, sess.CurrentURL(), originalURL)

	if after := s.capture(ctx, sess, submissionID, "after_submit", opts); screenshotURL == "" {
		screenshotURL = after
	}

	return domain.SubmissionOutcome{
		Status:        status,
		Response:      narrative,
		ScreenshotURL: screenshotURL,
	}
}

// fillFields walks the stored fields in order, resolving each value via the
// mapper. Unresolved or missing fields are skipped with a warning; an input
// action failure aborts only when the field is required.
func (s *Service) fillFields(sess formSession, form *domain.DetectedForm, bag map[string]string) error {
	for _, field := range form.Fields {
		// An empty resolved value is still filled; only a missing mapping
		// skips the field.
		value, ok := mapFieldValue(field, bag)
		if !ok {
			if field.Required {
				s.logger.Warn("no value resolved for required field",
					zap.String("field", field.Name),
				)
			}
			continue
		}

		if !sess.FieldExists(field.Selector) {
			s.logger.Warn("stored selector no longer resolves",
				zap.String("field", field.Name),
				zap.String("selector", field.Selector),
			)
			continue
		}

		if err := s.inputValue(sess, field, value); err != nil {
			if field.Required {
				return fmt.Errorf("filling required field %q: %w", field.Name, err)
			}
			s.logger.Warn("field input failed, skipping optional field",
				zap.String("field", field.Name),
				zap.Error(err),
			)
			continue
		}

		sess.Settle(s.cfg.FillDelay)
	}
	return nil
}

func (s *Service) inputValue(sess formSession, field domain.DetectedField, value string) error {
	switch field.Type {
	case domain.FieldTypeText, domain.FieldTypeEmail, domain.FieldTypeTel, domain.FieldTypeTextarea:
		return sess.FillText(field.Selector, value)
	case domain.FieldTypeSelect:
		return sess.SelectOption(field.Selector, value)
	case domain.FieldTypeRadio:
		return sess.CheckRadio(field.Selector, value)
	case domain.FieldTypeCheckbox:
		return sess.SetCheckbox(field.Selector, checkboxTruthy[strings.ToLower(value)])
	default:
		return fmt.Errorf("unknown field type %q", field.Type)
	}
}

// capture takes and uploads a screenshot, returning "" when disabled or on
// any failure. Screenshot trouble never fails a submission.
func (s *Service) capture(ctx context.Context, sess formSession, submissionID uuid.UUID, stage string, opts Options) string {
	if !opts.TakeScreenshot || s.screenshots == nil {
		return ""
	}

	data, err := sess.Screenshot()
	if err != nil {
		s.logger.Warn("taking screenshot", zap.String("stage", stage), zap.Error(err))
		return ""
	}

	url, err := s.screenshots.SaveScreenshot(ctx, submissionID, stage, data)
	if err != nil {
		s.logger.Warn("uploading screenshot", zap.String("stage", stage), zap.Error(err))
		return ""
	}
	s.metrics.ScreenshotsUploaded.Inc()
	return url
}
