package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/repository/postgres"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/template"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/temporal"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/workflows"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

// kvFlag collects repeatable key=value pairs
type kvFlag map[string]string

func (f kvFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f kvFlag) Set(value string) error {
	key, val, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	f[key] = val
	return nil
}

// idFlag collects repeatable UUIDs
type idFlag []uuid.UUID

func (f *idFlag) String() string {
	parts := make([]string, len(*f))
	for i, id := range *f {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (f *idFlag) Set(value string) error {
	id, err := uuid.Parse(value)
	if err != nil {
		return err
	}
	*f = append(*f, id)
	return nil
}

func main() {
	godotenv.Load()

	companyIDStr := flag.String("company", "", "Company ID; submits to every form detected for it")
	templateIDStr := flag.String("template", "", "Template ID recorded on the submissions (optional)")
	templateFile := flag.String("template-file", "", "Message template file rendered into the message field")
	dryRun := flag.Bool("dry-run", false, "Fill the forms but do not submit")
	screenshot := flag.Bool("screenshot", true, "Capture evidence screenshots")
	parallel := flag.Int("parallel", 0, "Max concurrent submissions (0 uses the workflow default)")
	wait := flag.Bool("wait", false, "Block until the workflow completes and print the summary")
	statusID := flag.String("status", "", "Print the status of a started bulk workflow and exit")
	cancelID := flag.String("cancel", "", "Cancel a running bulk workflow and exit")
	verbose := flag.Bool("verbose", false, "Verbose output")

	formIDs := idFlag{}
	flag.Var(&formIDs, "form", "Form ID to submit to (repeatable)")
	data := kvFlag{}
	flag.Var(data, "set", "Field value as key=value (repeatable)")
	vars := kvFlag{}
	flag.Var(vars, "var", "Template variable as key=value (repeatable)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		red.Printf("✗ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	tc, err := temporal.NewClient(cfg.Temporal, logger)
	if err != nil {
		red.Printf("✗ Connecting to Temporal: %v\n", err)
		os.Exit(1)
	}
	defer tc.Close()

	ctx := context.Background()

	if *statusID != "" {
		printStatus(ctx, tc, *statusID)
		return
	}
	if *cancelID != "" {
		if err := tc.CancelWorkflow(ctx, *cancelID, ""); err != nil {
			red.Printf("✗ Cancel failed: %v\n", err)
			os.Exit(1)
		}
		yellow.Printf("⚠ Cancellation requested for %s\n", *cancelID)
		return
	}

	if *companyIDStr == "" && len(formIDs) == 0 {
		red.Println("✗ Either -company or at least one -form is required")
		flag.Usage()
		os.Exit(1)
	}

	templateID := uuid.Nil
	if *templateIDStr != "" {
		templateID, err = uuid.Parse(*templateIDStr)
		if err != nil {
			red.Printf("✗ Invalid template ID: %v\n", err)
			os.Exit(1)
		}
	}

	// Render the message template into the data bag once; every form in the
	// batch gets the same message.
	if *templateFile != "" {
		raw, err := os.ReadFile(*templateFile)
		if err != nil {
			red.Printf("✗ Reading template file: %v\n", err)
			os.Exit(1)
		}
		renderer := template.NewRenderer()
		_, unbound := renderer.Validate(string(raw), vars)
		if len(unbound) > 0 {
			yellow.Printf("⚠ Unbound placeholders: %s\n", strings.Join(unbound, ", "))
		}
		if _, ok := data["message"]; !ok {
			data["message"] = renderer.Render(string(raw), vars)
		}
	}

	workflowKey := "forms"
	if *companyIDStr != "" {
		companyID, err := uuid.Parse(*companyIDStr)
		if err != nil {
			red.Printf("✗ Invalid company ID: %v\n", err)
			os.Exit(1)
		}
		workflowKey = companyID.String()

		pgDB, err := postgres.New(cfg.Database)
		if err != nil {
			red.Printf("✗ Database connection failed: %v\n", err)
			os.Exit(1)
		}
		repos := postgres.NewRepositories(pgDB.DB)
		forms, err := repos.Forms.ListByCompany(ctx, companyID)
		pgDB.Close()
		if err != nil {
			red.Printf("✗ Loading forms: %v\n", err)
			os.Exit(1)
		}
		if len(forms) == 0 {
			yellow.Printf("⚠ %v\n", domain.NoFormFoundError(companyID))
			os.Exit(2)
		}
		for _, form := range forms {
			formIDs = append(formIDs, form.ID)
		}
	}

	bold.Println("Bulk inquiry submission")
	dim.Printf("   forms: %d\n", len(formIDs))
	dim.Printf("   dry run: %v\n\n", *dryRun)

	workflowID := fmt.Sprintf("bulk/%s/%d", workflowKey, time.Now().Unix())
	run, err := tc.StartWorkflow(ctx, workflowID, workflows.BulkSubmissionWorkflow, workflows.BulkSubmissionInput{
		TemplateID:     templateID,
		FormIDs:        formIDs,
		Data:           data,
		DryRun:         *dryRun,
		TakeScreenshot: *screenshot,
		MaxParallel:    *parallel,
	})
	if err != nil {
		red.Printf("✗ Starting workflow: %v\n", err)
		os.Exit(1)
	}

	green.Printf("✓ Workflow started\n")
	dim.Printf("   workflow id: %s\n", run.GetID())
	dim.Printf("   run id: %s\n", run.GetRunID())

	if !*wait {
		dim.Printf("\n   check progress with -status %s\n", run.GetID())
		return
	}

	var out workflows.BulkSubmissionOutput
	if err := run.Get(ctx, &out); err != nil {
		red.Printf("✗ Workflow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	for _, result := range out.Results {
		switch domain.SubmissionStatus(result.Status) {
		case domain.SubmissionStatusSuccess:
			green.Printf("✓ %s\n", result.FormID)
		case domain.SubmissionStatusCaptchaRequired:
			yellow.Printf("⚠ %s CAPTCHA required\n", result.FormID)
		default:
			red.Printf("✗ %s %s\n", result.FormID, result.ErrorMessage)
		}
	}

	s := out.Summary
	fmt.Println()
	bold.Printf("%d submitted: %d succeeded, %d failed, %d CAPTCHA (%s)\n",
		s.Total, s.Succeeded, s.Failed, s.CaptchaRequired, out.Duration.Round(time.Second))

	if s.Failed > 0 || s.CaptchaRequired > 0 {
		os.Exit(2)
	}
}

func printStatus(ctx context.Context, tc *temporal.Client, workflowID string) {
	status, err := tc.GetWorkflowStatus(ctx, workflowID, "")
	if err != nil {
		red.Printf("✗ Describe failed: %v\n", err)
		os.Exit(1)
	}

	switch {
	case status.IsRunning():
		yellow.Printf("⚠ Running since %s\n", status.StartTime.Format(time.RFC3339))
	case status.IsCompleted():
		green.Printf("✓ Completed\n")
	case status.IsFailed():
		red.Printf("✗ Failed\n")
	default:
		dim.Printf("  %s\n", status.Status)
	}
	dim.Printf("   workflow id: %s\n", status.WorkflowID)
	dim.Printf("   run id: %s\n", status.RunID)
	if status.CloseTime != nil {
		dim.Printf("   closed: %s\n", status.CloseTime.Format(time.RFC3339))
	}
}
