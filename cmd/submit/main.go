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

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/browser"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/repository/postgres"
	submissionservice "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/services/submission"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/storage"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/template"
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

func main() {
	godotenv.Load()

	formIDStr := flag.String("form", "", "Detected form ID to submit to")
	templateIDStr := flag.String("template", "", "Template ID recorded on the submission (optional)")
	templateFile := flag.String("template-file", "", "Message template file rendered into the message field")
	dryRun := flag.Bool("dry-run", false, "Fill the form but do not submit")
	screenshot := flag.Bool("screenshot", true, "Capture evidence screenshots")
	verbose := flag.Bool("verbose", false, "Verbose output")

	data := kvFlag{}
	flag.Var(data, "set", "Field value as key=value (repeatable)")
	vars := kvFlag{}
	flag.Var(vars, "var", "Template variable as key=value (repeatable)")

	flag.Parse()

	if *formIDStr == "" {
		red.Println("✗ -form is required")
		flag.Usage()
		os.Exit(1)
	}
	formID, err := uuid.Parse(*formIDStr)
	if err != nil {
		red.Printf("✗ Invalid form ID: %v\n", err)
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

	// Render the message template into the data bag before driving the form
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

	bold.Println("Inquiry form submission")
	dim.Printf("   form: %s\n", formID)
	dim.Printf("   dry run: %v\n\n", *dryRun)

	pgDB, err := postgres.New(cfg.Database)
	if err != nil {
		red.Printf("✗ Database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer pgDB.Close()
	repos := postgres.NewRepositories(pgDB.DB)

	screenshots, err := storage.NewScreenshotClient(cfg.Storage)
	if err != nil {
		red.Printf("✗ Creating storage client: %v\n", err)
		os.Exit(1)
	}

	pool, err := browser.NewPool(cfg.Browser, logger)
	if err != nil {
		red.Printf("✗ Starting browser pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	service := submissionservice.NewService(
		repos.Forms,
		repos.Submissions,
		screenshots,
		pool,
		cfg.Browser,
		logger,
	)

	start := time.Now()
	sub, err := service.Submit(context.Background(), formID, templateID, data, submissionservice.Options{
		DryRun:         *dryRun,
		TakeScreenshot: *screenshot,
	})
	if err != nil {
		red.Printf("✗ Submission failed: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	switch sub.Status {
	case domain.SubmissionStatusSuccess:
		green.Printf("✓ %s (%s)\n", sub.Response, elapsed)
	case domain.SubmissionStatusCaptchaRequired:
		yellow.Printf("⚠ CAPTCHA requires manual intervention (%s)\n", elapsed)
	default:
		red.Printf("✗ Submission %s: %s (%s)\n", sub.Status, sub.ErrorMessage, elapsed)
	}

	dim.Printf("   submission id: %s\n", sub.ID)
	if sub.ScreenshotURL != "" {
		dim.Printf("   screenshot: %s\n", sub.ScreenshotURL)
	}

	if sub.Status != domain.SubmissionStatusSuccess {
		os.Exit(2)
	}
}
