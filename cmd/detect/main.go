package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/browser"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/compliance"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/repository/postgres"
	detectionservice "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/services/detection"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	siteURL := flag.String("url", "", "Company site URL to scan")
	name := flag.String("name", "", "Company name (defaults to the URL)")
	level := flag.String("level", "", "Compliance level override: strict, moderate, permissive")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *siteURL == "" {
		red.Println("✗ -url is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		red.Printf("✗ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *level != "" {
		cfg.Compliance.Level = domain.ComplianceLevel(*level)
		if !cfg.Compliance.Level.IsValid() {
			red.Printf("✗ Unknown compliance level %q\n", *level)
			os.Exit(1)
		}
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	bold.Println("Inquiry form detection")
	dim.Printf("   target: %s\n", *siteURL)
	dim.Printf("   compliance level: %s\n\n", cfg.Compliance.Level)

	pgDB, err := postgres.New(cfg.Database)
	if err != nil {
		red.Printf("✗ Database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer pgDB.Close()
	repos := postgres.NewRepositories(pgDB.DB)

	ctx := context.Background()

	companyName := *name
	if companyName == "" {
		companyName = *siteURL
	}
	company, err := repos.Companies.GetByURL(ctx, *siteURL)
	if err != nil {
		if !domain.IsSentinelError(err, domain.ErrNotFoundVal) {
			red.Printf("✗ Looking up company: %v\n", err)
			os.Exit(1)
		}
		company = domain.NewCompany(companyName, *siteURL)
		if err := repos.Companies.Create(ctx, company); err != nil {
			red.Printf("✗ Creating company: %v\n", err)
			os.Exit(1)
		}
		dim.Printf("   registered company %s\n", company.ID)
	}

	pool, err := browser.NewPool(cfg.Browser, logger)
	if err != nil {
		red.Printf("✗ Starting browser pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	governor := compliance.NewGovernor(compliance.Config{
		Level:        cfg.Compliance.Level,
		BotName:      cfg.Compliance.BotName,
		UserAgent:    cfg.Compliance.UserAgent,
		FetchTimeout: cfg.Compliance.FetchTimeout,
		Backoff: compliance.BackoffConfig{
			BaseDelay:  cfg.Compliance.BaseDelay,
			MaxDelay:   cfg.Compliance.MaxDelay,
			Multiplier: cfg.Compliance.BackoffMultiplier,
		},
	}, logger)

	service := detectionservice.NewService(
		governor,
		pool,
		repos.Companies,
		repos.Forms,
		cfg.Browser,
		cfg.RateLimits,
		logger,
	)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("   Scanning for inquiry forms..."),
		progressbar.OptionSpinnerType(14),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Add(1)
			}
		}
	}()

	start := time.Now()
	forms, err := service.DetectForms(ctx, company.ID, *siteURL)
	close(done)
	bar.Finish()
	fmt.Println()

	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodePolicyBlocked {
			yellow.Printf("⚠ Blocked by site policy: %v\n", err)
			os.Exit(2)
		}
		red.Printf("✗ Detection failed: %v\n", err)
		os.Exit(1)
	}

	if len(forms) == 0 {
		yellow.Println("⚠ No inquiry forms found")
		return
	}

	green.Printf("✓ Found %d form(s) in %s\n\n", len(forms), time.Since(start).Round(time.Millisecond))
	for _, form := range forms {
		cyan.Printf("  %s\n", form.FormURL)
		dim.Printf("     id: %s   submit: %s   captcha: %v\n", form.ID, form.SubmitSelector, form.HasCaptcha)
		for _, field := range form.Fields {
			requiredMark := ""
			if field.Required {
				requiredMark = " *"
			}
			fmt.Printf("     - %s (%s) %s%s\n", field.Name, field.Type, field.Selector, requiredMark)
		}
		fmt.Println()
	}
}
