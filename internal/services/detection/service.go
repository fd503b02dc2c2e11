package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/browser"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/compliance"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
)

// CompanyStore is the company persistence surface detection needs.
type CompanyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	Update(ctx context.Context, company *domain.Company) error
}

// FormStore persists detected forms together with their fields.
type FormStore interface {
	Save(ctx context.Context, form *domain.DetectedForm) error
}

// Service runs form detection for one company URL at a time. Concurrent runs
// against different companies each hold their own browser lease; the only
// shared state is the governor's caches and the global rate limiter.
type Service struct {
	governor  *compliance.Governor
	pool      *browser.Pool
	finder    *Finder
	analyzer  *Analyzer
	companies CompanyStore
	forms     FormStore
	limiter   *rate.Limiter
	cfg       config.BrowserConfig
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewService wires a detection service. limits may disable the global rate
// limiter entirely.
func NewService(
	governor *compliance.Governor,
	pool *browser.Pool,
	companies CompanyStore,
	forms FormStore,
	browserCfg config.BrowserConfig,
	limits config.RateLimitConfig,
	logger *zap.Logger,
) *Service {
	var limiter *rate.Limiter
	if limits.Enabled {
		limiter = rate.NewLimiter(rate.Limit(float64(limits.RequestsPerMin)/60.0), limits.BurstSize)
	}
	return &Service{
		governor:  governor,
		pool:      pool,
		finder:    NewFinder(logger),
		analyzer:  NewAnalyzer(logger),
		companies: companies,
		forms:     forms,
		limiter:   limiter,
		cfg:       browserCfg,
		logger:    logger,
		metrics:   observability.GetMetrics(),
	}
}

// DetectForms crawls the company site, locates inquiry pages, analyzes the
// first qualifying form on each, and persists the results. The company's
// detection status is kept current on every exit path.
func (s *Service) DetectForms(ctx context.Context, companyID uuid.UUID, siteURL string) ([]*domain.DetectedForm, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("loading company %s: %w", companyID, err)
	}

	company.StartDetection()
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("marking detection in progress: %w", err)
	}

	s.logger.Info("form detection started",
		zap.String("company_id", companyID.String()),
		zap.String("url", siteURL),
	)

	forms, linksScanned, err := s.detect(ctx, company, siteURL)
	if err != nil {
		company.FailDetection(err.Error())
		if uerr := s.companies.Update(ctx, company); uerr != nil {
			s.logger.Error("saving detection failure status", zap.Error(uerr))
		}
		s.metrics.RecordDetectionRun("error", 0, linksScanned)
		return nil, err
	}

	company.CompleteDetection(len(forms))
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("marking detection complete: %w", err)
	}

	s.metrics.RecordDetectionRun("completed", len(forms), linksScanned)
	s.logger.Info("form detection completed",
		zap.String("company_id", companyID.String()),
		zap.Int("forms_found", len(forms)),
	)
	return forms, nil
}

func (s *Service) detect(ctx context.Context, company *domain.Company, siteURL string) ([]*domain.DetectedForm, int, error) {
	decision := s.governor.Check(ctx, siteURL)
	s.metrics.RecordComplianceCheck(string(s.governor.Level()), decision.Allowed, decision.DelaySeconds)

	if !decision.Allowed {
		return nil, 0, domain.PolicyBlockedError(siteURL, decision.Errors)
	}
	if len(decision.Warnings) > 0 {
		s.logger.Warn("compliance warnings",
			zap.String("url", siteURL),
			zap.Strings("warnings", decision.Warnings),
		)
	}

	if err := s.pace(ctx, decision.DelaySeconds); err != nil {
		return nil, 0, err
	}

	lease, err := s.pool.Acquire(ctx, s.governor.RecommendedHeaders(siteURL))
	if err != nil {
		return nil, 0, fmt.Errorf("acquiring browser page: %w", err)
	}
	defer lease.Close()

	if err := s.navigate(lease.Page, siteURL); err != nil {
		s.governor.RecordOutcome(siteURL, false)
		return nil, 0, domain.NavigationError(siteURL, err)
	}
	s.governor.RecordOutcome(siteURL, true)

	links := s.finder.FindContactLinks(lease.Page, siteURL)
	s.logger.Info("contact link candidates",
		zap.String("url", siteURL),
		zap.Strings("links", links),
	)

	var forms []*domain.DetectedForm
	for _, link := range links {
		form, err := s.analyzeCandidate(ctx, lease.Page, company.ID, link)
		if err != nil {
			s.logger.Warn("candidate page analysis failed",
				zap.String("url", link),
				zap.Error(err),
			)
			continue
		}
		if form != nil {
			forms = append(forms, form)
		}
	}

	return forms, len(links), nil
}

// analyzeCandidate gates, loads, and analyzes one candidate contact page.
// Every gated fetch reports its outcome back to the governor before the run
// proceeds.
func (s *Service) analyzeCandidate(ctx context.Context, page playwright.Page, companyID uuid.UUID, link string) (*domain.DetectedForm, error) {
	decision := s.governor.Check(ctx, link)
	s.metrics.RecordComplianceCheck(string(s.governor.Level()), decision.Allowed, decision.DelaySeconds)
	if !decision.Allowed {
		s.logger.Warn("candidate page blocked by policy",
			zap.String("url", link),
			zap.Strings("errors", decision.Errors),
		)
		return nil, nil
	}

	if err := s.pace(ctx, decision.DelaySeconds); err != nil {
		return nil, err
	}

	if err := s.navigate(page, link); err != nil {
		s.governor.RecordOutcome(link, false)
		return nil, err
	}

	form := s.analyzer.AnalyzeFirstForm(page, link)
	if form == nil {
		s.governor.RecordOutcome(link, true)
		return nil, nil
	}

	form.ID = uuid.New()
	form.CompanyID = companyID
	if err := form.Validate(); err != nil {
		s.governor.RecordOutcome(link, true)
		return nil, fmt.Errorf("rejecting analyzed form: %w", err)
	}

	if err := s.forms.Save(ctx, form); err != nil {
		s.governor.RecordOutcome(link, false)
		return nil, fmt.Errorf("saving detected form: %w", err)
	}

	s.governor.RecordOutcome(link, true)
	return form, nil
}

// navigate loads a URL waiting for DOM content, bounded by the configured
// timeout.
func (s *Service) navigate(page playwright.Page, url string) error {
	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavigateTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// pace honors the compliance delay and the global rate limiter before a
// gated fetch.
func (s *Service) pace(ctx context.Context, delaySeconds float64) error {
	if delaySeconds > 0 {
		select {
		case <-time.After(time.Duration(delaySeconds * float64(time.Second))):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	return nil
}
