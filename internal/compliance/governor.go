package compliance

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
)

const (
	// Floors applied to every derived policy.
	minPolicyDelay = 1.0
	// Conservative delay used when policy derivation fails entirely.
	degradedDelay = 2.0
	// Errors tolerated under the moderate level before blocking.
	moderateErrorLimit = 3
)

// Config controls governor behavior.
type Config struct {
	Level        domain.ComplianceLevel
	BotName      string
	UserAgent    string
	FetchTimeout time.Duration
	Backoff      BackoffConfig
}

// DefaultConfig returns moderate-level defaults.
func DefaultConfig() Config {
	return Config{
		Level:        domain.ComplianceModerate,
		BotName:      "autoinquirybot",
		UserAgent:    "AutoInquiryBot/1.0 (+https://example.com/bot-info)",
		FetchTimeout: 10 * time.Second,
		Backoff:      DefaultBackoffConfig(),
	}
}

// Governor is the per-process compliance authority. It caches one SitePolicy
// per scheme+host, tracks per-domain backoff state, and renders a fresh
// ComplianceDecision for every check. Safe for concurrent use across runs.
type Governor struct {
	cfg    Config
	client *http.Client
	tos    *TermsDetector
	logger *zap.Logger

	mu       sync.Mutex
	policies map[string]*domain.SitePolicy
	backoffs map[string]*Backoff

	// Hooks for deterministic tests.
	now    func() time.Time
	jitter func() float64
}

// NewGovernor creates a governor with its own HTTP client bounded by the
// configured fetch timeout.
func NewGovernor(cfg Config, logger *zap.Logger) *Governor {
	client := &http.Client{Timeout: cfg.FetchTimeout}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Governor{
		cfg:      cfg,
		client:   client,
		tos:      NewTermsDetector(client),
		logger:   logger,
		policies: make(map[string]*domain.SitePolicy),
		backoffs: make(map[string]*Backoff),
		now:      time.Now,
		jitter:   rng.Float64,
	}
}

// domainKey buckets policies and backoff state by scheme+host.
func domainKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// GetSitePolicy returns the cached policy for the URL's domain, deriving it
// on first access. Derivation fetches robots.txt and the origin root page;
// any failure degrades to a conservative default instead of erroring.
func (g *Governor) GetSitePolicy(ctx context.Context, rawURL string) (*domain.SitePolicy, error) {
	key, err := domainKey(rawURL)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if p, ok := g.policies[key]; ok {
		g.mu.Unlock()
		return p, nil
	}
	g.mu.Unlock()

	// Derived outside the lock; a concurrent first lookup may race and one
	// result wins, which is harmless for an immutable policy.
	policy := g.derivePolicy(ctx, key)

	g.mu.Lock()
	if existing, ok := g.policies[key]; ok {
		policy = existing
	} else {
		g.policies[key] = policy
	}
	g.mu.Unlock()

	return policy, nil
}

func (g *Governor) derivePolicy(ctx context.Context, origin string) *domain.SitePolicy {
	robotsURL := origin + "/robots.txt"

	robotsContent, robotsErr := g.fetchText(ctx, robotsURL)
	if robotsErr != nil {
		g.logger.Warn("robots.txt fetch failed, using conservative default policy",
			zap.String("url", robotsURL),
			zap.Error(robotsErr),
		)
		observability.GetMetrics().RecordPolicyFetch(false)
		return &domain.SitePolicy{
			RobotsTxtURL:   robotsURL,
			AllowsCrawling: true,
			RequiresDelay:  degradedDelay,
		}
	}

	allows, delay := parseRobotsTxt(robotsContent, g.cfg.BotName)

	// The landing page is scanned for a terms-of-service link. Any fetch
	// failure here degrades the whole derivation to the conservative default,
	// same as a robots.txt failure.
	rootContent, rootErr := g.fetchText(ctx, origin)
	if rootErr != nil {
		g.logger.Warn("origin root fetch failed, using conservative default policy",
			zap.String("origin", origin),
			zap.Error(rootErr),
		)
		observability.GetMetrics().RecordPolicyFetch(false)
		return &domain.SitePolicy{
			RobotsTxtURL:   robotsURL,
			AllowsCrawling: true,
			RequiresDelay:  degradedDelay,
		}
	}
	tosURL := g.tos.DetectTermsURL(origin, rootContent)

	if delay < minPolicyDelay {
		delay = minPolicyDelay
	}

	observability.GetMetrics().RecordPolicyFetch(true)
	return &domain.SitePolicy{
		RobotsTxtURL:      robotsURL,
		TermsOfServiceURL: tosURL,
		AllowsCrawling:    allows,
		RequiresDelay:     delay,
	}
}

// fetchText GETs a URL and returns the body. Non-200 responses count as an
// empty document, not an error, mirroring how crawlers treat a missing
// robots.txt.
func (g *Governor) fetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Check renders a compliance decision for one prospective fetch. It never
// fails on infrastructure errors: those become warnings with allowed=true.
// Only policy and legal signals can block, and only per the configured level.
func (g *Governor) Check(ctx context.Context, rawURL string) domain.ComplianceDecision {
	decision := domain.ComplianceDecision{Allowed: true}

	key, err := domainKey(rawURL)
	if err != nil {
		decision.Warnings = append(decision.Warnings, fmt.Sprintf("unparseable url: %v", err))
		return decision
	}

	policy, err := g.GetSitePolicy(ctx, rawURL)
	if err != nil {
		decision.Warnings = append(decision.Warnings, fmt.Sprintf("site policy unavailable: %v", err))
		decision.DelaySeconds = degradedDelay
		return decision
	}

	decision.DelaySeconds = policy.RequiresDelay

	if !policy.AllowsCrawling {
		if g.cfg.Level == domain.ComplianceStrict {
			decision.Errors = append(decision.Errors, "robots.txt disallows crawling for this user agent")
		} else {
			decision.Warnings = append(decision.Warnings, "robots.txt may restrict access for this user agent")
		}
	}

	g.mu.Lock()
	backoff := g.backoffs[key]
	if backoff == nil {
		backoff = NewBackoff(g.cfg.Backoff)
		g.backoffs[key] = backoff
	}
	backoffDelay := backoff.Delay(g.now(), g.jitter())
	g.mu.Unlock()

	if backoffDelay > decision.DelaySeconds {
		decision.DelaySeconds = backoffDelay
	}

	if policy.TermsOfServiceURL != "" {
		report := g.tos.AnalyzeTerms(ctx, policy.TermsOfServiceURL)
		decision.Warnings = append(decision.Warnings, report.Warnings...)
		decision.Errors = append(decision.Errors, report.Errors...)
		decision.Recommendations = append(decision.Recommendations, report.Recommendations...)

		if !report.Allowed && g.cfg.Level == domain.ComplianceStrict {
			decision.Errors = append(decision.Errors, "terms of service restrict automated access")
		}
	} else if g.cfg.Level == domain.ComplianceStrict {
		decision.Warnings = append(decision.Warnings, "no terms of service found, manual confirmation recommended")
	}

	if decision.DelaySeconds > 5 {
		decision.Recommendations = append(decision.Recommendations,
			fmt.Sprintf("avoid high-frequency access to this domain, keep at least %.1fs between requests", decision.DelaySeconds))
	}

	switch g.cfg.Level {
	case domain.ComplianceStrict:
		if len(decision.Errors) > 0 {
			decision.Allowed = false
		}
	case domain.ComplianceModerate:
		if len(decision.Errors) >= moderateErrorLimit {
			decision.Allowed = false
		}
	case domain.CompliancePermissive:
		// Errors are reported but never block.
	}

	return decision
}

// RecordOutcome feeds a fetch result back into the domain's backoff state.
// Detection and submission call this after every gated fetch resolves,
// keeping the curve causally consistent with actual request outcomes.
func (g *Governor) RecordOutcome(rawURL string, success bool) {
	key, err := domainKey(rawURL)
	if err != nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	backoff := g.backoffs[key]
	if backoff == nil {
		backoff = NewBackoff(g.cfg.Backoff)
		g.backoffs[key] = backoff
	}

	if success {
		backoff.RecordSuccess(g.now())
	} else {
		backoff.RecordFailure(g.now())
	}
}

// RecommendedHeaders returns the polite-crawler header set to attach to
// page loads for the given URL.
func (g *Governor) RecommendedHeaders(rawURL string) map[string]string {
	return map[string]string{
		"User-Agent":      g.cfg.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "ja,en-US;q=0.7,en;q=0.3",
		"Accept-Encoding": "gzip, deflate",
		"DNT":             "1",
		"Connection":      "keep-alive",
		"Cache-Control":   "max-age=0",
	}
}

// Level exposes the configured compliance level.
func (g *Governor) Level() domain.ComplianceLevel {
	return g.cfg.Level
}
