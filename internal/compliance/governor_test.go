package compliance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

func newTestGovernor(level domain.ComplianceLevel, client *http.Client) *Governor {
	cfg := DefaultConfig()
	cfg.Level = level
	g := NewGovernor(cfg, zap.NewNop())
	if client != nil {
		g.client = client
		g.tos = NewTermsDetector(client)
	}
	g.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	g.jitter = func() float64 { return midJitter }
	return g
}

func robotsServer(t *testing.T, robots, landing string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var robotsFetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			robotsFetches.Add(1)
			w.Write([]byte(robots))
		case "/":
			w.Write([]byte(landing))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &robotsFetches
}

func TestGovernorGetSitePolicy_CachedPerDomain(t *testing.T) {
	srv, fetches := robotsServer(t, "User-agent: *\nCrawl-delay: 3\n", "<html></html>")
	g := newTestGovernor(domain.ComplianceModerate, srv.Client())

	first, err := g.GetSitePolicy(context.Background(), srv.URL+"/contact")
	require.NoError(t, err)
	second, err := g.GetSitePolicy(context.Background(), srv.URL+"/inquiry")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), fetches.Load())
	assert.True(t, first.AllowsCrawling)
	assert.Equal(t, 3.0, first.RequiresDelay)
}

func TestGovernorGetSitePolicy_DelayFloor(t *testing.T) {
	srv, _ := robotsServer(t, "User-agent: *\nCrawl-delay: 0.2\n", "<html></html>")
	g := newTestGovernor(domain.ComplianceModerate, srv.Client())

	policy, err := g.GetSitePolicy(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 1.0, policy.RequiresDelay)
}

func TestGovernorGetSitePolicy_UnreachableSiteFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	g := newTestGovernor(domain.ComplianceStrict, nil)

	policy, err := g.GetSitePolicy(context.Background(), deadURL+"/contact")
	require.NoError(t, err)

	assert.True(t, policy.AllowsCrawling)
	assert.Equal(t, degradedDelay, policy.RequiresDelay)
}

func TestGovernorGetSitePolicy_RootFetchFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nCrawl-delay: 30\n"))
		case "/":
			panic(http.ErrAbortHandler)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := newTestGovernor(domain.ComplianceModerate, srv.Client())

	policy, err := g.GetSitePolicy(context.Background(), srv.URL+"/contact")
	require.NoError(t, err)

	// A reachable robots.txt does not save the derivation; the failed root
	// fetch discards the crawl-delay and lands on the conservative default.
	assert.True(t, policy.AllowsCrawling)
	assert.Equal(t, degradedDelay, policy.RequiresDelay)
	assert.Empty(t, policy.TermsOfServiceURL)
}

func TestGovernorGetSitePolicy_InvalidURL(t *testing.T) {
	g := newTestGovernor(domain.ComplianceModerate, nil)

	_, err := g.GetSitePolicy(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestGovernorCheck_StrictBlocksOnDisallow(t *testing.T) {
	srv, _ := robotsServer(t, "User-agent: *\nDisallow: /\n", "<html></html>")
	g := newTestGovernor(domain.ComplianceStrict, srv.Client())

	decision := g.Check(context.Background(), srv.URL+"/contact")

	assert.False(t, decision.Allowed)
	assert.NotEmpty(t, decision.Errors)
}

func TestGovernorCheck_ModerateWarnsOnDisallow(t *testing.T) {
	srv, _ := robotsServer(t, "User-agent: *\nDisallow: /\n", "<html></html>")
	g := newTestGovernor(domain.ComplianceModerate, srv.Client())

	decision := g.Check(context.Background(), srv.URL+"/contact")

	assert.True(t, decision.Allowed)
	assert.NotEmpty(t, decision.Warnings)
	assert.Empty(t, decision.Errors)
}

func TestGovernorCheck_PermissiveNeverBlocks(t *testing.T) {
	srv, _ := robotsServer(t, "User-agent: *\nDisallow: /\n", "<html></html>")
	g := newTestGovernor(domain.CompliancePermissive, srv.Client())

	decision := g.Check(context.Background(), srv.URL+"/contact")
	assert.True(t, decision.Allowed)
}

func TestGovernorCheck_TermsProhibitionBlocksStrict(t *testing.T) {
	landing := `<html><body><a href="/terms">Terms of Service</a></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
		case "/":
			w.Write([]byte(landing))
		case "/terms":
			w.Write([]byte("Automated scraping is prohibited. Contact us for API access."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	strict := newTestGovernor(domain.ComplianceStrict, srv.Client())
	decision := strict.Check(context.Background(), srv.URL+"/contact")
	assert.False(t, decision.Allowed)
	assert.NotEmpty(t, decision.Errors)

	// The same signals surface under moderate without blocking.
	moderate := newTestGovernor(domain.ComplianceModerate, srv.Client())
	decision = moderate.Check(context.Background(), srv.URL+"/contact")
	assert.True(t, decision.Allowed)
	assert.NotEmpty(t, decision.Errors)
}

func TestGovernorCheck_BackoffRaisesDelay(t *testing.T) {
	srv, _ := robotsServer(t, "User-agent: *\n", "<html></html>")
	g := newTestGovernor(domain.ComplianceModerate, srv.Client())
	current := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }
	target := srv.URL + "/contact"

	before := g.Check(context.Background(), target)
	assert.InDelta(t, 1.0, before.DelaySeconds, 1e-9)

	g.RecordOutcome(target, false)
	g.RecordOutcome(target, false)

	after := g.Check(context.Background(), target)
	assert.InDelta(t, 4.0, after.DelaySeconds, 1e-9)

	// An immediate success forgives nothing; both failures are inside the
	// ten minute window.
	g.RecordOutcome(target, true)
	held := g.Check(context.Background(), target)
	assert.InDelta(t, 4.0, held.DelaySeconds, 1e-9)

	// Fifteen minutes later the same success clears the streak.
	current = current.Add(15 * time.Minute)
	g.RecordOutcome(target, true)
	recovered := g.Check(context.Background(), target)
	assert.InDelta(t, 1.0, recovered.DelaySeconds, 1e-9)
}

func TestGovernorCheck_LongDelayRecommendsSlowingDown(t *testing.T) {
	srv, _ := robotsServer(t, "User-agent: *\nCrawl-delay: 10\n", "<html></html>")
	g := newTestGovernor(domain.ComplianceModerate, srv.Client())

	decision := g.Check(context.Background(), srv.URL+"/contact")

	assert.Equal(t, 10.0, decision.DelaySeconds)
	assert.NotEmpty(t, decision.Recommendations)
}

func TestGovernorRecommendedHeaders(t *testing.T) {
	g := newTestGovernor(domain.ComplianceModerate, nil)

	headers := g.RecommendedHeaders("https://example.com/contact")

	assert.Equal(t, g.cfg.UserAgent, headers["User-Agent"])
	assert.Equal(t, "1", headers["DNT"])
	assert.Contains(t, headers["Accept-Language"], "ja")
}
