package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
)

// pooledBrowser pairs one launched browser with its live context count.
type pooledBrowser struct {
	browser playwright.Browser
	active  int
}

// Pool owns a single playwright runtime and a fixed set of headless browsers.
// Each lease gets a fresh, isolated browser context on the least busy
// browser. Safe for concurrent use.
type Pool struct {
	pw       *playwright.Playwright
	cfg      config.BrowserConfig
	logger   *zap.Logger
	mu       sync.Mutex
	browsers []*pooledBrowser
	closed   bool
}

// Lease is one scoped browser context with a ready page. Callers must Close
// it when done, which also decrements the owning browser's load.
type Lease struct {
	Page    playwright.Page
	context playwright.BrowserContext
	release func()
	once    sync.Once
}

// Close tears down the context and returns capacity to the pool.
func (l *Lease) Close() {
	l.once.Do(func() {
		if l.context != nil {
			l.context.Close()
		}
		if l.release != nil {
			l.release()
		}
	})
}

// NewPool starts playwright and launches the configured number of browsers.
// Startup is all or nothing: a single launch failure tears everything down.
func NewPool(cfg config.BrowserConfig, logger *zap.Logger) (*Pool, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}

	browsers := make([]*pooledBrowser, 0, size)
	for i := 0; i < size; i++ {
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
		})
		if err != nil {
			for _, pb := range browsers {
				pb.browser.Close()
			}
			pw.Stop()
			return nil, fmt.Errorf("launching browser %d of %d: %w", i+1, size, err)
		}
		browsers = append(browsers, &pooledBrowser{browser: b})
	}

	logger.Info("browser pool started",
		zap.Int("size", size),
		zap.Bool("headless", cfg.Headless),
	)

	return &Pool{
		pw:       pw,
		cfg:      cfg,
		logger:   logger,
		browsers: browsers,
	}, nil
}

// Acquire creates a fresh context and page on the least loaded browser.
// extraHeaders are attached to every request the page makes; pass nil for
// none.
func (p *Pool) Acquire(ctx context.Context, extraHeaders map[string]string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.BrowserUnavailableError("browser pool is closed")
	}
	pb := p.browsers[0]
	for _, candidate := range p.browsers[1:] {
		if candidate.active < pb.active {
			pb = candidate
		}
	}
	pb.active++
	p.mu.Unlock()
	observability.GetMetrics().BrowserLeasesActive.Inc()

	release := func() {
		p.mu.Lock()
		pb.active--
		p.mu.Unlock()
		observability.GetMetrics().BrowserLeasesActive.Dec()
	}

	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  p.cfg.ViewportWidth,
			Height: p.cfg.ViewportHeight,
		},
	}
	if p.cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(p.cfg.UserAgent)
	}

	browserCtx, err := pb.browser.NewContext(opts)
	if err != nil {
		release()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	if len(extraHeaders) > 0 {
		if err := browserCtx.SetExtraHTTPHeaders(extraHeaders); err != nil {
			browserCtx.Close()
			release()
			return nil, fmt.Errorf("setting extra headers: %w", err)
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		release()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	page.SetDefaultTimeout(float64(p.cfg.NavigateTimeout.Milliseconds()))

	return &Lease{
		Page:    page,
		context: browserCtx,
		release: release,
	}, nil
}

// Close shuts down every browser and stops playwright. Outstanding leases
// become unusable.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	browsers := p.browsers
	p.mu.Unlock()

	for _, pb := range browsers {
		if err := pb.browser.Close(); err != nil {
			p.logger.Warn("closing pooled browser", zap.Error(err))
		}
	}
	return p.pw.Stop()
}
