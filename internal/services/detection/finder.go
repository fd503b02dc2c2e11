package detection

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const maxContactLinks = 5

// Finder locates candidate inquiry pages on an already loaded page.
type Finder struct {
	logger *zap.Logger
}

func NewFinder(logger *zap.Logger) *Finder {
	return &Finder{logger: logger}
}

// FindContactLinks runs four passes over the page and returns up to five
// same-site candidate URLs. A failure in any single pass or keyword is
// logged and skipped, never aborting the scan.
func (f *Finder) FindContactLinks(page playwright.Page, baseURL string) []string {
	candidates := make(map[string]struct{})

	add := func(href string) {
		abs := resolveURL(baseURL, href)
		if abs != "" {
			candidates[abs] = struct{}{}
		}
	}

	// Pass 1: anchors whose visible text matches a contact keyword.
	for _, keyword := range contactKeywords {
		links, err := page.Locator(fmt.Sprintf("a:has-text('%s')", keyword)).All()
		if err != nil {
			f.logger.Debug("keyword link scan failed",
				zap.String("keyword", keyword),
				zap.Error(err),
			)
			continue
		}
		for _, link := range links {
			if href, err := link.GetAttribute("href"); err == nil && href != "" {
				add(href)
			}
		}
	}

	// Pass 2: href attributes matching a keyword, for icon-only links.
	if links, err := page.Locator("a[href]").All(); err != nil {
		f.logger.Debug("href attribute scan failed", zap.Error(err))
	} else {
		for _, link := range links {
			href, err := link.GetAttribute("href")
			if err != nil || href == "" {
				continue
			}
			if containsAnyKeyword(strings.ToLower(href), contactKeywords) {
				add(href)
			}
		}
	}

	// Pass 3: footer and navigation areas.
	if links, err := page.Locator("footer a, nav a, .footer a, .navigation a").All(); err != nil {
		f.logger.Debug("footer/nav scan failed", zap.Error(err))
	} else {
		for _, link := range links {
			text, terr := link.TextContent()
			href, herr := link.GetAttribute("href")
			if terr != nil || herr != nil || text == "" || href == "" {
				continue
			}
			if containsAnyKeyword(text, contactKeywords) {
				add(href)
			}
		}
	}

	// Pass 4: conventional path guesses, appended unconditionally.
	for _, path := range defaultContactPaths {
		add(path)
	}

	urls := make([]string, 0, len(candidates))
	for u := range candidates {
		urls = append(urls, u)
	}
	return filterContactURLs(urls, baseURL, maxContactLinks)
}

// resolveURL joins href against base and returns "" on parse failure.
func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// filterContactURLs applies the same-site check and the exclusion patterns,
// then caps the result. Candidates are sorted first so output is stable for
// an identical DOM.
func filterContactURLs(candidates []string, baseURL string, limit int) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	sort.Strings(candidates)

	var kept []string
	for _, raw := range candidates {
		if !isValidContactURL(raw, base) {
			continue
		}
		kept = append(kept, raw)
		if len(kept) == limit {
			break
		}
	}
	return kept
}

// isValidContactURL accepts same-host or subdomain-of-base-host URLs that do
// not match any exclusion pattern.
func isValidContactURL(rawURL string, base *url.URL) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Host != base.Host && !strings.HasSuffix(u.Host, "."+base.Host) {
		return false
	}

	for _, pattern := range excludeURLPatterns {
		if pattern.MatchString(rawURL) {
			return false
		}
	}
	return true
}
