package compliance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Keyword families for terms-of-service scanning. Japanese terms are included
// because the primary deployment targets Japanese corporate sites.
var (
	tosKeywords = []string{
		"terms of service", "terms of use", "user agreement",
		"利用規約", "利用条件", "使用条件", "約款",
		"legal notice", "service agreement",
	}

	automationKeywords = []string{
		"bot", "crawler", "scraping", "automated", "robot",
		"machine", "programmatic", "script",
		"ボット", "クローラー", "スクレイピング", "自動",
		"機械的", "プログラム", "スクリプト",
	}

	prohibitionKeywords = []string{
		"prohibited", "forbidden", "not allowed", "ban", "restrict",
		"禁止", "禁ずる", "不可", "制限", "違法",
	}

	contactKeywords = []string{
		"contact", "support", "inquiry", "連絡", "問い合わせ",
	}
)

// termsReport is the result of scanning a terms-of-service page. An error
// entry means automation-restriction and prohibition language co-occur; a
// lone automation mention is only a warning.
type termsReport struct {
	Allowed         bool
	Warnings        []string
	Errors          []string
	Recommendations []string
}

// TermsDetector locates and scans terms-of-service pages.
type TermsDetector struct {
	client *http.Client
}

// NewTermsDetector creates a detector sharing the governor's HTTP client.
func NewTermsDetector(client *http.Client) *TermsDetector {
	return &TermsDetector{client: client}
}

// DetectTermsURL scans a landing page's anchors for a terms-of-service link
// and returns its absolute URL, or "" when none is found.
func (d *TermsDetector) DetectTermsURL(baseURL, htmlContent string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attrValue(n, "href")
			if href != "" {
				text := strings.ToLower(strings.TrimSpace(nodeText(n)))
				for _, kw := range tosKeywords {
					if strings.Contains(text, kw) {
						if ref, err := url.Parse(href); err == nil {
							found = base.ResolveReference(ref).String()
						}
						return
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// AnalyzeTerms fetches a terms-of-service page and scans it for automation
// restrictions. Fetch failures degrade to a warning, never an error: the
// engine fails open on infrastructure problems and closed only on actual
// policy language.
func (d *TermsDetector) AnalyzeTerms(ctx context.Context, tosURL string) termsReport {
	report := termsReport{Allowed: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tosURL, nil)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("could not build terms-of-service request for %s: %v", tosURL, err))
		return report
	}

	resp, err := d.client.Do(req)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("could not fetch terms of service: %s", tosURL))
		return report
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		report.Warnings = append(report.Warnings, fmt.Sprintf("could not fetch terms of service: %s", tosURL))
		return report
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("could not read terms of service: %s", tosURL))
		return report
	}

	content := strings.ToLower(string(body))

	var automationHits []string
	for _, kw := range automationKeywords {
		if strings.Contains(content, kw) {
			automationHits = append(automationHits, kw)
		}
	}

	if len(automationHits) > 0 {
		prohibited := false
		for _, kw := range prohibitionKeywords {
			if strings.Contains(content, kw) {
				prohibited = true
				break
			}
		}

		sample := automationHits
		if len(sample) > 3 {
			sample = sample[:3]
		}

		if prohibited {
			report.Errors = append(report.Errors,
				fmt.Sprintf("terms of service appear to prohibit automated access (keywords: %s)", strings.Join(sample, ", ")))
			report.Recommendations = append(report.Recommendations,
				"consider manual access or obtaining prior permission")
			report.Allowed = false
		} else {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("terms of service mention automation, manual review recommended (keywords: %s)", strings.Join(sample, ", ")))
		}
	}

	hasContact := false
	for _, kw := range contactKeywords {
		if strings.Contains(content, kw) {
			hasContact = true
			break
		}
	}
	if !hasContact {
		report.Recommendations = append(report.Recommendations,
			"no contact information found, consider requesting permission in advance")
	}

	return report
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
