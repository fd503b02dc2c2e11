package domain

// ComplianceLevel governs how aggressively warnings escalate to hard blocks.
type ComplianceLevel string

const (
	// ComplianceStrict refuses to proceed when in doubt.
	ComplianceStrict ComplianceLevel = "strict"
	// ComplianceModerate warns but continues unless errors pile up.
	ComplianceModerate ComplianceLevel = "moderate"
	// CompliancePermissive proceeds in almost all cases.
	CompliancePermissive ComplianceLevel = "permissive"
)

func (l ComplianceLevel) IsValid() bool {
	switch l {
	case ComplianceStrict, ComplianceModerate, CompliancePermissive:
		return true
	}
	return false
}

// SitePolicy is the per-domain crawl policy derived from robots.txt and the
// site's landing page. Computed once per process lifetime and cached by
// scheme+host key.
type SitePolicy struct {
	RobotsTxtURL      string  `json:"robots_txt_url"`
	TermsOfServiceURL string  `json:"terms_of_service_url,omitempty"`
	AllowsCrawling    bool    `json:"allows_crawling"`
	RequiresDelay     float64 `json:"requires_delay"` // seconds, never below 1.0
}

// ComplianceDecision is the value object returned per compliance check,
// constructed fresh each call.
type ComplianceDecision struct {
	Allowed         bool     `json:"allowed"`
	Warnings        []string `json:"warnings,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	DelaySeconds    float64  `json:"delay_seconds"`
}
