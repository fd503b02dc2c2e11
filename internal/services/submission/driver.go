package submission

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// visibleCaptchaSelectors are the submit-time fingerprints. Stricter than
// detection: only a rendered CAPTCHA blocks.
var visibleCaptchaSelectors = []string{
	".g-recaptcha:visible",
	"iframe[src*='recaptcha']:visible",
	"[data-sitekey]:visible",
}

// submitFallbackKeywords drive the live page-wide submit search when the
// stored selector stopped resolving.
var submitFallbackKeywords = []string{"送信", "submit", "send", "確認", "登録", "申し込み"}

// playwrightSession implements formSession over a leased page.
type playwrightSession struct {
	page   playwright.Page
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func newPlaywrightSession(page playwright.Page, cfg config.BrowserConfig, logger *zap.Logger) *playwrightSession {
	return &playwrightSession{page: page, cfg: cfg, logger: logger}
}

func (s *playwrightSession) Navigate(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavigateTimeout.Milliseconds())),
	})
	return err
}

func (s *playwrightSession) Settle(d time.Duration) {
	s.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (s *playwrightSession) HasVisibleCaptcha() bool {
	for _, selector := range visibleCaptchaSelectors {
		if count, err := s.page.Locator(selector).Count(); err == nil && count > 0 {
			return true
		}
	}

	checkbox := s.page.Locator(".recaptcha-checkbox")
	if count, err := checkbox.Count(); err == nil && count > 0 {
		if visible, err := checkbox.First().IsVisible(); err == nil && visible {
			return true
		}
	}
	return false
}

func (s *playwrightSession) FieldExists(selector string) bool {
	count, err := s.page.Locator(selector).Count()
	return err == nil && count > 0
}

func (s *playwrightSession) FillText(selector, value string) error {
	loc := s.page.Locator(selector).First()
	if err := loc.Clear(); err != nil {
		return fmt.Errorf("clearing %s: %w", selector, err)
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("filling %s: %w", selector, err)
	}
	return nil
}

// SelectOption tries matching by option value first, then by visible label.
func (s *playwrightSession) SelectOption(selector, value string) error {
	loc := s.page.Locator(selector).First()

	if _, err := loc.SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	}); err == nil {
		return nil
	}

	if _, err := loc.SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{value},
	}); err != nil {
		return fmt.Errorf("selecting %q in %s: %w", value, selector, err)
	}
	return nil
}

// CheckRadio checks the radio in the group whose value matches, ignoring
// case. A group with no matching value is left untouched.
func (s *playwrightSession) CheckRadio(selector, value string) error {
	radios, err := s.page.Locator(selector).All()
	if err != nil {
		return fmt.Errorf("listing radio group %s: %w", selector, err)
	}

	for _, radio := range radios {
		radioValue, err := radio.GetAttribute("value")
		if err != nil || radioValue == "" {
			continue
		}
		if strings.EqualFold(radioValue, value) {
			return radio.Check()
		}
	}

	s.logger.Debug("no radio option matched value",
		zap.String("selector", selector),
		zap.String("value", value),
	)
	return nil
}

func (s *playwrightSession) SetCheckbox(selector string, checked bool) error {
	loc := s.page.Locator(selector).First()
	if checked {
		return loc.Check()
	}
	return loc.Uncheck()
}

// Submit clicks the stored submit control, or re-runs the priority search
// live when the stored selector no longer resolves.
func (s *playwrightSession) Submit(storedSelector string) error {
	var control playwright.Locator

	if storedSelector != "" {
		loc := s.page.Locator(storedSelector)
		if count, err := loc.Count(); err == nil && count > 0 {
			control = loc.First()
		} else {
			s.logger.Warn("stored submit selector no longer resolves, searching live",
				zap.String("selector", storedSelector),
			)
		}
	}

	if control == nil {
		control = s.findSubmitControl()
	}
	if control == nil {
		return domain.SubmitControlNotFoundError(s.page.URL())
	}

	return control.Click()
}

func (s *playwrightSession) findSubmitControl() playwright.Locator {
	explicit := s.page.Locator("input[type='submit'], button[type='submit']")
	if count, err := explicit.Count(); err == nil && count > 0 {
		return explicit.First()
	}

	for _, keyword := range submitFallbackKeywords {
		loc := s.page.Locator(fmt.Sprintf("button:has-text('%s'), input[value*='%s']", keyword, keyword))
		if count, err := loc.Count(); err == nil && count > 0 {
			return loc.First()
		}
	}

	// Last resort: the final button inside any form.
	formButtons := s.page.Locator("form button, form input[type='button']")
	if count, err := formButtons.Count(); err == nil && count > 0 {
		return formButtons.Last()
	}

	return nil
}

// AwaitLoad waits for DOM content after a click, tolerating timeouts since
// AJAX submissions never fire a navigation.
func (s *playwrightSession) AwaitLoad(timeout time.Duration) {
	if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		s.logger.Debug("post-submit load wait ended without signal", zap.Error(err))
	}
}

func (s *playwrightSession) CurrentURL() string {
	return s.page.URL()
}

func (s *playwrightSession) Content() (string, error) {
	return s.page.Content()
}

func (s *playwrightSession) Screenshot() ([]byte, error) {
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
}
