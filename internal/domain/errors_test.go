package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Is(t *testing.T) {
	err := PolicyBlockedError("https://example.com", []string{"robots.txt disallows crawling"})

	if !errors.Is(err, ErrPolicyBlockedVal) {
		t.Error("PolicyBlockedError should match ErrPolicyBlockedVal")
	}
	if errors.Is(err, ErrNotFoundVal) {
		t.Error("PolicyBlockedError should not match ErrNotFoundVal")
	}
}

func TestDomainError_WrappedThroughFmt(t *testing.T) {
	inner := RequiredFieldError("email")
	outer := fmt.Errorf("filling form: %w", inner)

	if !IsSentinelError(outer, ErrRequiredFieldVal) {
		t.Error("wrapped required-field error should still match sentinel")
	}
	if ErrorCode(outer) != ErrCodeRequiredField {
		t.Errorf("ErrorCode = %q, want %q", ErrorCode(outer), ErrCodeRequiredField)
	}
}

func TestErrorCode_PlainError(t *testing.T) {
	if code := ErrorCode(errors.New("boom")); code != "" {
		t.Errorf("ErrorCode(plain) = %q, want empty", code)
	}
}

func TestNoFormFoundError(t *testing.T) {
	err := NoFormFoundError("0c9a5f47")
	if !errors.Is(err, ErrNoFormFoundVal) {
		t.Error("NoFormFoundError should match ErrNoFormFoundVal")
	}
	if ErrorCode(err) != ErrCodeNoFormFound {
		t.Errorf("ErrorCode = %q, want %q", ErrorCode(err), ErrCodeNoFormFound)
	}
}

func TestSubmitControlNotFoundError(t *testing.T) {
	err := SubmitControlNotFoundError("https://example.com/contact")
	if ErrorCode(err) != ErrCodeSubmitNotFound {
		t.Errorf("ErrorCode = %q, want %q", ErrorCode(err), ErrCodeSubmitNotFound)
	}
	if err.Details["url"] != "https://example.com/contact" {
		t.Errorf("Details[url] = %v", err.Details["url"])
	}
}

func TestBrowserUnavailableError(t *testing.T) {
	wrapped := fmt.Errorf("acquiring page: %w", BrowserUnavailableError("browser pool is closed"))
	if ErrorCode(wrapped) != ErrCodeBrowserUnavailable {
		t.Errorf("ErrorCode = %q, want %q", ErrorCode(wrapped), ErrCodeBrowserUnavailable)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("form", "123")
	if !errors.Is(err, ErrNotFoundVal) {
		t.Error("NotFoundError should match ErrNotFoundVal")
	}
	if err.Details["resource"] != "form" {
		t.Errorf("Details[resource] = %v", err.Details["resource"])
	}
}
