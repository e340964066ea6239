package errmsg

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/dub-go/dub/internal/resolver"
	"github.com/dub-go/dub/internal/supplier"
)

func TestFormat_NilError(t *testing.T) {
	result := Format(nil, nil)
	if result != "" {
		t.Errorf("expected empty string for nil error, got %q", result)
	}
}

func TestFormat_GenericError(t *testing.T) {
	err := errors.New("something went wrong")
	result := Format(err, nil)
	if result != "something went wrong" {
		t.Errorf("expected original error message, got %q", result)
	}
}

func TestFormat_DependencyConflict(t *testing.T) {
	err := &resolver.DependencyConflict{
		Name:         "vibe-d",
		Contributors: []string{"a depends on vibe-d ~>0.9.0", "b depends on vibe-d ~>0.10.0"},
	}

	result := Format(err, nil)

	checks := []string{
		"no version of",
		"Possible causes:",
		"incompatible versions",
		"Suggestions:",
		"dub describe",
		"dub add-override vibe-d",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_CycleError(t *testing.T) {
	err := &resolver.CycleError{Path: []string{"a", "b", "a"}}

	result := Format(err, nil)

	checks := []string{
		"circular path dependency",
		"Possible causes:",
		"depend on each other",
		"Suggestions:",
		"Break the cycle",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NoMatchingConfiguration(t *testing.T) {
	err := &resolver.NoMatchingConfiguration{Name: "mylib"}

	result := Format(err, nil)

	checks := []string{
		"declares no configuration",
		"Possible causes:",
		"restricts its configurations",
		"Suggestions:",
		"dub describe mylib",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NoSupplierMatch(t *testing.T) {
	err := &resolver.NoSupplierMatch{
		Name:         "nonexistent-package",
		Contributors: []string{"root depends on nonexistent-package ~>1.0.0"},
	}

	ctx := &ErrorContext{PackageName: "nonexistent-package"}
	result := Format(err, ctx)

	checks := []string{
		"no supplier has a version",
		"Possible causes:",
		"does not exist in the configured registry",
		"Suggestions:",
		"dub search nonexistent-package",
		"dub add-local",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_SupplierError_Network(t *testing.T) {
	err := &supplier.Error{
		Kind:     supplier.ErrConnection,
		Supplier: "github",
		Package:  "mylib",
		Message:  "connection failed",
	}

	ctx := &ErrorContext{PackageName: "mylib"}
	result := Format(err, ctx)

	checks := []string{
		"connection failed",
		"Possible causes:",
		"Network connectivity issue",
		"Suggestions:",
		"Check your internet connection",
		"GITHUB_TOKEN",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_SupplierError_NotFound(t *testing.T) {
	err := &supplier.Error{
		Kind:     supplier.ErrNotFound,
		Supplier: "registry",
		Package:  "nodejs",
		Message:  "version v99.0.0 not found",
	}

	ctx := &ErrorContext{PackageName: "nodejs"}
	result := Format(err, ctx)

	checks := []string{
		"version v99.0.0 not found",
		"Possible causes:",
		"does not exist",
		"Suggestions:",
		"dub search nodejs",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_RateLimitError(t *testing.T) {
	err := errors.New("GitHub API rate limit exceeded")
	ctx := &ErrorContext{PackageName: "kubectl"}
	result := Format(err, ctx)

	checks := []string{
		"rate limit",
		"Possible causes:",
		"Too many requests",
		"Suggestions:",
		"GITHUB_TOKEN",
		"Pin an exact version in dub.json for kubectl",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NetworkError(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	result := Format(err, nil)

	checks := []string{
		"connection refused",
		"Possible causes:",
		"Network connectivity issue",
		"Suggestions:",
		"Check your internet connection",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NotFoundError(t *testing.T) {
	err := errors.New("package not found in registry: nonexistent-package")
	ctx := &ErrorContext{PackageName: "nonexistent-package"}
	result := Format(err, ctx)

	checks := []string{
		"not found",
		"Possible causes:",
		"does not exist in the configured registry",
		"Typo",
		"Suggestions:",
		"dub search nonexistent-package",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_PermissionError(t *testing.T) {
	err := errors.New("open /home/user/.dub/packages: permission denied")
	result := Format(err, nil)

	checks := []string{
		"permission denied",
		"Possible causes:",
		"Insufficient permissions",
		"Suggestions:",
		"~/.dub",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

// mockNetError implements net.Error for testing
type mockNetError struct {
	msg       string
	timeout   bool
	temporary bool
}

func (e mockNetError) Error() string   { return e.msg }
func (e mockNetError) Timeout() bool   { return e.timeout }
func (e mockNetError) Temporary() bool { return e.temporary }

// Ensure mockNetError implements net.Error
var _ net.Error = mockNetError{}

func TestFormat_NetError_Timeout(t *testing.T) {
	err := mockNetError{
		msg:     "i/o timeout",
		timeout: true,
	}
	result := Format(err, nil)

	checks := []string{
		"i/o timeout",
		"Possible causes:",
		"Request timed out",
		"Suggestions:",
		"slow proxy",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_WithoutContext(t *testing.T) {
	err := &resolver.NoSupplierMatch{
		Name:         "test",
		Contributors: []string{"root depends on test"},
	}

	result := Format(err, nil)

	// Without a context the suggestion still names the package, taken
	// from the error itself
	if !strings.Contains(result, "dub search test") {
		t.Errorf("expected a search suggestion naming the package, got:\n%s", result)
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"GitHub API rate limit exceeded", true},
		{"rate-limit: too many requests", true},
		{"Too many requests to the server", true},
		{"connection failed", false},
		{"file not found", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isRateLimitError(tt.msg); got != tt.expected {
				t.Errorf("isRateLimitError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"dial tcp: connection refused", true},
		{"connection reset by peer", true},
		{"no such host", true},
		{"i/o timeout", true},
		{"file not found", false},
		{"permission denied", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isNetworkError(tt.msg); got != tt.expected {
				t.Errorf("isNetworkError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"package not found", true},
		{"returned 404", true},
		{"does not exist in registry", true},
		{"connection failed", false},
		{"rate limit exceeded", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isNotFoundError(tt.msg); got != tt.expected {
				t.Errorf("isNotFoundError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"permission denied", true},
		{"access denied", true},
		{"operation not permitted", true},
		{"file not found", false},
		{"connection refused", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isPermissionError(tt.msg); got != tt.expected {
				t.Errorf("isPermissionError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}
