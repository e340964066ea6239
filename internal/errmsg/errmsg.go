// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dub-go/dub/internal/resolver"
	"github.com/dub-go/dub/internal/supplier"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	PackageName string // The package being operated on (for suggestions)
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	errMsg := err.Error()

	var conflict *resolver.DependencyConflict
	if errors.As(err, &conflict) {
		return formatDependencyConflict(conflict, ctx)
	}

	var cycle *resolver.CycleError
	if errors.As(err, &cycle) {
		return formatCycleError(cycle, ctx)
	}

	var noConfig *resolver.NoMatchingConfiguration
	if errors.As(err, &noConfig) {
		return formatNoMatchingConfiguration(noConfig, ctx)
	}

	var noSupplier *resolver.NoSupplierMatch
	if errors.As(err, &noSupplier) {
		return formatNoSupplierMatch(noSupplier, ctx)
	}

	// Check for supplier.Error (structured errors from the fetch layer)
	var supplierErr *supplier.Error
	if errors.As(err, &supplierErr) {
		return formatSupplierError(supplierErr, ctx)
	}

	// Check for rate limit errors (string matching for unstructured errors)
	if isRateLimitError(errMsg) {
		return formatRateLimitError(errMsg, ctx)
	}

	// Check for network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(netErr, ctx)
	}

	// Check for connection-related errors by message
	if isNetworkError(errMsg) {
		return formatGenericNetworkError(errMsg, ctx)
	}

	// Check for "not found" errors
	if isNotFoundError(errMsg) {
		return formatNotFoundError(errMsg, ctx)
	}

	// Check for permission errors
	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg, ctx)
	}

	// Return original error for unrecognized types
	return errMsg
}

func formatDependencyConflict(err *resolver.DependencyConflict, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Two or more dependencies require incompatible versions of the same package\n")
	sb.WriteString("  - A version constraint in dub.json is stricter than necessary\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Run 'dub describe' to see the full dependency tree\n")
	sb.WriteString(fmt.Sprintf("  - Add an explicit override: dub add-override %s <version>\n", err.Name))
	sb.WriteString("  - Loosen the conflicting constraint in dub.json\n")

	return sb.String()
}

func formatCycleError(err *resolver.CycleError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Two path-based dependencies depend on each other, directly or transitively\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Break the cycle by removing one of the path dependencies\n")
	sb.WriteString("  - Extract the shared code into a third package both sides depend on\n")

	return sb.String()
}

func formatNoMatchingConfiguration(err *resolver.NoMatchingConfiguration, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The package's dub.json restricts its configurations to other platforms\n")
	sb.WriteString("  - The --config flag names a configuration that does not exist\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString(fmt.Sprintf("  - Run 'dub describe %s' to see its available configurations\n", err.Name))
	sb.WriteString("  - Add a \"platforms\" entry covering this platform to one of its configurations\n")

	return sb.String()
}

func formatNoSupplierMatch(err *resolver.NoSupplierMatch, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The package does not exist in the configured registry\n")
	sb.WriteString("  - No published version satisfies the requested range\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString(fmt.Sprintf("  - Run 'dub search %s' to see what is published\n", err.Name))
	sb.WriteString("  - Loosen the version range in dub.json\n")
	sb.WriteString("  - Add a local override with 'dub add-local' or 'dub add-path' if you have the source\n")

	return sb.String()
}

func formatSupplierError(err *supplier.Error, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	switch err.Kind {
	case supplier.ErrConnection, supplier.ErrTimeout:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - Registry temporarily unavailable\n")
		sb.WriteString("  - GitHub API rate limit exceeded\n")

		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check your internet connection\n")
		sb.WriteString("  - Set DUB_GITHUB_TOKEN to increase rate limit\n")
		sb.WriteString("  - Try again in a few minutes\n")

	case supplier.ErrNotFound:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The package or version does not exist\n")
		sb.WriteString("  - The registry no longer serves this version\n")

		sb.WriteString("\nSuggestions:\n")
		if ctx != nil && ctx.PackageName != "" {
			sb.WriteString(fmt.Sprintf("  - Run 'dub search %s' to see available versions\n", ctx.PackageName))
		} else {
			sb.WriteString("  - Run 'dub search <package>' to see available versions\n")
		}
		sb.WriteString("  - Use a looser version range to pick up what is actually published\n")

	case supplier.ErrRateLimit:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - Too many requests to the registry or GitHub API\n")
		sb.WriteString("  - Unauthenticated requests have a lower rate limit\n")

		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Set DUB_GITHUB_TOKEN environment variable to increase rate limit\n")
		sb.WriteString("  - Wait a few minutes before retrying\n")

	case supplier.ErrCorruptArchive:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The download was interrupted\n")
		sb.WriteString("  - A stale partial archive is sitting in the package cache\n")

		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Try again; downloads are retried automatically but a bad fetch can still slip through\n")
		sb.WriteString(fmt.Sprintf("  - Remove the cached copy of %s and refetch\n", err.Package))

	case supplier.ErrServerError:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The registry returned a server error\n")

		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Try again in a few minutes\n")

	default:
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check the package's dub.json for a malformed dependency entry\n")
	}

	return sb.String()
}

func formatRateLimitError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Too many requests to the API\n")
	sb.WriteString("  - Unauthenticated requests have lower limits\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Set DUB_GITHUB_TOKEN environment variable to increase rate limit\n")
	sb.WriteString("  - Wait a few minutes before retrying\n")
	if ctx != nil && ctx.PackageName != "" {
		sb.WriteString(fmt.Sprintf("  - Pin an exact version in dub.json for %s to skip range resolution\n", ctx.PackageName))
	}

	return sb.String()
}

func formatNetworkError(err net.Error, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if err.Timeout() {
		sb.WriteString("  - Request timed out\n")
		sb.WriteString("  - Slow or unstable network connection\n")
	} else {
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - DNS resolution failure\n")
	}
	sb.WriteString("  - Firewall or proxy blocking the connection\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")
	if err.Timeout() {
		sb.WriteString("  - Check if you're behind a slow proxy\n")
	}

	return sb.String()
}

func formatGenericNetworkError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Network connectivity issue\n")
	sb.WriteString("  - DNS resolution failure\n")
	sb.WriteString("  - Registry temporarily unavailable\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")

	return sb.String()
}

func formatNotFoundError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The package does not exist in the configured registry\n")
	sb.WriteString("  - Typo in the package name\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check the spelling of the package name\n")
	if ctx != nil && ctx.PackageName != "" {
		sb.WriteString(fmt.Sprintf("  - Run 'dub search %s' to see what is published\n", ctx.PackageName))
	} else {
		sb.WriteString("  - Run 'dub search <package>' to see what is published\n")
	}
	sb.WriteString("  - Add a local override with 'dub add-local' or 'dub add-path' if you have the source\n")

	return sb.String()
}

func formatPermissionError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Insufficient permissions on the $DUB_HOME directory\n")
	sb.WriteString("  - File or directory owned by a different user\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check permissions on ~/.dub\n")
	sb.WriteString("  - Ensure you own the cache directories: ls -la ~/.dub\n")

	return sb.String()
}

// isRateLimitError checks if the error message indicates a rate limit
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "i/o timeout")
}

// isNotFoundError checks if the error message indicates something not found
func isNotFoundError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "404") ||
		strings.Contains(lower, "does not exist")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
