package supplier

import (
	"context"
	"errors"
	"testing"
)

func TestWithRetryEventualSuccess(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func(attempt int) error {
		attempts++
		if attempt < 3 {
			return &Error{Kind: ErrCorruptArchive, Supplier: "test", Package: "pkg", Message: "corrupt"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func(attempt int) error {
		attempts++
		return &Error{Kind: ErrCorruptArchive, Supplier: "test", Package: "pkg", Message: "corrupt"}
	})
	if err == nil {
		t.Fatal("withRetry() succeeded, want terminal failure")
	}
	if attempts != MaxRetries+1 {
		t.Errorf("attempts = %d, want %d", attempts, MaxRetries+1)
	}
	var supErr *Error
	if !errors.As(err, &supErr) || supErr.Kind != ErrCorruptArchive {
		t.Errorf("error = %v, want the last *Error to survive the chain", err)
	}
}

func TestWithRetryConnectionFailureFailsFast(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func(attempt int) error {
		attempts++
		return &Error{Kind: ErrConnection, Supplier: "test", Package: "pkg", Message: "refused"}
	})
	if err == nil {
		t.Fatal("withRetry() succeeded, want immediate failure")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (connection failures are not retried)", attempts)
	}
}

func TestWithRetryNonSupplierErrorFailsFast(t *testing.T) {
	attempts := 0
	sentinel := errors.New("boom")
	err := withRetry(context.Background(), func(attempt int) error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want %v", err, sentinel)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestFallbackURLsRotate(t *testing.T) {
	urls := []string{"https://a.example", "https://b.example"}
	got := []string{
		fallbackURLs(urls, 1),
		fallbackURLs(urls, 2),
		fallbackURLs(urls, 3),
	}
	want := []string{"https://a.example", "https://b.example", "https://a.example"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fallbackURLs(attempt %d) = %q, want %q", i+1, got[i], want[i])
		}
	}
	if fallbackURLs(nil, 1) != "" {
		t.Error("fallbackURLs(nil) should be empty")
	}
}
