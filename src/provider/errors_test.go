package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantMessage  string
		wantHints    []string
		wantSentinel error
	}{
		{
			name:         "invalid URL",
			err:          fmt.Errorf("%w: https://invalid.com", ErrInvalidURL),
			wantMessage:  "Invalid build URL",
			wantHints:    []string{"Supported formats", "buildkite.com", "github.com"},
			wantSentinel: ErrInvalidURL,
		},
		{
			name:        "401 Unauthorized message",
			err:         errors.New("401 Unauthorized"),
			wantMessage: "Authentication failed",
			wantHints:   []string{"API token", "BUILDKITE_API_TOKEN", "GITHUB_TOKEN"},
		},
		{
			name:         "wrapped ErrAuthFailed",
			err:          fmt.Errorf("request failed: %w", ErrAuthFailed),
			wantMessage:  "Authentication failed",
			wantHints:    []string{"API token"},
			wantSentinel: ErrAuthFailed,
		},
		{
			name:        "404 Not Found message",
			err:         errors.New("404 Not Found"),
			wantMessage: "Build not found",
			wantHints:   []string{"build URL is correct", "you have access"},
		},
		{
			name:         "missing project",
			err:          fmt.Errorf("lookup core: %w", ErrProjectNotFound),
			wantMessage:  "Project not found",
			wantHints:    []string{"upstream-individuals"},
			wantSentinel: ErrProjectNotFound,
		},
		{
			name:         "rate limited",
			err:          ErrRateLimited,
			wantMessage:  "Rate limited by the CI provider",
			wantHints:    []string{"retry"},
			wantSentinel: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			var userErr *UserError
			if !errors.As(wrapped, &userErr) {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			for _, hint := range tt.wantHints {
				if !strings.Contains(userErr.Hint, hint) {
					t.Errorf("Hint should contain %q, got %q", hint, userErr.Hint)
				}
			}
			if tt.wantSentinel != nil && !errors.Is(wrapped, tt.wantSentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.wantSentinel)
			}
		})
	}
}

func TestWrapError_PassThrough(t *testing.T) {
	if WrapError(nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}

	original := errors.New("connection reset by peer")
	if got := WrapError(original); got != original {
		t.Errorf("WrapError() = %v, want original error", got)
	}
}

func TestUserError_Error(t *testing.T) {
	err := &UserError{
		Message: "Something went wrong",
		Hint:    "Try doing this instead",
		Err:     errors.New("underlying"),
	}

	got := err.Error()
	msgIdx := strings.Index(got, "Something went wrong")
	hintIdx := strings.Index(got, "Hint: Try doing this instead")
	detailIdx := strings.Index(got, "Details: underlying")

	if msgIdx != 0 {
		t.Errorf("Message should be at start, found at index %d", msgIdx)
	}
	if hintIdx <= msgIdx {
		t.Errorf("Hint should come after Message, got hint at %d", hintIdx)
	}
	if detailIdx <= hintIdx {
		t.Errorf("Details should come after Hint, got details at %d, hint at %d", detailIdx, hintIdx)
	}

	bare := &UserError{Message: "Only message"}
	if bare.Error() != "Only message" {
		t.Errorf("Error() = %q, want %q", bare.Error(), "Only message")
	}
}

func TestUserError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &UserError{Message: "outer", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(err, inner) = false, want true")
	}
	if (&UserError{Message: "none"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when Err is nil")
	}
}
