package provider

import (
	"fmt"
	"strings"
)

// Result is the outcome of a finished build. The zero value means the build
// has no result yet (still running, or a scripted pipeline never set one).
type Result string

const (
	ResultNone     Result = ""
	ResultSuccess  Result = "SUCCESS"
	ResultUnstable Result = "UNSTABLE"
	ResultFailure  Result = "FAILURE"
	ResultAborted  Result = "ABORTED"
	ResultNotBuilt Result = "NOT_BUILT"
)

// String returns the result name, or "in progress" for ResultNone.
func (r Result) String() string {
	if r == ResultNone {
		return "in progress"
	}
	return string(r)
}

// IsCompleted reports whether r is one of the finished results.
func (r Result) IsCompleted() bool {
	switch r {
	case ResultSuccess, ResultUnstable, ResultFailure, ResultAborted, ResultNotBuilt:
		return true
	}
	return false
}

// ParseResult converts a result name (case-insensitive) into a Result.
// An empty string maps to ResultNone.
func ParseResult(s string) (Result, error) {
	switch r := Result(strings.ToUpper(strings.TrimSpace(s))); r {
	case ResultNone, ResultSuccess, ResultUnstable, ResultFailure, ResultAborted, ResultNotBuilt:
		return r, nil
	}
	return ResultNone, fmt.Errorf("unknown build result %q", s)
}

// BuildRef identifies a build in a CI system
type BuildRef struct {
	Provider string            // "buildkite" or "github"
	BuildID  string            // Unique build identifier
	Metadata map[string]string // Provider-specific metadata
}

// User is an identity that authored changes or is implicated in a failure.
type User struct {
	ID       string `yaml:"id" json:"id"`
	FullName string `yaml:"name" json:"name"`
	// Email is the address configured for the user, if any.
	Email string `yaml:"email" json:"email,omitempty"`
}

// DisplayName returns the full name, falling back to the id.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.ID
}

// ChangeEntry is a single commit attached to a build.
type ChangeEntry struct {
	Author  User   `yaml:"author" json:"author"`
	Message string `yaml:"message" json:"message"`
}
