// Package config provides configuration management for buildmail.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the environment leaves a setting empty.
const (
	DefaultSMTPTimeout = 60 * time.Second
	DefaultMaxLogLines = 250
	DefaultCharset     = "UTF-8"
	DefaultSQLitePath  = "buildmail.db"
	DefaultMetricsAddr = ":9464"

	// The SMTP timeout is clamped so a hung peer cannot stall a build.
	minSMTPTimeout = time.Second
	maxSMTPTimeout = 5 * time.Minute
)

// Config holds the application configuration.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	// SMTPSecurity is one of none, ssl or starttls.
	SMTPSecurity string
	SMTPTimeout  time.Duration

	// AdminAddress is the From address; "Name <addr>" is accepted.
	AdminAddress  string
	ReplyTo       string
	DefaultSuffix string
	// BaseURL is the CI root URL links in messages are built from.
	BaseURL     string
	Charset     string
	MaxLogLines int
	// Hostname is the Message-Id domain.
	Hostname string

	// Debug overrides of the authorization policy.
	SendToUnknownUsers     bool
	SendToUsersWithoutRead bool
	Verbose                bool

	// AllowedDomains restricts recipients to these domains when set.
	AllowedDomains []string
	// JobsFile is the YAML file holding per-project notification options.
	JobsFile string
	// IdentityFile is the YAML user directory. Without one every build is
	// readable and users are reached at their commit address.
	IdentityFile string

	SQLitePath      string
	PostgresDSN     string
	RedpandaBrokers []string
	MetricsAddr     string

	// BuildkiteAPIToken is the API token for authenticating with Buildkite.
	BuildkiteAPIToken string
	GitHubToken       string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		SMTPHost:          os.Getenv("BUILDMAIL_SMTP_HOST"),
		SMTPUser:          os.Getenv("BUILDMAIL_SMTP_USER"),
		SMTPPassword:      os.Getenv("BUILDMAIL_SMTP_PASSWORD"),
		SMTPSecurity:      strings.ToLower(os.Getenv("BUILDMAIL_SMTP_SECURITY")),
		AdminAddress:      os.Getenv("BUILDMAIL_ADMIN_ADDRESS"),
		ReplyTo:           os.Getenv("BUILDMAIL_REPLY_TO"),
		DefaultSuffix:     os.Getenv("BUILDMAIL_DEFAULT_SUFFIX"),
		BaseURL:           os.Getenv("BUILDMAIL_BASE_URL"),
		Charset:           envOr("BUILDMAIL_CHARSET", DefaultCharset),
		Hostname:          os.Getenv("BUILDMAIL_HOSTNAME"),
		AllowedDomains:    splitList(os.Getenv("BUILDMAIL_ALLOWED_DOMAINS")),
		JobsFile:          os.Getenv("BUILDMAIL_JOBS_FILE"),
		IdentityFile:      os.Getenv("BUILDMAIL_IDENTITY_FILE"),
		SQLitePath:        envOr("BUILDMAIL_SQLITE_PATH", DefaultSQLitePath),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedpandaBrokers:   splitList(os.Getenv("REDPANDA_BROKERS")),
		MetricsAddr:       envOr("BUILDMAIL_METRICS_ADDR", DefaultMetricsAddr),
		BuildkiteAPIToken: os.Getenv("BUILDKITE_API_TOKEN"),
		GitHubToken:       os.Getenv("GITHUB_TOKEN"),
	}

	var err error
	if cfg.SMTPPort, err = envInt("BUILDMAIL_SMTP_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.MaxLogLines, err = envInt("BUILDMAIL_MAX_LOG_LINES", DefaultMaxLogLines); err != nil {
		return nil, err
	}
	if cfg.SMTPTimeout, err = envDuration("BUILDMAIL_SMTP_TIMEOUT", DefaultSMTPTimeout); err != nil {
		return nil, err
	}
	if cfg.SendToUnknownUsers, err = envBool("BUILDMAIL_SEND_TO_UNKNOWN_USERS"); err != nil {
		return nil, err
	}
	if cfg.SendToUsersWithoutRead, err = envBool("BUILDMAIL_SEND_TO_USERS_WITHOUT_READ"); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = envBool("BUILDMAIL_VERBOSE"); err != nil {
		return nil, err
	}

	switch cfg.SMTPSecurity {
	case "", "none", "ssl", "starttls":
	default:
		return nil, fmt.Errorf("BUILDMAIL_SMTP_SECURITY must be none, ssl or starttls, got %q", cfg.SMTPSecurity)
	}
	if cfg.SMTPPort < 0 || cfg.SMTPPort > 65535 {
		return nil, fmt.Errorf("BUILDMAIL_SMTP_PORT out of range: %d", cfg.SMTPPort)
	}
	if cfg.MaxLogLines < 0 {
		return nil, fmt.Errorf("BUILDMAIL_MAX_LOG_LINES must not be negative: %d", cfg.MaxLogLines)
	}
	cfg.SMTPTimeout = clampTimeout(cfg.SMTPTimeout)

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// RequireSMTP reports a missing mail server.
func (c *Config) RequireSMTP() error {
	if c.SMTPHost == "" {
		return fmt.Errorf("BUILDMAIL_SMTP_HOST environment variable is required")
	}
	return nil
}

// RequireBrokers reports a missing Redpanda address.
func (c *Config) RequireBrokers() error {
	if len(c.RedpandaBrokers) == 0 {
		return fmt.Errorf("REDPANDA_BROKERS environment variable is required")
	}
	return nil
}

func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultSMTPTimeout
	case d < minSMTPTimeout:
		return minSMTPTimeout
	case d > maxSMTPTimeout:
		return maxSMTPTimeout
	}
	return d
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

// envDuration accepts Go durations ("45s") and plain seconds ("45").
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
