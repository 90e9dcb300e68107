package config

import (
	"strings"
	"testing"
	"time"

	"buildmail-agent/src/address"
	"buildmail-agent/src/logger"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("BUILDMAIL_SMTP_HOST", "")
		t.Setenv("BUILDMAIL_SMTP_TIMEOUT", "")
		t.Setenv("BUILDMAIL_CHARSET", "")
		t.Setenv("BUILDMAIL_MAX_LOG_LINES", "")
		t.Setenv("REDPANDA_BROKERS", "")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.SMTPTimeout != DefaultSMTPTimeout {
			t.Errorf("SMTPTimeout = %v, want %v", cfg.SMTPTimeout, DefaultSMTPTimeout)
		}
		if cfg.Charset != DefaultCharset {
			t.Errorf("Charset = %v, want %v", cfg.Charset, DefaultCharset)
		}
		if cfg.MaxLogLines != DefaultMaxLogLines {
			t.Errorf("MaxLogLines = %v, want %v", cfg.MaxLogLines, DefaultMaxLogLines)
		}
		if err := cfg.RequireSMTP(); err == nil {
			t.Error("RequireSMTP() expected error without host")
		}
		if err := cfg.RequireBrokers(); err == nil {
			t.Error("RequireBrokers() expected error without brokers")
		}
	})

	t.Run("all values", func(t *testing.T) {
		t.Setenv("BUILDMAIL_SMTP_HOST", "mail.example.com")
		t.Setenv("BUILDMAIL_SMTP_PORT", "2525")
		t.Setenv("BUILDMAIL_SMTP_SECURITY", "STARTTLS")
		t.Setenv("BUILDMAIL_SMTP_TIMEOUT", "45")
		t.Setenv("BUILDMAIL_SEND_TO_UNKNOWN_USERS", "true")
		t.Setenv("BUILDMAIL_ALLOWED_DOMAINS", "example.com, corp.test")
		t.Setenv("REDPANDA_BROKERS", "r1:9092,r2:9092")
		t.Setenv("BUILDKITE_API_TOKEN", "test-token-12345")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.SMTPPort != 2525 || cfg.SMTPSecurity != "starttls" {
			t.Errorf("SMTP = %d %s", cfg.SMTPPort, cfg.SMTPSecurity)
		}
		if cfg.SMTPTimeout != 45*time.Second {
			t.Errorf("SMTPTimeout = %v", cfg.SMTPTimeout)
		}
		if !cfg.SendToUnknownUsers || cfg.SendToUsersWithoutRead {
			t.Errorf("policy = %v %v", cfg.SendToUnknownUsers, cfg.SendToUsersWithoutRead)
		}
		if strings.Join(cfg.AllowedDomains, "|") != "example.com|corp.test" {
			t.Errorf("AllowedDomains = %v", cfg.AllowedDomains)
		}
		if len(cfg.RedpandaBrokers) != 2 {
			t.Errorf("RedpandaBrokers = %v", cfg.RedpandaBrokers)
		}
		if cfg.BuildkiteAPIToken != "test-token-12345" {
			t.Errorf("BuildkiteAPIToken = %v", cfg.BuildkiteAPIToken)
		}
		if err := cfg.RequireSMTP(); err != nil {
			t.Errorf("RequireSMTP() error = %v", err)
		}
	})

	t.Run("timeout is bounded", func(t *testing.T) {
		tests := map[string]time.Duration{
			"10h":   5 * time.Minute,
			"100ms": time.Second,
			"0":     DefaultSMTPTimeout,
			"2m":    2 * time.Minute,
		}
		for in, want := range tests {
			t.Setenv("BUILDMAIL_SMTP_TIMEOUT", in)
			cfg, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv(%s) error: %v", in, err)
			}
			if cfg.SMTPTimeout != want {
				t.Errorf("timeout %s = %v, want %v", in, cfg.SMTPTimeout, want)
			}
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := []struct{ key, value string }{
			{"BUILDMAIL_SMTP_PORT", "abc"},
			{"BUILDMAIL_SMTP_PORT", "70000"},
			{"BUILDMAIL_SMTP_SECURITY", "tls13"},
			{"BUILDMAIL_SMTP_TIMEOUT", "soon"},
			{"BUILDMAIL_VERBOSE", "maybe"},
			{"BUILDMAIL_MAX_LOG_LINES", "-1"},
		}
		for _, tt := range tests {
			t.Run(tt.key+"="+tt.value, func(t *testing.T) {
				t.Setenv(tt.key, tt.value)
				if _, err := LoadFromEnv(); err == nil {
					t.Errorf("LoadFromEnv() expected error for %s=%s", tt.key, tt.value)
				}
			})
		}
	})
}

func TestMustLoadFromEnvPanics(t *testing.T) {
	t.Setenv("BUILDMAIL_SMTP_PORT", "nope")
	defer func() {
		if recover() == nil {
			t.Error("MustLoadFromEnv() should panic on invalid configuration")
		}
	}()
	MustLoadFromEnv()
}

const jobsYAML = `
defaults:
  recipients: ops@example.com
projects:
  acme/app:
    recipients: dev@example.com upstream-individuals:lib
    notify_every_unstable: true
    send_to_individuals: true
    upstream_projects: [lib]
    exclude: ["*@bots.example.com"]
`

func TestLoadJobs(t *testing.T) {
	jobs, err := LoadJobs(strings.NewReader(jobsYAML))
	if err != nil {
		t.Fatalf("LoadJobs() error = %v", err)
	}

	job := jobs.Lookup("acme/app", "app")
	if job.Recipients != "dev@example.com upstream-individuals:lib" {
		t.Errorf("Recipients = %q", job.Recipients)
	}
	if !job.NotifyEveryUnstable || !job.SendToIndividuals {
		t.Errorf("flags = %v %v", job.NotifyEveryUnstable, job.SendToIndividuals)
	}
	if len(job.UpstreamProjects) != 1 || job.UpstreamProjects[0] != "lib" {
		t.Errorf("UpstreamProjects = %v", job.UpstreamProjects)
	}
	if len(job.Filters) != 1 {
		t.Fatalf("Filters = %v", job.Filters)
	}

	bot := &address.Address{Addr: "ci@bots.example.com"}
	if !job.Filters[0].ShouldExclude(nil, logger.NewSilentLogger(), bot) {
		t.Error("bot address should be excluded")
	}

	other := jobs.Lookup("acme/other", "other")
	if other.Recipients != "ops@example.com" || other.Filters != nil {
		t.Errorf("defaults = %+v", other)
	}
}

func TestLoadJobs_Errors(t *testing.T) {
	if _, err := LoadJobs(strings.NewReader("projects:\n  app:\n    recipient: typo\n")); err == nil {
		t.Error("unknown keys should be rejected")
	}
	if _, err := LoadJobs(strings.NewReader("projects:\n  app:\n    exclude: ['[']\n")); err == nil {
		t.Error("invalid patterns should be rejected")
	}

	empty, err := LoadJobs(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document error = %v", err)
	}
	if job := empty.Lookup("app"); job.Recipients != "" {
		t.Errorf("empty Lookup() = %+v", job)
	}

	none, err := LoadJobsFile("")
	if err != nil || none == nil {
		t.Errorf("LoadJobsFile(\"\") = %v, %v", none, err)
	}
	if _, err := LoadJobsFile("/nonexistent/jobs.yaml"); err == nil {
		t.Error("missing file should fail")
	}
}
