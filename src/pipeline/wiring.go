package pipeline

import (
	"context"
	"fmt"

	"buildmail-agent/src/buildkite"
	"buildmail-agent/src/compose"
	"buildmail-agent/src/config"
	"buildmail-agent/src/githubactions"
	"buildmail-agent/src/identity"
	"buildmail-agent/src/message"
	"buildmail-agent/src/notifier"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/recipients"
	"buildmail-agent/src/store"
	"buildmail-agent/src/transport"
)

// OpenStore opens Postgres when a DSN is configured, SQLite when a path is,
// and an in-memory store otherwise.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch {
	case cfg.PostgresDSN != "":
		s, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		return s, nil
	case cfg.SQLitePath != "":
		s, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		return s, nil
	}
	return store.NewMemoryStore(), nil
}

// NewTransport returns the SMTP transport described by cfg, or nil when no
// host is configured. The notifier reports every send as failed then.
func NewTransport(cfg *config.Config) (transport.Transport, error) {
	if cfg.SMTPHost == "" {
		return nil, nil
	}
	sec, err := transport.ParseSecurity(cfg.SMTPSecurity)
	if err != nil {
		return nil, err
	}
	return transport.NewSMTPTransport(transport.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUser,
		Password:  cfg.SMTPPassword,
		Security:  sec,
		Timeout:   cfg.SMTPTimeout,
		LocalName: cfg.Hostname,
	}), nil
}

// LoadIdentities returns the user directory named by cfg, or an open store
// that reaches users at their commit address.
func LoadIdentities(cfg *config.Config) (identity.Store, error) {
	if cfg.IdentityFile == "" {
		return identity.Open{}, nil
	}
	d, err := identity.LoadDirectoryFile(cfg.IdentityFile)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NotifierOptions maps cfg onto notifier options. Store, Transport and
// Events are left for the caller.
func NotifierOptions(cfg *config.Config) (notifier.Options, error) {
	ids, err := LoadIdentities(cfg)
	if err != nil {
		return notifier.Options{}, err
	}

	var filters recipients.FilterChain
	if len(cfg.AllowedDomains) > 0 {
		filters = append(filters, recipients.NewDomainFilter(cfg.AllowedDomains...))
	}

	return notifier.Options{
		Recipients: recipients.Options{
			DefaultSuffix: cfg.DefaultSuffix,
			Charset:       cfg.Charset,
			Identities:    ids,
			Policy: recipients.Policy{
				SendToUnknownUsers:     cfg.SendToUnknownUsers,
				SendToUsersWithoutRead: cfg.SendToUsersWithoutRead,
			},
			Verbose: cfg.Verbose,
			Filters: filters,
		},
		Composer: compose.Options{
			BaseURL:     cfg.BaseURL,
			MaxLogLines: cfg.MaxLogLines,
		},
		Messages: message.Builder{
			Charset:       cfg.Charset,
			DefaultSuffix: cfg.DefaultSuffix,
			From:          cfg.AdminAddress,
			ReplyTo:       cfg.ReplyTo,
			Hostname:      cfg.Hostname,
		},
	}, nil
}

// Providers returns a provider for every configured API token.
func Providers(cfg *config.Config) []provider.Provider {
	var out []provider.Provider
	if cfg.BuildkiteAPIToken != "" {
		out = append(out, buildkite.NewProvider(cfg.BuildkiteAPIToken))
	}
	if cfg.GitHubToken != "" {
		out = append(out, githubactions.NewProvider(cfg.GitHubToken))
	}
	return out
}
