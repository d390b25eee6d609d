package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Tool service validation
	if cfg.Tools.BaseURL != "" && !strings.HasPrefix(cfg.Tools.BaseURL, "http://") && !strings.HasPrefix(cfg.Tools.BaseURL, "https://") {
		issues = append(issues, ValidationIssue{
			Path:    "tools.baseUrl",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", cfg.Tools.BaseURL),
		})
	}
	if cfg.Tools.OAuth != nil {
		oauth := cfg.Tools.OAuth
		if oauth.TokenURL == "" {
			issues = append(issues, ValidationIssue{
				Path:    "tools.oauth.tokenUrl",
				Message: "tokenUrl is required",
			})
		}
		if oauth.ClientID == "" || oauth.ClientSecret == "" {
			issues = append(issues, ValidationIssue{
				Path:    "tools.oauth",
				Message: "clientId and clientSecret are required",
			})
		}
	}
	if cfg.Tools.MaxAttempts < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "tools.maxAttempts",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Tools.MaxAttempts),
		})
	}

	// Session validation
	validStores := []string{"memory", "sqlite"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}
	if cfg.Session.TTLMinutes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.ttlMinutes",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.TTLMinutes),
		})
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}
	validBinds := []string{"loopback", "lan"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	// IRC validation (only if configured)
	if cfg.Channels.IRC != nil {
		irc := cfg.Channels.IRC
		if irc.Server == "" {
			issues = append(issues, ValidationIssue{
				Path:    "channels.irc.server",
				Message: "server is required",
			})
		}
		if irc.Nick == "" {
			issues = append(issues, ValidationIssue{
				Path:    "channels.irc.nick",
				Message: "nick is required",
			})
		}
		if irc.Port < 0 || irc.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "channels.irc.port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", irc.Port),
			})
		}
		if irc.SASL && irc.Password == "" {
			issues = append(issues, ValidationIssue{
				Path:    "channels.irc.sasl",
				Message: "SASL requires a password to be set",
			})
		}
	}

	return issues
}
