package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// upstream.url is required and must be an absolute http(s) URL.
	if c.Upstream.URL == "" {
		errs = append(errs, fmt.Errorf("upstream.url is required"))
	} else if u, err := url.Parse(c.Upstream.URL); err != nil {
		errs = append(errs, fmt.Errorf("upstream.url: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("upstream.url must be http or https, got %q", c.Upstream.URL))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// auth.max_login_attempts must not be negative.
	if c.Auth.MaxLoginAttempts < 0 {
		errs = append(errs, fmt.Errorf("auth.max_login_attempts must be >= 0, got %d", c.Auth.MaxLoginAttempts))
	}

	// auth.bearer needs exactly one verification mode when enabled.
	if c.Auth.Bearer.Enabled {
		hasSecret := c.Auth.Bearer.Secret != "" || c.Auth.Bearer.SecretFile != ""
		hasJWKS := c.Auth.Bearer.JWKSURL != ""
		if hasSecret == hasJWKS {
			errs = append(errs, fmt.Errorf("auth.bearer requires exactly one of secret (or secret_file) and jwks_url"))
		}
	}

	// auth.api_keys entries need a key and a user.
	for i, key := range c.Auth.APIKeys.Keys {
		if key.Key == "" && key.KeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys.keys[%d]: key or key_file is required", i))
		}
		if key.User == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys.keys[%d]: user is required", i))
		}
	}

	// directory.type must be a known value.
	switch c.Directory.Type {
	case "static", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("directory.type must be \"static\" or \"postgres\", got %q", c.Directory.Type))
	}

	// If directory.type is "postgres", DSN or DSNFile must be set.
	if c.Directory.Type == "postgres" {
		if c.Directory.Postgres.DSN == "" && c.Directory.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("directory.postgres.dsn or directory.postgres.dsn_file is required when directory.type is \"postgres\""))
		}
	}

	// sessions.type must be a known value.
	switch c.Sessions.Type {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("sessions.type must be \"memory\" or \"redis\", got %q", c.Sessions.Type))
	}

	// observability.logging.level must be a known value.
	switch c.Observability.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("observability.logging.level must be \"trace\", \"debug\", \"info\", \"warn\", or \"error\", got %q", c.Observability.Logging.Level))
	}

	// observability.logging.format must be a known value.
	switch c.Observability.Logging.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("observability.logging.format must be \"text\" or \"json\", got %q", c.Observability.Logging.Format))
	}

	return errors.Join(errs...)
}
