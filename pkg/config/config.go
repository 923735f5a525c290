// Package config provides unified configuration for the portier proxy.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PORTIER_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the portier proxy.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Auth          AuthConfig          `yaml:"auth"`
	Directory     DirectoryConfig     `yaml:"directory"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// UpstreamConfig holds the proxied service settings.
type UpstreamConfig struct {
	URL          string `yaml:"url"`           // required
	PreserveHost bool   `yaml:"preserve_host"` // forward the client's Host header
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Realm            string        `yaml:"realm"`              // default: "Portier"
	BasicFallback    bool          `yaml:"basic_fallback"`     // default: true
	AnonymousUser    string        `yaml:"anonymous_user"`     // default: "anonymous"
	ResolveTimeout   time.Duration `yaml:"resolve_timeout"`    // default: 10s
	MaxLoginAttempts int           `yaml:"max_login_attempts"` // per client per minute, 0 disables, default: 5
	Sudo             SudoConfig    `yaml:"sudo"`
	Form             FormConfig    `yaml:"form"`
	Bearer           BearerConfig  `yaml:"bearer"`
	APIKeys          APIKeysConfig `yaml:"api_keys"`
}

// SudoConfig holds impersonation settings.
type SudoConfig struct {
	Cookie    string `yaml:"cookie"`    // default: "sling.sudo"
	Parameter string `yaml:"parameter"` // default: "sudo"
	Disabled  bool   `yaml:"disabled"`
}

// FormConfig holds form login settings.
type FormConfig struct {
	Enabled    bool          `yaml:"enabled"`     // default: true
	LoginPath  string        `yaml:"login_path"`  // default: "/login"
	CookieName string        `yaml:"cookie"`      // default: "portier.session"
	TTL        time.Duration `yaml:"ttl"`         // default: 12h
	Secure     bool          `yaml:"secure"`      // HTTPS-only session cookie
	Paths      []string      `yaml:"paths"`       // default: ["/"]
}

// BearerConfig holds bearer token settings. Exactly one of Secret
// (HMAC) or JWKSURL (RSA) selects the verification mode.
type BearerConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Secret      string   `yaml:"secret"`
	SecretFile  string   `yaml:"secret_file"` // _file variant for secret
	JWKSURL     string   `yaml:"jwks_url"`
	Issuer      string   `yaml:"issuer"`
	Audience    string   `yaml:"audience"`
	UserClaim   string   `yaml:"user_claim"`   // default: "sub"
	ScopesClaim string   `yaml:"scopes_claim"` // default: "scope"
	Paths       []string `yaml:"paths"`        // default: ["/"]
}

// APIKeysConfig holds API key settings.
type APIKeysConfig struct {
	Keys  []APIKeyConfig `yaml:"keys"`
	Paths []string       `yaml:"paths"` // default: ["/"]
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	User    string `yaml:"user"`
}

// DirectoryConfig holds user directory settings.
type DirectoryConfig struct {
	Type     string         `yaml:"type"` // "static" or "postgres", default: "static"
	Users    []UserConfig   `yaml:"users"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// UserConfig describes a single static directory user.
type UserConfig struct {
	Name             string            `yaml:"name"`
	PasswordHash     string            `yaml:"password_hash"`
	PasswordHashFile string            `yaml:"password_hash_file"` // _file variant for password_hash
	Disabled         bool              `yaml:"disabled"`
	Impersonators    []string          `yaml:"impersonators"`
	Attributes       map[string]string `yaml:"attributes"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MinConns       int32  `yaml:"min_conns"`        // default: 5
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// SessionsConfig holds session store settings.
type SessionsConfig struct {
	Type  string      `yaml:"type"` // "memory" or "redis", default: "memory"
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr         string `yaml:"addr"` // default: "localhost:6379"
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
	DB           int    `yaml:"db"`
	Prefix       string `yaml:"prefix"` // default: "portier:session"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds request logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn", "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"

	// Debug enables category-scoped debug logging, as a comma-separated
	// list of categories (see pkg/debug). PORTIER_DEBUG overrides it.
	Debug string `yaml:"debug"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Realm:            "Portier",
			BasicFallback:    true,
			AnonymousUser:    "anonymous",
			ResolveTimeout:   10 * time.Second,
			MaxLoginAttempts: 5,
			Sudo: SudoConfig{
				Cookie:    "sling.sudo",
				Parameter: "sudo",
			},
			Form: FormConfig{
				Enabled:    true,
				LoginPath:  "/login",
				CookieName: "portier.session",
				TTL:        12 * time.Hour,
				Paths:      []string{"/"},
			},
			Bearer: BearerConfig{
				UserClaim:   "sub",
				ScopesClaim: "scope",
				Paths:       []string{"/"},
			},
			APIKeys: APIKeysConfig{
				Paths: []string{"/"},
			},
		},
		Directory: DirectoryConfig{
			Type: "static",
			Postgres: PostgresConfig{
				MaxConns: 25,
				MinConns: 5,
			},
		},
		Sessions: SessionsConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "portier:session",
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}
