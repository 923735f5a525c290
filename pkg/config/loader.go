package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/francescomari/portier/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PORTIER_CONFIG env, ./portier.yaml,
//     ./config/portier.yaml, /etc/portier/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "configuration file loaded", "path", filePath)
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. PORTIER_CONFIG environment variable
// 3. ./portier.yaml in the current directory
// 4. ./config/portier.yaml
// 5. /etc/portier/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check PORTIER_CONFIG env var.
	if envPath := os.Getenv("PORTIER_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"portier.yaml",
		"config/portier.yaml",
		"/etc/portier/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Env
// vars win over both defaults and the config file, which suits
// container deployments where the file is baked into the image.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORTIER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PORTIER_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("PORTIER_REALM"); v != "" {
		cfg.Auth.Realm = v
	}
	if v := os.Getenv("PORTIER_ANONYMOUS_USER"); v != "" {
		cfg.Auth.AnonymousUser = v
	}
	if v := os.Getenv("PORTIER_BEARER_SECRET"); v != "" {
		cfg.Auth.Bearer.Secret = v
	}
	if v := os.Getenv("PORTIER_DIRECTORY"); v != "" {
		cfg.Directory.Type = v
	}
	if v := os.Getenv("PORTIER_POSTGRES_DSN"); v != "" {
		cfg.Directory.Postgres.DSN = v
	}
	if v := os.Getenv("PORTIER_SESSIONS"); v != "" {
		cfg.Sessions.Type = v
	}
	if v := os.Getenv("PORTIER_REDIS_ADDR"); v != "" {
		cfg.Sessions.Redis.Addr = v
	}
	if v := os.Getenv("PORTIER_REDIS_PASSWORD"); v != "" {
		cfg.Sessions.Redis.Password = v
	}
	if v := os.Getenv("PORTIER_LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
	if v := os.Getenv("PORTIER_LOG_FORMAT"); v != "" {
		cfg.Observability.Logging.Format = v
	}

	// PORTIER_USERS: JSON array of static directory users.
	if v := os.Getenv("PORTIER_USERS"); v != "" {
		users, err := parseUsersJSON(v)
		if err == nil && len(users) > 0 {
			cfg.Directory.Users = users
		}
	}

	// PORTIER_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("PORTIER_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys.Keys = keys
		}
	}
}

// parseUsersJSON parses a JSON array of static user configurations.
func parseUsersJSON(jsonStr string) ([]UserConfig, error) {
	var users []UserConfig
	if err := json.Unmarshal([]byte(jsonStr), &users); err != nil {
		return nil, fmt.Errorf("parsing users JSON: %w", err)
	}
	return users, nil
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.bearer.secret_file -> auth.bearer.secret
	if cfg.Auth.Bearer.SecretFile != "" && cfg.Auth.Bearer.Secret == "" {
		val, err := readSecretFile(cfg.Auth.Bearer.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.bearer.secret_file: %w", err)
		}
		cfg.Auth.Bearer.Secret = val
	}

	// directory.postgres.dsn_file -> directory.postgres.dsn
	if cfg.Directory.Postgres.DSNFile != "" && cfg.Directory.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Directory.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("directory.postgres.dsn_file: %w", err)
		}
		cfg.Directory.Postgres.DSN = val
	}

	// sessions.redis.password_file -> sessions.redis.password
	if cfg.Sessions.Redis.PasswordFile != "" && cfg.Sessions.Redis.Password == "" {
		val, err := readSecretFile(cfg.Sessions.Redis.PasswordFile)
		if err != nil {
			return fmt.Errorf("sessions.redis.password_file: %w", err)
		}
		cfg.Sessions.Redis.Password = val
	}

	// auth.api_keys.keys[*].key_file -> auth.api_keys.keys[*].key
	for i := range cfg.Auth.APIKeys.Keys {
		if cfg.Auth.APIKeys.Keys[i].KeyFile != "" && cfg.Auth.APIKeys.Keys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys.Keys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys.keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys.Keys[i].Key = val
		}
	}

	// directory.users[*].password_hash_file -> directory.users[*].password_hash
	for i := range cfg.Directory.Users {
		if cfg.Directory.Users[i].PasswordHashFile != "" && cfg.Directory.Users[i].PasswordHash == "" {
			val, err := readSecretFile(cfg.Directory.Users[i].PasswordHashFile)
			if err != nil {
				return fmt.Errorf("directory.users[%d].password_hash_file: %w", i, err)
			}
			cfg.Directory.Users[i].PasswordHash = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
