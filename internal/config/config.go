package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config represents the fleetctl configuration
type Config struct {
	// API settings
	APIURL         string
	APIBasePath    string
	TimeoutSeconds int

	// Fleet settings
	PollIntervalSeconds int
	DefaultService      string

	// Local state
	StateDir   string
	TokenStore string

	// Logging
	LogLevel  string
	LogFormat string

	// SSH settings for exec
	SSHUser    string
	SSHKeyPath string

	// Hooks (fallback if hook files don't exist)
	PostCreateScript  string
	PostReleaseScript string
}

// envPrefix is prepended to every key when read from the environment
const envPrefix = "FLEETCTL_"

var keyPattern = regexp.MustCompile(`^([A-Z_]+)=(.*)$`)

// Defaults returns the built-in configuration
func Defaults() *Config {
	stateDir := ".fleetctl"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".fleetctl")
	}

	return &Config{
		APIURL:              "http://localhost:8000",
		APIBasePath:         "/api/v1",
		TimeoutSeconds:      10,
		PollIntervalSeconds: 5,
		DefaultService:      "code_server",
		StateDir:            stateDir,
		TokenStore:          "file",
		LogLevel:            "info",
		LogFormat:           "console",
		SSHUser:             "${USER}",
	}
}

// Load reads the global config, the project .fleetctl.config and its
// .local override (each optional, in increasing priority), then applies
// FLEETCTL_* environment variables
func Load() (*Config, error) {
	var files []string
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".fleetctl", "config"))
	}
	files = append(files, ".fleetctl.config", ".fleetctl.config.local")

	return LoadFiles(files...)
}

// LoadFiles is Load with an explicit list of config files. Missing files
// are skipped.
func LoadFiles(files ...string) (*Config, error) {
	cfg := Defaults()

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := loadConfigFile(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// DEBUG=1 is a shortcut for debug logging
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		cfg.LogLevel = "debug"
	}

	if err := cfg.expandVariables(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfigFile parses a bash-style config file
func loadConfigFile(filename string, cfg *Config) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		matches := keyPattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		value := strings.Trim(matches[2], `"'`)
		if err := cfg.set(matches[1], value); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	return scanner.Err()
}

// set assigns one config key; unknown keys are ignored
func (c *Config) set(key, value string) error {
	switch key {
	case "API_URL":
		c.APIURL = value
	case "API_BASE_PATH":
		c.APIBasePath = value
	case "TIMEOUT_SECONDS":
		return setInt(&c.TimeoutSeconds, key, value)
	case "POLL_INTERVAL_SECONDS":
		return setInt(&c.PollIntervalSeconds, key, value)
	case "DEFAULT_SERVICE":
		c.DefaultService = value
	case "STATE_DIR":
		c.StateDir = value
	case "TOKEN_STORE":
		c.TokenStore = value
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		c.LogFormat = value
	case "SSH_USER":
		c.SSHUser = value
	case "SSH_KEY_PATH":
		c.SSHKeyPath = value
	case "POST_CREATE_SCRIPT":
		c.PostCreateScript = value
	case "POST_RELEASE_SCRIPT":
		c.PostReleaseScript = value
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	*dst = n
	return nil
}

var envKeys = []string{
	"API_URL", "API_BASE_PATH", "TIMEOUT_SECONDS", "POLL_INTERVAL_SECONDS",
	"DEFAULT_SERVICE", "STATE_DIR", "TOKEN_STORE", "LOG_LEVEL", "LOG_FORMAT",
	"SSH_USER", "SSH_KEY_PATH", "POST_CREATE_SCRIPT", "POST_RELEASE_SCRIPT",
}

// applyEnv overrides file values with FLEETCTL_* environment variables
func (c *Config) applyEnv() error {
	for _, key := range envKeys {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			continue
		}
		if err := c.set(key, v); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
	}
	return nil
}

// expandVariables expands environment variables and tildes in paths
func (c *Config) expandVariables() error {
	if c.SSHUser == "${USER}" || c.SSHUser == "$USER" {
		c.SSHUser = os.Getenv("USER")
	}

	for _, p := range []*string{&c.StateDir, &c.SSHKeyPath} {
		if !strings.HasPrefix(*p, "~") {
			continue
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand ~ in %s: %w", *p, err)
		}
		*p = strings.Replace(*p, "~", homeDir, 1)
	}

	return nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var problems []string

	if c.APIURL == "" {
		problems = append(problems, "API_URL is required")
	} else if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("API_URL %q must be an http(s) URL", c.APIURL))
	}
	if c.TimeoutSeconds <= 0 {
		problems = append(problems, "TIMEOUT_SECONDS must be a positive integer")
	}
	if c.PollIntervalSeconds <= 0 {
		problems = append(problems, "POLL_INTERVAL_SECONDS must be a positive integer")
	}
	if c.StateDir == "" {
		problems = append(problems, "STATE_DIR is required")
	}
	switch c.TokenStore {
	case "file", "sqlite", "memory":
	default:
		problems = append(problems, fmt.Sprintf("TOKEN_STORE %q must be file, sqlite or memory", c.TokenStore))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q must be debug, info, warn or error", c.LogLevel))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT %q must be console or json", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

// BaseURL joins the API URL and base path
func (c *Config) BaseURL() string {
	base := strings.TrimRight(c.APIURL, "/")
	path := strings.Trim(c.APIBasePath, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// Timeout is the per-request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval is the watch refresh cadence
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
