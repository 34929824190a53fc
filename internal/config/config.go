// Package config provides centralized configuration for the storefront-e2e
// runner and the storefront fixture. Values come from environment variables
// with defaults; CLI flags override them through Overrides.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL           = "https://www.saucedemo.com"
	defaultBrowser           = "chromium"
	defaultWaitTimeout       = 5 * time.Second
	defaultPollInterval      = 100 * time.Millisecond
	defaultNavigationTimeout = 10 * time.Second
	defaultArtifactDir       = "./artifacts"
	defaultRegion            = "us-east-1"
)

// Supported browser engines.
var browsers = map[string]bool{
	"chromium": true,
	"firefox":  true,
	"webkit":   true,
}

// Config holds all runner configuration.
type Config struct {
	// Target
	BaseURL string

	// Browser
	Browser        string
	Headless       bool
	SlowMo         time.Duration
	ViewportWidth  int
	ViewportHeight int

	// Bounded waits
	WaitTimeout       time.Duration
	PollInterval      time.Duration
	NavigationTimeout time.Duration

	// Scenario runner
	Parallel int

	// Failure artifacts. When ArtifactBucket is set, artifacts go to S3.
	ArtifactDir        string
	ArtifactBucket     string
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY

	// Storefront fixture
	ListenAddr  string
	GlitchDelay time.Duration
}

// Overrides are CLI flag values. Zero values leave the environment value alone.
type Overrides struct {
	BaseURL  string
	Browser  string
	Headed   bool
	Parallel int
	Addr     string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig loads configuration from environment variables and flag overrides.
func LoadConfig(o Overrides) (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(getEnvOrDefault("BASE_URL", defaultBaseURL), "/")
	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.BaseURL, "/")
	}

	cfg.Browser = strings.ToLower(getEnvOrDefault("BROWSER", defaultBrowser))
	if o.Browser != "" {
		cfg.Browser = strings.ToLower(o.Browser)
	}
	cfg.Headless = parseBoolOrDefault("HEADLESS", true)
	if o.Headed {
		cfg.Headless = false
	}
	cfg.SlowMo = parseDurationOrDefault("SLOW_MO", 0)
	cfg.ViewportWidth = parseIntOrDefault("VIEWPORT_WIDTH", 1280)
	cfg.ViewportHeight = parseIntOrDefault("VIEWPORT_HEIGHT", 800)

	cfg.WaitTimeout = parseDurationOrDefault("WAIT_TIMEOUT", defaultWaitTimeout)
	cfg.PollInterval = parseDurationOrDefault("POLL_INTERVAL", defaultPollInterval)
	cfg.NavigationTimeout = parseDurationOrDefault("NAVIGATION_TIMEOUT", defaultNavigationTimeout)

	cfg.Parallel = parseIntOrDefault("PARALLEL", 1)
	if o.Parallel > 0 {
		cfg.Parallel = o.Parallel
	}

	cfg.ArtifactDir = getEnvOrDefault("ARTIFACT_DIR", defaultArtifactDir)
	cfg.ArtifactBucket = strings.TrimSpace(os.Getenv("ARTIFACT_BUCKET"))
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if o.Addr != "" {
		cfg.ListenAddr = o.Addr
	}
	cfg.GlitchDelay = parseDurationOrDefault("GLITCH_DELAY", 1500*time.Millisecond)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "BASE_URL must be an absolute http(s) URL")
	}
	if !browsers[c.Browser] {
		errs = append(errs, "BROWSER must be one of chromium, firefox, webkit")
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, "WAIT_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "POLL_INTERVAL must be positive")
	} else if c.WaitTimeout > 0 && c.PollInterval > c.WaitTimeout {
		errs = append(errs, "POLL_INTERVAL must not exceed WAIT_TIMEOUT")
	}
	if c.NavigationTimeout <= 0 {
		errs = append(errs, "NAVIGATION_TIMEOUT must be positive")
	}
	if c.SlowMo < 0 {
		errs = append(errs, "SLOW_MO must not be negative")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		errs = append(errs, "VIEWPORT_WIDTH and VIEWPORT_HEIGHT must be positive")
	}
	if c.Parallel <= 0 {
		errs = append(errs, "PARALLEL must be positive")
	}
	if c.GlitchDelay < 0 {
		errs = append(errs, "GLITCH_DELAY must not be negative")
	}

	// S3 artifacts: credentials are required once a bucket is named.
	if c.ArtifactBucket != "" {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when ARTIFACT_BUCKET is set")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when ARTIFACT_BUCKET is set")
		}
	} else if c.ArtifactDir == "" {
		errs = append(errs, "ARTIFACT_DIR is required when ARTIFACT_BUCKET is not set")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UsesS3Artifacts reports whether failure artifacts go to S3.
func (c *Config) UsesS3Artifacts() bool {
	return c.ArtifactBucket != ""
}

// PrintStartupSummary prints a human-readable summary of the configuration.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "storefront-e2e")
	fmt.Fprintf(w, "  Target:   %s\n", c.BaseURL)
	mode := "headless"
	if !c.Headless {
		mode = "headed"
	}
	fmt.Fprintf(w, "  Browser:  %s (%s, %dx%d)\n", c.Browser, mode, c.ViewportWidth, c.ViewportHeight)
	fmt.Fprintf(w, "  Waits:    %s timeout, %s poll, %s navigation\n", c.WaitTimeout, c.PollInterval, c.NavigationTimeout)
	fmt.Fprintf(w, "  Parallel: %d\n", c.Parallel)
	if c.UsesS3Artifacts() {
		fmt.Fprintf(w, "  Artifacts: s3://%s\n", c.ArtifactBucket)
	} else {
		fmt.Fprintf(w, "  Artifacts: %s\n", c.ArtifactDir)
	}
	fmt.Fprintln(w, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

