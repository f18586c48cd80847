// Package config holds the process configuration for the dapsync batch job.
//
// All configuration comes from environment variables, read once at startup
// via FromEnv. The binary takes no flags. The resulting Config value is
// passed explicitly to every component that needs it; nothing in this
// repository reads the environment after startup.
package config

import (
	"os"
	"strings"
)

// Defaults applied by FromEnv when the corresponding variable is unset.
const (
	DefaultBaseURL      = "https://api-gateway.instructure.com"
	DefaultNamespace    = "canvas"
	DefaultDownloadsDir = "downloads"
)

// Config is the full configuration for one batch run.
type Config struct {
	// DAP extraction tool credentials and target.
	BaseURL   string // DAP_BASE_URL
	APIKey    string // API_KEY (client id)
	APISecret string // API_SECRET (client secret)
	Namespace string // DAP_NAMESPACE

	// Destination warehouse location.
	Project string // PROJECT
	Dataset string // DATASET

	// Local staging directory written by the DAP CLI.
	DownloadsDir string // DOWNLOADS_DIR

	// Metrics backend selection ("datadog", "none" or empty).
	MetricsBackend string // METRICS_BACKEND
	MetricsTags    string // METRICS_TAGS, comma-separated datadog tags
}

// FromEnv reads the process environment into a Config, applying defaults
// for the optional variables. It performs no validation; call Validate.
func FromEnv() Config {
	return Config{
		BaseURL:        envOr("DAP_BASE_URL", DefaultBaseURL),
		APIKey:         os.Getenv("API_KEY"),
		APISecret:      os.Getenv("API_SECRET"),
		Namespace:      envOr("DAP_NAMESPACE", DefaultNamespace),
		Project:        os.Getenv("PROJECT"),
		Dataset:        os.Getenv("DATASET"),
		DownloadsDir:   envOr("DOWNLOADS_DIR", DefaultDownloadsDir),
		MetricsBackend: os.Getenv("METRICS_BACKEND"),
		MetricsTags:    os.Getenv("METRICS_TAGS"),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is a single validation finding, addressed by the environment
// variable it concerns.
type Issue struct {
	Severity Severity
	Field    string
	Message  string
}

// Validate checks that the configuration is complete enough to run a batch.
//
// Missing credentials or warehouse coordinates are errors; a missing
// metrics backend is not (metrics are optional).
func Validate(c Config) []Issue {
	var issues []Issue

	requireField := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Field:    field,
				Message:  "must be set",
			})
		}
	}

	requireField("API_KEY", c.APIKey)
	requireField("API_SECRET", c.APISecret)
	requireField("PROJECT", c.Project)
	requireField("DATASET", c.Dataset)

	if strings.TrimSpace(c.BaseURL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "DAP_BASE_URL",
			Message:  "must not be blank when set",
		})
	}
	if strings.TrimSpace(c.Namespace) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Field:    "DAP_NAMESPACE",
			Message:  "blank namespace; the DAP CLI will reject most commands",
		})
	}

	return issues
}

// HasErrors reports whether any issue is of error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
