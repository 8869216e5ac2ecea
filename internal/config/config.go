package config

import (
	"fmt"
	"strings"

	"github.com/cmsfix/https-migrator/internal/cms"
)

// Environment variables read by Load
const (
	EnvAPIToken    = "DATOCMS_API_TOKEN"
	EnvModelID     = "DATOCMS_BLOG_MODEL_ID"
	EnvEnvironment = "DATOCMS_ENVIRONMENT"
	EnvBaseURL     = "DATOCMS_BASE_URL"
	EnvConfigFile  = "HTTPS_MIGRATOR_CONFIG"
)

// Config is everything a migration run needs
type Config struct {
	APIToken    string
	ModelID     string
	BaseURL     string
	Environment string
	PageSize    int
	AuditIndex  string
	DryRun      bool
}

// Error reports missing or invalid configuration. It is always detected
// before any request reaches the CMS.
type Error struct {
	// Missing lists required environment variables that are unset
	Missing []string

	// File is the settings file that failed to load, if any
	File     string
	Problems []string
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid settings file %s: %s", e.File, strings.Join(e.Problems, "; "))
}

// Load builds a Config from the environment and, when settingsPath (or the
// HTTPS_MIGRATOR_CONFIG variable) names one, a YAML settings file.
// Environment variables take precedence over the file.
func Load(getenv func(string) string, settingsPath string) (*Config, error) {
	cfg := &Config{
		APIToken: strings.TrimSpace(getenv(EnvAPIToken)),
		ModelID:  strings.TrimSpace(getenv(EnvModelID)),
		BaseURL:  cms.DefaultBaseURL,
		PageSize: cms.DefaultPageSize,
	}

	var missing []string
	if cfg.APIToken == "" {
		missing = append(missing, EnvAPIToken)
	}
	if cfg.ModelID == "" {
		missing = append(missing, EnvModelID)
	}
	if len(missing) > 0 {
		return nil, &Error{Missing: missing}
	}

	if settingsPath == "" {
		settingsPath = getenv(EnvConfigFile)
	}
	if settingsPath != "" {
		s, err := LoadSettings(settingsPath)
		if err != nil {
			return nil, err
		}
		s.apply(cfg)
	}

	if v := getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv(EnvEnvironment); v != "" {
		cfg.Environment = v
	}

	return cfg, nil
}
