package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Team is one configured team: a display label plus the author identities
// (email-style unique names) that belong to it.
type Team struct {
	Label   string   `yaml:"label"`
	Members []string `yaml:"members"`
}

type Config struct {
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`
	APIVersion   string `yaml:"api_version"`
	BaseURL      string `yaml:"base_url"`

	// PAT comes from AZURE_DEVOPS_PAT only; it is never read from or
	// written to config files.
	PAT string `yaml:"-"`

	Teams              []Team   `yaml:"teams"`
	NoisePatterns      []string `yaml:"noise_patterns"`
	ExtraNoisePatterns []string `yaml:"extra_noise_patterns"`

	ReportOutputDir string `yaml:"report_output_dir"`
	ArchiveDBPath   string `yaml:"archive_db_path"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`
	CollectSchedule string `yaml:"collect_schedule"`

	ExternalHTTPTimeoutSeconds int     `yaml:"external_http_timeout_seconds"`
	HTTPMaxAttempts            int     `yaml:"http_max_attempts"`
	HTTPBackoffBaseSeconds     float64 `yaml:"http_backoff_base_seconds"`

	LogFile string `yaml:"log_file"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.Organization, "AZURE_DEVOPS_ORG")
	envOverride(&cfg.Project, "AZURE_DEVOPS_PROJECT")
	envOverride(&cfg.APIVersion, "AZURE_DEVOPS_API_VERSION")
	envOverride(&cfg.BaseURL, "AZURE_DEVOPS_BASE_URL")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.ArchiveDBPath, "ARCHIVE_DB_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.CollectSchedule, "COLLECT_SCHEDULE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.HTTPMaxAttempts, "HTTP_MAX_ATTEMPTS")
	envOverrideFloat(&cfg.HTTPBackoffBaseSeconds, "HTTP_BACKOFF_BASE_SECONDS")
	envOverride(&cfg.LogFile, "LOG_FILE")

	cfg.PAT = os.Getenv("AZURE_DEVOPS_PAT")

	// Defaults
	if cfg.APIVersion == "" {
		cfg.APIVersion = "7.1"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dev.azure.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = 30
	}
	if cfg.HTTPMaxAttempts == 0 {
		cfg.HTTPMaxAttempts = defaultMaxAttempts
	}
	if cfg.HTTPBackoffBaseSeconds == 0 {
		cfg.HTTPBackoffBaseSeconds = defaultBackoffBase
	}

	// Validate required fields
	required := map[string]string{
		"organization": cfg.Organization,
		"project":      cfg.Project,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}
	if cfg.PAT == "" {
		log.Fatalf("AZURE_DEVOPS_PAT environment variable is not set")
	}
	if cfg.SlackBotToken != "" && cfg.ReportChannelID == "" {
		log.Fatalf("report_channel_id is required when slack_bot_token is set")
	}
	if cfg.HTTPMaxAttempts < 1 {
		log.Fatalf("invalid http_max_attempts '%d': must be >= 1", cfg.HTTPMaxAttempts)
	}
	if cfg.HTTPBackoffBaseSeconds < 1 {
		log.Fatalf("invalid http_backoff_base_seconds '%g': must be >= 1", cfg.HTTPBackoffBaseSeconds)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 1 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 1", cfg.ExternalHTTPTimeoutSeconds)
	}

	seen := make(map[string]bool, len(cfg.Teams))
	for i, team := range cfg.Teams {
		label := strings.TrimSpace(team.Label)
		if label == "" {
			log.Fatalf("invalid teams[%d]: label must not be empty", i)
		}
		if label == teamOther {
			log.Fatalf("invalid team label '%s': reserved for unmatched authors", teamOther)
		}
		if seen[label] {
			log.Fatalf("duplicate team label '%s'", label)
		}
		seen[label] = true
		cfg.Teams[i].Label = label
	}

	if _, err := NewNoiseFilter(cfg.ActiveNoisePatterns()); err != nil {
		log.Fatalf("invalid noise patterns: %v", err)
	}

	return cfg
}

// ActiveNoisePatterns resolves the pattern set for this run: noise_patterns
// replaces the built-in list when present, extra_noise_patterns appends to
// whichever list is active.
func (c Config) ActiveNoisePatterns() []string {
	patterns := defaultNoisePatterns
	if len(c.NoisePatterns) > 0 {
		patterns = c.NoisePatterns
	}
	if len(c.ExtraNoisePatterns) == 0 {
		return patterns
	}
	combined := make([]string, 0, len(patterns)+len(c.ExtraNoisePatterns))
	combined = append(combined, patterns...)
	combined = append(combined, c.ExtraNoisePatterns...)
	return combined
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.ReportChannelID != ""
}

func (c Config) ArchiveConfigured() bool {
	return c.ArchiveDBPath != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
