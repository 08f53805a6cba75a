package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/forgedesk/triage/internal/similarity"
)

type Config struct {
	Port        int
	APIToken    string
	DatabaseURL string
	LogLevel    string

	NatsURL   string
	NatsToken string

	// Hosted text-analytics backend.
	ExtractEndpoint string
	ExtractAPIKey   string

	// LLM extraction backend, used when the hosted backend is not configured.
	AnthropicAPIKey string
	AnthropicModel  string

	SlackBotToken string
	SlackChannel  string

	// TriageSchedule is an optional cron expression for periodic re-triage.
	TriageSchedule string

	Tunables Tunables
}

// Tunables are the calibration knobs the similarity and batching logic reads.
// They live in an optional YAML file so thresholds can be adjusted without a
// rebuild.
type Tunables struct {
	Thresholds         similarity.Thresholds `yaml:"thresholds"`
	MaxBatch           int                   `yaml:"max_batch"`
	ExtractConcurrency int                   `yaml:"extract_concurrency"`
	ExtractPerSecond   float64               `yaml:"extract_per_second"`
}

func defaultTunables() Tunables {
	return Tunables{
		Thresholds:         similarity.DefaultThresholds(),
		MaxBatch:           500,
		ExtractConcurrency: 5,
		ExtractPerSecond:   10,
	}
}

func Load() (Config, error) {
	cfg := Config{
		Port:            envInt("TRIAGE_PORT", 8760),
		APIToken:        envStr("TRIAGE_API_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		ExtractEndpoint: envStr("EXTRACT_ENDPOINT", ""),
		ExtractAPIKey:   envStr("EXTRACT_API_KEY", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("TRIAGE_MODEL", "claude-3-5-haiku-latest"),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_TRIAGE_CHANNEL", ""),
		TriageSchedule:  envStr("TRIAGE_SCHEDULE", ""),
		Tunables:        defaultTunables(),
	}

	if path := envStr("TRIAGE_TUNABLES", ""); path != "" {
		t, err := loadTunables(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Tunables = t
	}

	return cfg, nil
}

// loadTunables reads the YAML tunables file, filling anything unset with the
// defaults.
func loadTunables(path string) (Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, fmt.Errorf("read tunables: %w", err)
	}

	t := defaultTunables()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tunables{}, fmt.Errorf("parse tunables: %w", err)
	}

	if t.Thresholds.Duplicate <= 0 || t.Thresholds.Duplicate > 1 {
		return Tunables{}, fmt.Errorf("tunables: duplicate threshold %v out of (0,1]", t.Thresholds.Duplicate)
	}
	if t.Thresholds.Match <= 0 || t.Thresholds.Match > 1 {
		return Tunables{}, fmt.Errorf("tunables: match threshold %v out of (0,1]", t.Thresholds.Match)
	}
	if t.MaxBatch <= 0 {
		t.MaxBatch = 500
	}
	return t, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
