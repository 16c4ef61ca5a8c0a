// Package config holds the explicit configuration struct constructed once at
// startup and injected into the classifier, dispatcher, and clients. No
// ambient lookups happen inside core logic.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for esabot.
type Config struct {
	General GeneralConfig `json:"general" yaml:"general"`
	Slack   SlackConfig   `json:"slack" yaml:"slack"`
	Esa     EsaConfig     `json:"esa" yaml:"esa"`
	Gemini  GeminiConfig  `json:"gemini" yaml:"gemini"`
	Summary SummaryConfig `json:"summary" yaml:"summary"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

type SlackConfig struct {
	BotToken string `json:"botToken" yaml:"botToken"`
	AppToken string `json:"appToken" yaml:"appToken"` // required for Socket Mode
	// WatchChannel is the single channel monitored for esa notifications.
	WatchChannel string `json:"watchChannel" yaml:"watchChannel"`
	// SummaryChannels receive every automatic summary; empty falls back to
	// the watch channel at dispatch time.
	SummaryChannels []string `json:"summaryChannels" yaml:"summaryChannels"`
}

type EsaConfig struct {
	AccessToken string `json:"accessToken" yaml:"accessToken"`
	Team        string `json:"team" yaml:"team"`
	APIBase     string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
}

type GeminiConfig struct {
	APIKey string `json:"apiKey" yaml:"apiKey"`
	// Models is the fallback chain, tried in order.
	Models []string `json:"models" yaml:"models"`
}

// SummaryConfig carries the option-description tables fed into the prompt.
// The keys must stay consistent with the enumerated option sets used for
// flag parsing.
type SummaryConfig struct {
	Lengths   map[string]string `json:"lengths" yaml:"lengths"`
	Styles    map[string]string `json:"styles" yaml:"styles"`
	ChunkSize int               `json:"chunkSize,omitempty" yaml:"chunkSize,omitempty"`
}

// Defaults returns a config with everything but credentials filled in.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{LogLevel: "info"},
		Gemini: GeminiConfig{
			Models: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"},
		},
		Summary: SummaryConfig{
			Lengths: map[string]string{
				"short":  "3-5 sentences, as concise as possible",
				"medium": "about 10 sentences covering the key points",
				"long":   "20+ sentences with full detail",
			},
			Styles: map[string]string{
				"bullet":    "bullet points",
				"paragraph": "prose paragraphs",
			},
			ChunkSize: 2800,
		},
	}
}

// DefaultConfigDir returns ~/.esabot.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".esabot"
	}
	return filepath.Join(home, ".esabot")
}

// DefaultConfigPath returns ~/.esabot/config.json.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file, JSON or YAML by extension, on top of Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Save writes the config as JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// envOverrides maps the deployment environment variables onto config fields.
var envOverrides = []struct {
	name  string
	apply func(*Config, string)
}{
	{"SLACK_BOT_TOKEN", func(c *Config, v string) { c.Slack.BotToken = v }},
	{"SLACK_APP_TOKEN", func(c *Config, v string) { c.Slack.AppToken = v }},
	{"ESA_WATCH_CHANNEL_ID", func(c *Config, v string) { c.Slack.WatchChannel = v }},
	{"ESA_SUMMARY_CHANNEL_ID", func(c *Config, v string) { c.Slack.SummaryChannels = splitList(v) }},
	{"ESA_ACCESS_TOKEN", func(c *Config, v string) { c.Esa.AccessToken = v }},
	{"ESA_TEAM_NAME", func(c *Config, v string) { c.Esa.Team = v }},
	{"GEMINI_API_KEY", func(c *Config, v string) { c.Gemini.APIKey = v }},
	{"GEMINI_MODEL", func(c *Config, v string) { c.Gemini.Models = splitList(v) }},
	{"LOG_LEVEL", func(c *Config, v string) { c.General.LogLevel = v }},
}

// ApplyEnv overlays environment variables on the config. Unset variables
// leave the file values alone.
func ApplyEnv(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks structural invariants. Credential presence is checked by
// the commands that need the credentials.
func Validate(cfg *Config) error {
	if cfg.Summary.ChunkSize < 100 || cfg.Summary.ChunkSize > 3000 {
		return fmt.Errorf("summary.chunkSize must be within [100, 3000], got %d", cfg.Summary.ChunkSize)
	}
	for _, key := range []string{"short", "medium", "long"} {
		if cfg.Summary.Lengths[key] == "" {
			return fmt.Errorf("summary.lengths missing %q", key)
		}
	}
	for _, key := range []string{"bullet", "paragraph"} {
		if cfg.Summary.Styles[key] == "" {
			return fmt.Errorf("summary.styles missing %q", key)
		}
	}
	if len(cfg.Gemini.Models) == 0 {
		return fmt.Errorf("gemini.models must list at least one model")
	}
	if _, err := ParseLogLevel(cfg.General.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps the configured level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
