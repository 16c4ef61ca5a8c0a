package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_ChunkSizeBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Summary.ChunkSize = 50
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for chunkSize=50")
	}
	cfg.Summary.ChunkSize = 3001
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for chunkSize=3001")
	}
	cfg.Summary.ChunkSize = 3000
	if err := Validate(cfg); err != nil {
		t.Fatalf("chunkSize=3000 should be valid: %v", err)
	}
}

func TestValidate_InstructionTablesCoverOptionSets(t *testing.T) {
	cfg := Defaults()
	delete(cfg.Summary.Lengths, "medium")
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing length instruction")
	}

	cfg = Defaults()
	delete(cfg.Summary.Styles, "paragraph")
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing style instruction")
	}
}

func TestValidate_RequiresModel(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.Models = nil
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty model list")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "loud"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

// --- Load / Save ---

func TestLoadSave_JSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.Slack.WatchChannel = "C_WATCH"
	cfg.Slack.SummaryChannels = []string{"C1", "C2"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Slack.WatchChannel != "C_WATCH" || len(loaded.Slack.SummaryChannels) != 2 {
		t.Fatalf("round trip lost data: %+v", loaded.Slack)
	}
}

func TestLoad_YAMLByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "slack:\n  watchChannel: C_YAML\nesa:\n  team: myteam\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	if cfg.Slack.WatchChannel != "C_YAML" || cfg.Esa.Team != "myteam" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	// defaults survive a partial file
	if cfg.Summary.ChunkSize != 2800 {
		t.Errorf("defaults lost on partial load: chunkSize=%d", cfg.Summary.ChunkSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// --- ApplyEnv ---

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("ESA_SUMMARY_CHANNEL_ID", "C1, C2 ,C3,")
	t.Setenv("ESA_TEAM_NAME", "envteam")

	cfg := Defaults()
	cfg.Slack.BotToken = "xoxb-file"
	ApplyEnv(cfg)

	if cfg.Slack.BotToken != "xoxb-env" {
		t.Errorf("env should win over file, got %q", cfg.Slack.BotToken)
	}
	if len(cfg.Slack.SummaryChannels) != 3 || cfg.Slack.SummaryChannels[2] != "C3" {
		t.Errorf("comma list not parsed: %v", cfg.Slack.SummaryChannels)
	}
	if cfg.Esa.Team != "envteam" {
		t.Errorf("team override lost: %q", cfg.Esa.Team)
	}
}

func TestApplyEnv_UnsetLeavesFileValues(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	cfg := Defaults()
	cfg.Slack.BotToken = "xoxb-file"
	ApplyEnv(cfg)
	if cfg.Slack.BotToken != "xoxb-file" {
		t.Errorf("unset env must not clobber file value, got %q", cfg.Slack.BotToken)
	}
}

// --- ParseLogLevel ---

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("shout"); err == nil {
		t.Error("expected error for unknown level")
	}
}
