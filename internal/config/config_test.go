// Package config tests configuration loading.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.TasksFile != DefaultTasksFile {
		t.Errorf("TasksFile: got %q, want %q", cfg.TasksFile, DefaultTasksFile)
	}
	if cfg.DefaultCategory != DefaultCategory {
		t.Errorf("DefaultCategory: got %q, want %q", cfg.DefaultCategory, DefaultCategory)
	}
	if cfg.ConfirmDelete != DefaultConfirmDelete {
		t.Errorf("ConfirmDelete: got %v, want %v", cfg.ConfirmDelete, DefaultConfirmDelete)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: got %q, want text", cfg.LogFormat)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.toml")
	content := `
tasks_file = "my-tasks.json"
default_category = "Inbox"
categories = ["Chores", "Errands"]
confirm_delete = false
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	setDefaults(cfg)
	if err := loadConfigFile(cfg, path); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.TasksFile != "my-tasks.json" {
		t.Errorf("TasksFile: got %q", cfg.TasksFile)
	}
	if cfg.DefaultCategory != "Inbox" {
		t.Errorf("DefaultCategory: got %q", cfg.DefaultCategory)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[0] != "Chores" {
		t.Errorf("Categories: got %v", cfg.Categories)
	}
	if cfg.ConfirmDelete {
		t.Error("ConfirmDelete: got true, want false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want debug", cfg.LogLevel)
	}
}

func TestLoadConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.toml")
	if err := os.WriteFile(path, []byte("tasks_file = [broken"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	setDefaults(cfg)
	if err := loadConfigFile(cfg, path); err == nil {
		t.Error("loadConfigFile should fail on invalid TOML")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKDECK_FILE", "env-tasks.json")
	t.Setenv("TASKDECK_CATEGORY", "EnvCat")
	t.Setenv("TASKDECK_CATEGORIES", "One, Two , ,Three")
	t.Setenv("TASKDECK_CONFIRM_DELETE", "no")
	t.Setenv("TASKDECK_LOG_LEVEL", "warn")

	cfg := &Config{}
	setDefaults(cfg)
	loadFromEnv(cfg)

	if cfg.TasksFile != "env-tasks.json" {
		t.Errorf("TasksFile: got %q", cfg.TasksFile)
	}
	if cfg.DefaultCategory != "EnvCat" {
		t.Errorf("DefaultCategory: got %q", cfg.DefaultCategory)
	}
	if len(cfg.Categories) != 3 || cfg.Categories[2] != "Three" {
		t.Errorf("Categories: got %v", cfg.Categories)
	}
	if cfg.ConfirmDelete {
		t.Error("ConfirmDelete: got true, want false")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want warn", cfg.LogLevel)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("TASKDECK_FILE", "env-tasks.json")

	cfg := &Config{}
	setDefaults(cfg)
	loadFromEnv(cfg)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := parseFlags(cfg, fs, []string{"-file", "flag-tasks.json", "-log-level", "error"}); err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.TasksFile != "flag-tasks.json" {
		t.Errorf("TasksFile: got %q, want flag-tasks.json", cfg.TasksFile)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel: got %q, want error", cfg.LogLevel)
	}
}

func TestFinalizeResolvesPath(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	if err := finalize(cfg); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !filepath.IsAbs(cfg.TasksFile) {
		t.Errorf("TasksFile should be absolute: %q", cfg.TasksFile)
	}
	if cfg.WorkDir == "" {
		t.Error("WorkDir should be set")
	}
}

func TestFinalizeBlankCategory(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.DefaultCategory = "   "
	cfg.Categories = []string{"ok", "  ", ""}

	if err := finalize(cfg); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if cfg.DefaultCategory != DefaultCategory {
		t.Errorf("DefaultCategory: got %q, want %q", cfg.DefaultCategory, DefaultCategory)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0] != "ok" {
		t.Errorf("Categories: got %v, want [ok]", cfg.Categories)
	}
}

func TestBoolFromString(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"nope", false},
	}

	for _, tt := range tests {
		if got := boolFromString(tt.in); got != tt.want {
			t.Errorf("boolFromString(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
