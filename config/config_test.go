package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Rules.Path != "~/rules4all" {
		t.Errorf("Expected Rules.Path=~/rules4all, got %s", cfg.Rules.Path)
	}
	if len(cfg.Rules.HotRules) != 0 {
		t.Errorf("Expected no hot rules by default, got %v", cfg.Rules.HotRules)
	}
	if cfg.Target.Arch != "arm64" {
		t.Errorf("Expected Target.Arch=arm64, got %s", cfg.Target.Arch)
	}
	if cfg.Match.Budget != 1<<20 {
		t.Errorf("Expected Match.Budget=%d, got %d", 1<<20, cfg.Match.Budget)
	}
	if cfg.CodeBuffer.Size != 1<<20 {
		t.Errorf("Expected CodeBuffer.Size=%d, got %d", 1<<20, cfg.CodeBuffer.Size)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected Logging.Level=info, got %s", cfg.Logging.Level)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}
	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "dbtcore" && path != "config.toml" {
			t.Errorf("Expected path in dbtcore directory or fallback, got %s", path)
		}
	}
}

func TestGetLogPath(t *testing.T) {
	path := GetLogPath()

	if path == "" {
		t.Error("GetLogPath returned empty string")
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "logs" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}
	case "darwin", "linux":
		if filepath.Base(path) != "logs" {
			t.Errorf("Expected path to end with logs, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Rules.Path = "/opt/dbtcore/rules.txt"
	cfg.Rules.HotRules = []int{3, 7, 12}
	cfg.Target.Arch = "riscv64"
	cfg.Match.Budget = 5000
	cfg.Logging.Level = "debug"

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Rules.Path != "/opt/dbtcore/rules.txt" {
		t.Errorf("Expected Rules.Path=/opt/dbtcore/rules.txt, got %s", loaded.Rules.Path)
	}
	if len(loaded.Rules.HotRules) != 3 || loaded.Rules.HotRules[1] != 7 {
		t.Errorf("Expected HotRules=[3 7 12], got %v", loaded.Rules.HotRules)
	}
	if loaded.Target.Arch != "riscv64" {
		t.Errorf("Expected Target.Arch=riscv64, got %s", loaded.Target.Arch)
	}
	if loaded.Match.Budget != 5000 {
		t.Errorf("Expected Match.Budget=5000, got %d", loaded.Match.Budget)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Expected Logging.Level=debug, got %s", loaded.Logging.Level)
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Target.Arch != "arm64" {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[match]
budget = "not a number"  # Invalid: should be an int
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
