package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := loadDotEnv(); err != nil {
		t.Fatalf("loadDotEnv without .env: %v", err)
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "CHROMAFLOW_USER_ID=from-file\nCHROMAFLOW_TEST_ONLY=loaded\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CHROMAFLOW_USER_ID", "from-env")
	t.Setenv("CHROMAFLOW_TEST_ONLY", "")
	os.Unsetenv("CHROMAFLOW_TEST_ONLY")

	if err := loadDotEnv(); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("CHROMAFLOW_USER_ID"); got != "from-env" {
		t.Fatalf("CHROMAFLOW_USER_ID = %q, want from-env", got)
	}
	if got := os.Getenv("CHROMAFLOW_TEST_ONLY"); got != "loaded" {
		t.Fatalf("CHROMAFLOW_TEST_ONLY = %q, want loaded", got)
	}
}

func TestRootRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for positional arguments")
	}
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[sync]\npoll_interval = 99999\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation error")
	}
}
