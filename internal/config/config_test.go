package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"chromaflow/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"CHROMAFLOW_STORE_DSN", "CHROMAFLOW_USER_ID", "CHROMAFLOW_ADMIN_ID", "GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_CLOUD_PROJECT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "chromaflow", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	wantData := filepath.Join(home, ".local", "share", "chromaflow")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Cache.Path != filepath.Join(wantData, "items_cache.json") {
		t.Fatalf("unexpected cache path: %q", cfg.Cache.Path)
	}
	if got, want := cfg.StoreDSN(), "sqlite://"+filepath.Join(wantData, "chromaflow.db"); got != want {
		t.Fatalf("unexpected store dsn: got %q want %q", got, want)
	}
	if cfg.Store.Collection != "products" {
		t.Fatalf("unexpected collection: %q", cfg.Store.Collection)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.API.Bind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadReadsFileAndEnvFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("CHROMAFLOW_STORE_DSN", "memory://")
	t.Setenv("CHROMAFLOW_ADMIN_ID", "boss")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[identity]
user_id = " alice "

[cache]
enabled = false

[csv]
encoding = "EUC-KR"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be found at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.StoreDSN() != "memory://" {
		t.Fatalf("expected env dsn, got %q", cfg.StoreDSN())
	}
	if cfg.Identity.UserID != "alice" || cfg.Identity.AdminID != "boss" {
		t.Fatalf("unexpected identity: %+v", cfg.Identity)
	}
	if cfg.CachePath() != "" {
		t.Fatalf("expected disabled cache to have no path, got %q", cfg.CachePath())
	}
	if cfg.CSV.Encoding != "euc-kr" {
		t.Fatalf("unexpected encoding: %q", cfg.CSV.Encoding)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Paths.LogDir != filepath.Join(dir, "data", "logs") {
		t.Fatalf("expected log dir under data dir, got %q", cfg.Paths.LogDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"encoding":     "[csv]\nencoding = \"latin-9\"\n",
		"bind":         "[api]\nbind = \"nonsense\"\n",
		"level":        "[logging]\nlevel = \"loud\"\n",
		"collection":   "[store]\ncollection = \"a/b\"\n",
		"poll":         "[sync]\npoll_interval = 99999\n",
		"firestore":    "[store]\ndsn = \"firestore://\"\n",
		"unknown keys": "[paths]\nstaging_dir = \"/tmp\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Store.Collection != "products" {
		t.Fatalf("unexpected sample collection: %q", decoded.Store.Collection)
	}
	if !strings.Contains(config.SampleConfig(), "[identity]") {
		t.Fatal("expected identity section in sample")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.DataDir, "chromaflowd.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}
