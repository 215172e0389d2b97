package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chromaflow/internal/csvio"
	"chromaflow/internal/items"
	"chromaflow/internal/query"
	"chromaflow/internal/workflow"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, userID, adminID string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[identity]\nuser_id = %q\nadmin_id = %q\n\n[logging]\nlevel = \"error\"\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		userID,
		adminID,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("%s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func listJSON(t *testing.T, env *cliTestEnv, args ...string) []items.Item {
	t.Helper()
	out := mustRunCLI(t, env, append([]string{"list", "--json"}, args...)...)
	var list []items.Item
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out)
	}
	return list
}

func findItem(t *testing.T, list []items.Item, id string) items.Item {
	t.Helper()
	for _, item := range list {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s not found", id)
	return items.Item{}
}

func TestCLIWorkflow(t *testing.T) {
	env := setupCLITestEnv(t, "boss", "boss")
	sampleSize := len(csvio.Parse(csvio.SampleCSV))

	out := mustRunCLI(t, env, "import", "--sample")
	requireContains(t, out, fmt.Sprintf("Replaced 0 items with %d imported items", sampleSize))

	list := listJSON(t, env)
	if len(list) != sampleSize {
		t.Fatalf("expected %d items, got %d", sampleSize, len(list))
	}

	out = mustRunCLI(t, env, "advance", "1001", "1002")
	requireContains(t, out, "Advanced 2 items")
	mustRunCLI(t, env, "advance", "1001")

	if _, _, err := runCLI(t, []string{"advance", "1001"}, env.configPath); err == nil {
		t.Fatal("expected advance out of blasting without --shop to fail")
	} else {
		requireContains(t, err.Error(), "--shop")
	}
	mustRunCLI(t, env, "advance", "1001", "--shop", "B")

	list = listJSON(t, env)
	if got := findItem(t, list, "1001"); got.Status != workflow.StatusPainting || got.Shop != workflow.ShopB {
		t.Fatalf("expected 1001 painting in shop B, got %s / %s", got.Status, got.Shop)
	}
	if got := findItem(t, list, "1002"); got.Status != workflow.StatusReceived {
		t.Fatalf("expected 1002 received, got %s", got.Status)
	}

	out = mustRunCLI(t, env, "set-status", "1003", "--status", "shipped")
	requireContains(t, out, "Set 1 items to Shipped")
	archive := listJSON(t, env, "--shipped")
	if len(archive) != 1 || archive[0].ID != "1003" {
		t.Fatalf("expected only 1003 in archive, got %+v", archive)
	}

	out = mustRunCLI(t, env, "delete", "1008", "missing")
	requireContains(t, out, "Deleted 1 items")

	out = mustRunCLI(t, env, "stats", "--json")
	var stats query.DashboardStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != sampleSize-2 || stats.Painting != 1 || stats.Received != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	out = mustRunCLI(t, env, "export")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != csvio.ExportHeader {
		t.Fatalf("export header = %q", lines[0])
	}
	if len(lines) != sampleSize {
		t.Fatalf("expected header plus %d rows, got %d lines", sampleSize-1, len(lines))
	}
	requireContains(t, out, "1001,BEAM,BM-01,Painting,Shop B")

	out = mustRunCLI(t, env, "list", "--sort", "id", "--desc")
	requireContains(t, out, fmt.Sprintf("%d items", sampleSize-2))
	if strings.Index(out, "1007") > strings.Index(out, "1001") {
		t.Fatal("expected descending id order")
	}
}

func TestCLIImportAppendFromFile(t *testing.T) {
	env := setupCLITestEnv(t, "", "")
	mustRunCLI(t, env, "import", "--sample")

	path := filepath.Join(env.baseDir, "extra.csv")
	if err := os.WriteFile(path, []byte("NO,ITEM\n2001,BEAM\n1001,BEAM\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := mustRunCLI(t, env, "import", path, "--mode", "append")
	requireContains(t, out, "Appended 1 of 2 items")
	requireContains(t, out, "Skipped duplicates: 1001")

	empty := filepath.Join(env.baseDir, "empty.csv")
	if err := os.WriteFile(empty, []byte("NO,ITEM\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, _, err := runCLI(t, []string{"import", empty}, env.configPath); err == nil {
		t.Fatal("expected empty import to fail")
	}
}

func TestCLIRefusesNonAdminSave(t *testing.T) {
	env := setupCLITestEnv(t, "worker", "boss")
	_, _, err := runCLI(t, []string{"import", "--sample"}, env.configPath)
	if err == nil {
		t.Fatal("expected non-admin import to fail")
	}
	requireContains(t, err.Error(), "not allowed")

	list := listJSON(t, env)
	if len(list) != 0 {
		t.Fatalf("expected nothing saved, got %d items", len(list))
	}
}

func TestCLIRejectsBadArguments(t *testing.T) {
	env := setupCLITestEnv(t, "", "")
	cases := [][]string{
		{"advance", "1001", "--shop", "Z"},
		{"set-status", "1001", "--status", "Nowhere"},
		{"set-status", "1001"},
		{"list", "--sort", "colour"},
		{"import", "--mode", "upsert", "--sample"},
		{"import"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestCLIDoctor(t *testing.T) {
	env := setupCLITestEnv(t, "", "")
	out := mustRunCLI(t, env, "doctor")
	requireContains(t, out, "Store:")
	requireContains(t, out, "[OK]")
}
