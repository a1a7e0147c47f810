package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/symsolve/pkg/symsolve/config"
	"go.uber.org/zap"
)

// TestBuildEngine tests that buildEngine opens a sqlite store
func TestBuildEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")

	engine, cleanup, err := buildEngine(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	defer cleanup()

	if engine == nil {
		t.Fatal("Expected non-nil engine")
	}
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		t.Fatalf("store file not created: %v", err)
	}
}

func TestBuildEngineInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LP.Engine = "pyke"
	if _, _, err := buildEngine(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestRunAndReportCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "symsolve.yaml")
	cfgYAML := "sat:\n  interpreter: sh\nstaging:\n  dir: " + filepath.Join(dir, "staging") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0644); err != nil {
		t.Fatal(err)
	}

	input := `[
  {"id": "a", "options": ["A) x", "B) y"], "answer": "B", "SAT": ["echo '(B)'"]},
  {"id": "b", "options": ["A) x", "B) y"], "answer": "A", "SAT": ["echo '(A)'; echo '(B)'"]}
]`
	inPath := filepath.Join(dir, "in.json")
	if err := os.WriteFile(inPath, []byte(input), 0644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out", "results.json")
	db := filepath.Join(dir, "runs.db")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "--db", db, "--input", inPath, "--output", outPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "wrote 2 records") {
		t.Fatalf("unexpected run output:\n%s", stdout.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0]["SAT_status_code"] != "success" || out[0]["SAT_predicted_answer"] != "B" {
		t.Errorf("unexpected first record: %v", out[0])
	}
	if out[1]["SAT_status_code"] != "execution error" {
		t.Errorf("ambiguous markers should be an execution error: %v", out[1])
	}
	if out[0]["LP_status_code"] != "parsing error" {
		t.Errorf("missing LP program should be a parsing error: %v", out[0])
	}

	stdout.Reset()
	rootCmd.SetArgs([]string{"report", "--db", db})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{"run ", "SAT", "exec accuracy"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("report output missing %q:\n%s", want, stdout.String())
		}
	}
}
