package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// writeExecConfig writes a config that delegates to a shell script with the given body
// and returns the config path.
func writeExecConfig(t *testing.T, script string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-pipeline")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf("delegate:\n  mode: exec\n  command: %s\n", bin)
	path := filepath.Join(dir, "ragbench.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_usageErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "Usage: ragdriver"},
		{"missing query", []string{"llm_option_one", "prompt_option_one"}, "Usage: ragdriver"},
		{"bad llm option", []string{"llm_option_nine", "prompt_option_one", "q"}, "<llm_option> must be one of"},
		{"bad prompt option", []string{"llm_option_one", "prompt_option_nine", "q"}, "<prompt_option> must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), append([]string{"ragdriver"}, tt.args...), &stdout, &stderr)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.want)
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout = %q, want empty", stdout.String())
			}
		})
	}
}

func TestRun_execDelegate(t *testing.T) {
	cfgPath := writeExecConfig(t, `printf 'model=%s query=%s\n' "$4" "$8"`)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"ragdriver", "--config", cfgPath, "llm_option_two", "prompt_option_one", "What is the filing deadline?"},
		&stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if got, want := stdout.String(), "model=claude-3-5-sonnet-20241022 query=What is the filing deadline?\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestRun_execDelegatePassesConfig(t *testing.T) {
	cfgPath := writeExecConfig(t, `printf '%s\n' "$@"`)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"ragdriver", "--config", cfgPath, "llm_option_one", "prompt_option_two", "q"},
		&stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	argv := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(argv) < 2 || argv[0] != "--config" || argv[1] != cfgPath {
		t.Fatalf("child argv = %q, want it to start with --config %s", argv, cfgPath)
	}
	if got := argv[len(argv)-2:]; got[0] != "--query" || got[1] != "q" {
		t.Errorf("child argv tail = %q", got)
	}
}

func TestRun_execDelegateFailure(t *testing.T) {
	cfgPath := writeExecConfig(t, `echo 'index build failed' >&2; exit 4`)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"ragdriver", "--config", cfgPath, "llm_option_one", "prompt_option_three", "q"},
		&stdout, &stderr)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "status 4") || !strings.Contains(stderr.String(), "index build failed") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
