package doctor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davidahmann/jadegate/core/sign"
)

func checkStatus(checks []Check, name string, status string) bool {
	for _, check := range checks {
		if check.Name == name && check.Status == status {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRunFreshWorkspaceWarnsAboutKeysDir(t *testing.T) {
	workDir := t.TempDir()
	result := Run(Options{WorkDir: workDir, ProducerVersion: "test"})

	if result.Status != statusWarn {
		t.Fatalf("expected warn status, got %s (%s)", result.Status, result.Summary)
	}
	if result.Failed() || result.NonFixable {
		t.Fatalf("fresh workspace should not fail: %#v", result)
	}
	for _, name := range []string{"workdir", "project_config", "manifest_schema", "detection_tables", "signing_key"} {
		if !checkStatus(result.Checks, name, statusPass) {
			t.Fatalf("expected %s pass check: %#v", name, result.Checks)
		}
	}
	if !checkStatus(result.Checks, "keys_dir", statusWarn) {
		t.Fatalf("expected keys_dir warn check")
	}
	if len(result.FixCommands) != 1 || result.FixCommands[0] != "jade keys init" {
		t.Fatalf("unexpected fix commands: %v", result.FixCommands)
	}
	if result.ProducerVersion != "test" {
		t.Fatalf("unexpected producer version: %s", result.ProducerVersion)
	}
}

func TestRunPassesWithConfiguredKey(t *testing.T) {
	workDir := t.TempDir()
	kp, err := sign.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	writeFile(t, filepath.Join(workDir, "keys", "jade_private.key"), sign.FormatPrivateKey(sign.KeyClassCI, kp.Private)+"\n")
	writeFile(t, filepath.Join(workDir, ".jadegate", "config.yaml"), "keys:\n  out_dir: keys\n  private_key: keys/jade_private.key\n")

	result := Run(Options{WorkDir: workDir})
	if result.Status != statusPass {
		t.Fatalf("expected pass status, got %s: %#v", result.Status, result.Checks)
	}
	for _, check := range result.Checks {
		if check.Name == "signing_key" && !strings.Contains(check.Message, "class ci") {
			t.Fatalf("unexpected signing_key message: %s", check.Message)
		}
	}
}

func TestRunDetectsBrokenKeyAndTables(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "bad.key"), "not-a-key\n")
	writeFile(t, filepath.Join(workDir, "tables.yaml"), "injection_patterns: [\"\"]\n")
	writeFile(t, filepath.Join(workDir, ".jadegate", "config.yaml"), "verify:\n  tables: tables.yaml\nkeys:\n  private_key: bad.key\n")

	result := Run(Options{WorkDir: workDir})
	if !result.Failed() {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
	if !checkStatus(result.Checks, "signing_key", statusFail) {
		t.Fatalf("expected signing_key fail check: %#v", result.Checks)
	}
	if !checkStatus(result.Checks, "detection_tables", statusFail) {
		t.Fatalf("expected detection_tables fail check: %#v", result.Checks)
	}
}

func TestRunUnclassifiedKeyWarns(t *testing.T) {
	workDir := t.TempDir()
	kp, err := sign.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	t.Setenv("JADE_DOCTOR_KEY", sign.FormatPrivateKey(sign.KeyClassUnclassified, kp.Private))
	t.Setenv("JADEGATE_KEYS_PRIVATE_KEY_ENV", "JADE_DOCTOR_KEY")

	result := Run(Options{WorkDir: workDir})
	if !checkStatus(result.Checks, "signing_key", statusWarn) {
		t.Fatalf("expected signing_key warn check: %#v", result.Checks)
	}
}

func TestRunInvalidConfigSkipsDependentChecks(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "custom.yaml"), "verify:\n  workers: -1\n")

	result := Run(Options{WorkDir: workDir, ConfigPath: "custom.yaml"})
	if !checkStatus(result.Checks, "project_config", statusFail) {
		t.Fatalf("expected project_config fail check: %#v", result.Checks)
	}
	if len(result.Checks) != 3 {
		t.Fatalf("dependent checks should be skipped, got %d checks", len(result.Checks))
	}

	missing := Run(Options{WorkDir: workDir, ConfigPath: "absent.yaml"})
	if !checkStatus(missing.Checks, "project_config", statusFail) {
		t.Fatalf("explicit missing config should fail: %#v", missing.Checks)
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote(""); got != "''" {
		t.Fatalf("empty quote: %s", got)
	}
	if got := shellQuote("it's"); got != `'it'\''s'` {
		t.Fatalf("quote: %s", got)
	}
}
