package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/davidahmann/jadegate/core/schema/v1/skill"
)

func RepoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to locate testutil source file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func BuildJadeBinary(t *testing.T, root string) string {
	t.Helper()
	binName := "jade"
	if runtime.GOOS == "windows" {
		binName = "jade.exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)

	// #nosec G204 -- arguments are fixed and used only in test binaries.
	build := exec.Command("go", "build", "-o", binPath, "./cmd/jade")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build jade binary: %v\n%s", err, string(out))
	}
	return binPath
}

func CommandExitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected command exit error, got: %v", err)
	}
	return exitErr.ExitCode()
}

func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path) // #nosec G304 -- test helper for controlled paths.
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

// MinimalManifest is an unsigned, acyclic, policy-clean three step skill.
func MinimalManifest() skill.Manifest {
	timeout := uint64(10000)
	condition := "status == 200"
	return skill.Manifest{
		JadeVersion: "1.0.0",
		SkillID:     "weather_lookup",
		Metadata: skill.Metadata{
			Name:        "Weather Lookup",
			Description: "Fetch the current forecast for a city",
			Version:     "1.2.0",
			Author:      "jadegate",
			Tags:        []string{"weather", "http"},
		},
		InputSchema:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
		OutputSchema: json.RawMessage(`{"type":"object","properties":{"forecast":{"type":"string"}}}`),
		ExecutionGraph: skill.ExecutionGraph{
			Nodes: []skill.Node{
				{ID: "fetch", Action: "http_get", Params: map[string]json.RawMessage{"url": json.RawMessage(`"https://api.weather.example.com/v1/forecast"`)}, TimeoutMS: &timeout},
				{ID: "parse", Action: "json_extract", Params: map[string]json.RawMessage{"path": json.RawMessage(`"current.summary"`)}},
				{ID: "respond", Action: "return_result", Params: map[string]json.RawMessage{}},
			},
			Edges: []skill.Edge{
				{From: "fetch", To: "parse", Condition: &condition},
				{From: "parse", To: "respond"},
			},
		},
		Security: skill.SecurityPolicy{
			Sandbox:            "strict",
			NetworkWhitelist:   []string{"api.weather.example.com"},
			MaxExecutionTimeMS: 30000,
			EnvWhitelist:       []string{"WEATHER_API_TOKEN"},
		},
	}
}

// WriteManifest stores m as indented JSON at path.
func WriteManifest(t *testing.T, path string, m skill.Manifest) {
	t.Helper()
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		t.Fatalf("encode manifest: %v", err)
	}
	WriteFile(t, path, buffer.Bytes())
}
