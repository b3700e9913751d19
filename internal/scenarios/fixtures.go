package scenarios

import (
	"fmt"
	"os"
	"path/filepath"
)

const scenarioRootRelativePath = "scenarios/jade"

var requiredScenarioMinimumFiles = map[string][]string{
	"clean-unsigned":          {"README.md", "manifest.json", "expected.yaml"},
	"cycle-detected":          {"README.md", "manifest.json", "expected.yaml"},
	"orphan-node":             {"README.md", "manifest.json", "expected.yaml"},
	"missing-required-fields": {"README.md", "manifest.json", "expected.yaml"},
	"malformed-json":          {"README.md", "manifest.json", "expected.yaml"},
	"injection-in-params":     {"README.md", "manifest.json", "expected.yaml"},
	"wildcard-strict-sandbox": {"README.md", "manifest.json", "expected.yaml"},
	"sensitive-env-warning":   {"README.md", "manifest.json", "expected.yaml"},
	"custom-detection-tables": {"README.md", "manifest.json", "expected.yaml", "flags.yaml", "tables.yaml"},
	"concurrent-batch-10":     {"README.md", "manifest.json", "expected.yaml", "flags.yaml"},
}

func findRepoRoot(startDir string) (string, error) {
	current := startDir
	for {
		candidate := filepath.Join(current, "go.mod")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("unable to locate repository root from %s", startDir)
		}
		current = parent
	}
}

func validateScenarioFiles(scenarioRoot string) error {
	for name, files := range requiredScenarioMinimumFiles {
		for _, file := range files {
			path := filepath.Join(scenarioRoot, name, file)
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				return fmt.Errorf("scenario %s missing %s", name, file)
			}
		}
	}
	return nil
}
