package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
)

const CodeTablesInvalid = "policy_tables_invalid"

// Tables holds the detection data the scanner matches against. It is kept
// out of the scanning logic so it can be versioned and replaced.
type Tables struct {
	Version                string   `yaml:"version" json:"version"`
	InjectionPatterns      []string `yaml:"injection_patterns" json:"injection_patterns"`
	SensitiveEnvPatterns   []string `yaml:"sensitive_env_patterns" json:"sensitive_env_patterns"`
	PrivateNetworkPrefixes []string `yaml:"private_network_prefixes" json:"private_network_prefixes"`
	LoopbackHosts          []string `yaml:"loopback_hosts" json:"loopback_hosts"`
	MaxExecutionTimeMS     uint64   `yaml:"max_execution_time_ms" json:"max_execution_time_ms"`
}

//go:embed tables/default.yaml
var defaultTablesYAML []byte

// DefaultTables returns a fresh copy of the built-in tables.
func DefaultTables() Tables {
	tables, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in detection tables are invalid: %v", err))
	}
	return tables
}

func LoadTables(path string) (Tables, error) {
	// #nosec G304 -- table path is explicit local user input.
	content, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, coreerrors.Wrap(fmt.Errorf("read detection tables: %w", err), coreerrors.CategoryIOFailure, CodeTablesInvalid, "check the --tables path")
	}
	return ParseTables(content)
}

func ParseTables(data []byte) (Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return Tables{}, coreerrors.Wrap(fmt.Errorf("parse detection tables: %w", err), coreerrors.CategoryInvalidInput, CodeTablesInvalid, "detection tables must be YAML")
	}
	return normalizeTables(tables)
}

func normalizeTables(tables Tables) (Tables, error) {
	tables.Version = strings.TrimSpace(tables.Version)
	if tables.Version == "" {
		tables.Version = "custom"
	}
	// Injection patterns are matched verbatim, whitespace included.
	patterns := make([]string, 0, len(tables.InjectionPatterns))
	seen := map[string]struct{}{}
	for _, pattern := range tables.InjectionPatterns {
		if pattern == "" {
			return Tables{}, coreerrors.Newf(coreerrors.CategoryInvalidInput, CodeTablesInvalid, "", "injection pattern must not be empty")
		}
		if _, ok := seen[pattern]; ok {
			continue
		}
		seen[pattern] = struct{}{}
		patterns = append(patterns, pattern)
	}
	tables.InjectionPatterns = patterns
	tables.SensitiveEnvPatterns = normalizeWords(tables.SensitiveEnvPatterns, strings.ToUpper)
	tables.PrivateNetworkPrefixes = normalizeWords(tables.PrivateNetworkPrefixes, strings.ToLower)
	tables.LoopbackHosts = normalizeWords(tables.LoopbackHosts, strings.ToLower)
	return tables, nil
}

func normalizeWords(values []string, fold func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		normalized := fold(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
