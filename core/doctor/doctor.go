package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/davidahmann/jadegate/core/manifest"
	"github.com/davidahmann/jadegate/core/policy"
	"github.com/davidahmann/jadegate/core/projectconfig"
	"github.com/davidahmann/jadegate/core/sign"
)

const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "fail"
)

type Options struct {
	WorkDir         string
	ConfigPath      string
	ProducerVersion string
}

type Result struct {
	CreatedAt       string   `json:"created_at"`
	ProducerVersion string   `json:"producer_version"`
	Status          string   `json:"status"`
	NonFixable      bool     `json:"non_fixable"`
	Summary         string   `json:"summary"`
	FixCommands     []string `json:"fix_commands"`
	Checks          []Check  `json:"checks"`
}

type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	FixCommand string `json:"fix_command,omitempty"`
	NonFixable bool   `json:"non_fixable,omitempty"`
}

// Run inspects the local setup jade depends on. An empty ConfigPath means
// the default project config, which may be absent.
func Run(opts Options) Result {
	workDir := strings.TrimSpace(opts.WorkDir)
	if workDir == "" {
		workDir = "."
	}
	producerVersion := strings.TrimSpace(opts.ProducerVersion)
	if producerVersion == "" {
		producerVersion = "0.0.0-dev"
	}

	configuration, configCheck := checkProjectConfig(workDir, opts.ConfigPath)
	checks := []Check{
		checkWorkDirWritable(workDir),
		configCheck,
		checkShapeSchema(),
	}
	if configCheck.Status != statusFail {
		checks = append(checks,
			checkTables(workDir, configuration.Verify.Tables),
			checkKeysDir(resolve(workDir, configuration.Keys.OutDir)),
			checkKeyConfig(workDir, configuration.Keys),
		)
	}

	failed := 0
	warned := 0
	nonFixable := false
	fixCommands := make([]string, 0, len(checks))
	seenFixes := map[string]struct{}{}
	for _, check := range checks {
		switch check.Status {
		case statusFail:
			failed++
		case statusWarn:
			warned++
		}
		if check.NonFixable {
			nonFixable = true
		}
		if check.FixCommand != "" {
			if _, ok := seenFixes[check.FixCommand]; !ok {
				seenFixes[check.FixCommand] = struct{}{}
				fixCommands = append(fixCommands, check.FixCommand)
			}
		}
	}

	status := statusPass
	if failed > 0 {
		status = statusFail
	} else if warned > 0 {
		status = statusWarn
	}

	sort.Strings(fixCommands)
	summary := fmt.Sprintf("doctor: status=%s failed=%d warned=%d non_fixable=%t", status, failed, warned, nonFixable)

	return Result{
		CreatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
		ProducerVersion: producerVersion,
		Status:          status,
		NonFixable:      nonFixable,
		Summary:         summary,
		FixCommands:     fixCommands,
		Checks:          checks,
	}
}

func (r Result) Failed() bool {
	return r.Status == statusFail
}

func resolve(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

func checkWorkDirWritable(workDir string) Check {
	info, err := os.Stat(workDir)
	if err != nil {
		return Check{
			Name:       "workdir",
			Status:     statusFail,
			Message:    fmt.Sprintf("workdir not accessible: %v", err),
			FixCommand: fmt.Sprintf("mkdir -p %s", shellQuote(workDir)),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:       "workdir",
			Status:     statusFail,
			Message:    "workdir is not a directory",
			FixCommand: fmt.Sprintf("mkdir -p %s", shellQuote(workDir)),
		}
	}
	testPath := filepath.Join(workDir, ".jade-doctor-writecheck")
	if err := os.WriteFile(testPath, []byte("ok"), 0o600); err != nil {
		return Check{
			Name:       "workdir",
			Status:     statusFail,
			Message:    fmt.Sprintf("workdir not writable: %v", err),
			FixCommand: fmt.Sprintf("chmod u+w %s", shellQuote(workDir)),
		}
	}
	_ = os.Remove(testPath)
	return Check{
		Name:    "workdir",
		Status:  statusPass,
		Message: "workdir is writable",
	}
}

func checkProjectConfig(workDir, configPath string) (projectconfig.Config, Check) {
	explicit := strings.TrimSpace(configPath) != ""
	path := configPath
	if !explicit {
		path = projectconfig.DefaultPath
	}
	path = resolve(workDir, path)
	configuration, err := projectconfig.Load(path, !explicit)
	if err != nil {
		return projectconfig.Config{}, Check{
			Name:       "project_config",
			Status:     statusFail,
			Message:    err.Error(),
			FixCommand: fmt.Sprintf("edit %s or unset JADEGATE_* overrides", shellQuote(path)),
		}
	}
	message := "project config loaded"
	if _, statErr := os.Stat(path); statErr != nil {
		message = "no project config; using defaults"
	}
	return configuration, Check{
		Name:    "project_config",
		Status:  statusPass,
		Message: message,
	}
}

func checkShapeSchema() Check {
	if err := manifest.CheckShapeSchema(); err != nil {
		return Check{
			Name:       "manifest_schema",
			Status:     statusFail,
			Message:    fmt.Sprintf("embedded manifest schema does not compile: %v", err),
			NonFixable: true,
		}
	}
	return Check{
		Name:    "manifest_schema",
		Status:  statusPass,
		Message: "embedded manifest schema compiles",
	}
}

func checkTables(workDir, tablesPath string) Check {
	if tablesPath == "" {
		tables := policy.DefaultTables()
		return Check{
			Name:    "detection_tables",
			Status:  statusPass,
			Message: fmt.Sprintf("built-in detection tables %s (%d injection patterns)", tables.Version, len(tables.InjectionPatterns)),
		}
	}
	tables, err := policy.LoadTables(resolve(workDir, tablesPath))
	if err != nil {
		return Check{
			Name:       "detection_tables",
			Status:     statusFail,
			Message:    fmt.Sprintf("detection tables not usable: %v", err),
			FixCommand: fmt.Sprintf("fix %s or clear verify.tables", shellQuote(tablesPath)),
		}
	}
	if len(tables.InjectionPatterns) == 0 {
		return Check{
			Name:    "detection_tables",
			Status:  statusWarn,
			Message: fmt.Sprintf("detection tables %s define no injection patterns", tables.Version),
		}
	}
	return Check{
		Name:    "detection_tables",
		Status:  statusPass,
		Message: fmt.Sprintf("detection tables %s (%d injection patterns)", tables.Version, len(tables.InjectionPatterns)),
	}
}

func checkKeysDir(keysDir string) Check {
	info, err := os.Stat(keysDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Check{
				Name:       "keys_dir",
				Status:     statusWarn,
				Message:    "keys directory does not exist",
				FixCommand: "jade keys init",
			}
		}
		return Check{
			Name:    "keys_dir",
			Status:  statusFail,
			Message: fmt.Sprintf("keys directory check failed: %v", err),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "keys_dir",
			Status:  statusFail,
			Message: "keys path is not a directory",
		}
	}
	return Check{
		Name:    "keys_dir",
		Status:  statusPass,
		Message: "keys directory exists",
	}
}

func checkKeyConfig(workDir string, keys projectconfig.KeysDefaults) Check {
	if keys.PrivateKey == "" && keys.PrivateKeyEnv == "" {
		return Check{
			Name:    "signing_key",
			Status:  statusPass,
			Message: "no signing key configured; jade sign needs --private-key or --private-key-env",
		}
	}
	key, err := sign.LoadSigningKey(sign.KeyConfig{
		PrivateKeyPath: resolve(workDir, keys.PrivateKey),
		PrivateKeyEnv:  keys.PrivateKeyEnv,
	})
	if err != nil {
		return Check{
			Name:       "signing_key",
			Status:     statusFail,
			Message:    fmt.Sprintf("invalid signing key config: %v", err),
			FixCommand: "set keys.private_key or keys.private_key_env to a key from jade keys init",
		}
	}
	if key.Class == sign.KeyClassUnclassified {
		return Check{
			Name:    "signing_key",
			Status:  statusWarn,
			Message: "signing key has no class prefix; manifests it seals are unclassified",
		}
	}
	return Check{
		Name:    "signing_key",
		Status:  statusPass,
		Message: fmt.Sprintf("signing key loads (class %s)", key.Class),
	}
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
