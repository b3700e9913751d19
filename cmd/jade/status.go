package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/manifest"
	"github.com/davidahmann/jadegate/core/policy"
	"github.com/davidahmann/jadegate/core/sign"
	"github.com/davidahmann/jadegate/core/verifier"
)

const engineDescription = "five-layer skill manifest verifier (schema, graph, policy, injection, signature)"

type statusOutput struct {
	OK                     bool   `json:"ok"`
	Version                string `json:"version,omitempty"`
	Prerelease             bool   `json:"prerelease"`
	Engine                 string `json:"engine,omitempty"`
	Algorithm              string `json:"algorithm,omitempty"`
	SupportedJadeVersions  string `json:"supported_jade_versions,omitempty"`
	TablesVersion          string `json:"tables_version,omitempty"`
	InjectionPatterns      int    `json:"injection_patterns"`
	SensitiveEnvPatterns   int    `json:"sensitive_env_patterns"`
	PrivateNetworkPrefixes int    `json:"private_network_prefixes"`
	MaxExecutionTimeMS     uint64 `json:"max_execution_time_ms"`
	Error                  string `json:"error,omitempty"`
	ErrorCode              string `json:"error_code,omitempty"`
	ErrorCategory          string `json:"error_category,omitempty"`
	Hint                   string `json:"hint,omitempty"`
}

func runStatus(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("status", arguments, "Status reports the verifier version, signature algorithm and the detection tables in effect. It has no effect on verification.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{"tables": true, "config": true})
	flagSet := flag.NewFlagSet("status", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var tablesPath string
	var configPath string
	var jsonOutput bool
	var helpFlag bool
	flagSet.StringVar(&tablesPath, "tables", "", "detection table YAML to report instead of the built-in tables")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeStatusOutput(jsonOutput, statusOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printStatusUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeStatusOutput(jsonOutput, statusOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeStatusError(jsonOutput, err, exitInvalidInput)
	}
	if tablesPath == "" {
		tablesPath = configuration.Verify.Tables
	}
	var options verifier.Options
	if tablesPath != "" {
		loaded, err := policy.LoadTables(tablesPath)
		if err != nil {
			return writeStatusError(jsonOutput, err, exitInvalidInput)
		}
		options.Tables = &loaded
	}
	tables := verifier.New(options).Tables()

	output := statusOutput{
		OK:                     true,
		Version:                version,
		Engine:                 engineDescription,
		Algorithm:              sign.AlgEd25519,
		SupportedJadeVersions:  manifest.SupportedJadeVersions,
		TablesVersion:          tables.Version,
		InjectionPatterns:      len(tables.InjectionPatterns),
		SensitiveEnvPatterns:   len(tables.SensitiveEnvPatterns),
		PrivateNetworkPrefixes: len(tables.PrivateNetworkPrefixes),
		MaxExecutionTimeMS:     tables.MaxExecutionTimeMS,
	}
	if parsed, err := semver.NewVersion(version); err == nil {
		output.Version = parsed.String()
		output.Prerelease = parsed.Prerelease() != ""
	}
	return writeStatusOutput(jsonOutput, output, exitOK)
}

func writeStatusError(jsonOutput bool, err error, fallbackExit int) int {
	code, hint := errorFields(err)
	return writeStatusOutput(jsonOutput, statusOutput{
		OK:            false,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: string(coreerrors.CategoryOf(err)),
		Hint:          hint,
	}, exitCodeForError(err, fallbackExit))
}

func writeStatusOutput(jsonOutput bool, output statusOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("status error: %s\n", output.Error)
		return exitCode
	}
	fmt.Printf("jade %s\n", output.Version)
	fmt.Printf("  engine: %s\n", output.Engine)
	fmt.Printf("  algorithm: %s\n", output.Algorithm)
	fmt.Printf("  jade_version: %s\n", output.SupportedJadeVersions)
	fmt.Printf("  tables: version=%s injection_patterns=%d sensitive_env_patterns=%d private_network_prefixes=%d max_execution_time_ms=%d\n",
		output.TablesVersion, output.InjectionPatterns, output.SensitiveEnvPatterns, output.PrivateNetworkPrefixes, output.MaxExecutionTimeMS)
	return exitCode
}

func printStatusUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade status [--tables <yaml>] [--config <path>] [--json] [--explain]")
}
