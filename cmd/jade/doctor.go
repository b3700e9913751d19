package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/jadegate/core/doctor"
)

type doctorOutput struct {
	OK              bool           `json:"ok"`
	SummaryMode     bool           `json:"summary_mode,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	ProducerVersion string         `json:"producer_version,omitempty"`
	Status          string         `json:"status,omitempty"`
	NonFixable      bool           `json:"non_fixable,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	FixCommands     []string       `json:"fix_commands,omitempty"`
	Checks          []doctor.Check `json:"checks,omitempty"`
	Error           string         `json:"error,omitempty"`
}

func runDoctor(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("doctor", arguments, "Diagnose the local jade setup: project config, detection tables, embedded manifest schema, keys directory and signing key source.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{"workdir": true, "config": true})
	flagSet := flag.NewFlagSet("doctor", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var workDir string
	var configPath string
	var summaryMode bool
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&workDir, "workdir", ".", "workspace path for checks")
	flagSet.StringVar(&configPath, "config", "", "path to project config, relative to workdir")
	flagSet.BoolVar(&summaryMode, "summary", false, "only list checks that did not pass")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeDoctorOutput(jsonOutput, doctorOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printDoctorUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeDoctorOutput(jsonOutput, doctorOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	result := doctor.Run(doctor.Options{
		WorkDir:         workDir,
		ConfigPath:      configPath,
		ProducerVersion: version,
	})
	exitCode := exitOK
	if result.Failed() {
		exitCode = exitInvalidInput
	}
	if result.NonFixable {
		exitCode = exitInternalFailure
	}
	return writeDoctorOutput(jsonOutput, doctorOutput{
		OK:              !result.Failed(),
		SummaryMode:     summaryMode,
		CreatedAt:       result.CreatedAt,
		ProducerVersion: result.ProducerVersion,
		Status:          result.Status,
		NonFixable:      result.NonFixable,
		Summary:         result.Summary,
		FixCommands:     result.FixCommands,
		Checks:          result.Checks,
	}, exitCode)
}

func writeDoctorOutput(jsonOutput bool, output doctorOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		fmt.Printf("doctor error: %s\n", output.Error)
		return exitCode
	}
	fmt.Println(output.Summary)
	for _, check := range output.Checks {
		if output.SummaryMode && check.Status == "pass" {
			continue
		}
		fmt.Printf("- %s: %s (%s)\n", check.Name, check.Status, check.Message)
		if check.FixCommand != "" {
			fmt.Printf("  fix: %s\n", check.FixCommand)
		}
	}
	return exitCode
}

func printDoctorUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade doctor [--workdir <path>] [--config <path>] [--summary] [--json] [--explain]")
}
