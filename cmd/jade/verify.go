package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/policy"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
	"github.com/davidahmann/jadegate/core/sign"
	"github.com/davidahmann/jadegate/core/verifier"
)

type verifyOutput struct {
	OK            bool               `json:"ok"`
	Results       []verifyFileOutput `json:"results,omitempty"`
	Summary       *verifySummary     `json:"summary,omitempty"`
	Error         string             `json:"error,omitempty"`
	ErrorCode     string             `json:"error_code,omitempty"`
	ErrorCategory string             `json:"error_category,omitempty"`
	Hint          string             `json:"hint,omitempty"`
}

type verifyFileOutput struct {
	Path         string                  `json:"path"`
	Valid        bool                    `json:"valid"`
	LayersPassed int                     `json:"layers_passed"`
	SkillID      string                  `json:"skill_id,omitempty"`
	ContentHash  string                  `json:"content_hash,omitempty"`
	Signer       *skill.SignerInfo       `json:"signer,omitempty"`
	Issues       []skill.ValidationIssue `json:"issues"`
	Error        string                  `json:"error,omitempty"`
	ErrorCode    string                  `json:"error_code,omitempty"`
}

type verifySummary struct {
	Files      int `json:"files"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Unreadable int `json:"unreadable"`
}

func runVerify(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("verify", arguments, "Verify runs each manifest through the schema, execution graph, security policy, injection and signature layers. Exit code 0 means every manifest is valid, 2 means at least one has errors, 6 means a file could not be read or parsed.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"tables":          true,
		"allow-key-class": true,
		"workers":         true,
		"config":          true,
	})
	flagSet := flag.NewFlagSet("verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var tablesPath string
	var allowKeyClass string
	var workers int
	var configPath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&tablesPath, "tables", "", "detection table YAML overriding the built-in tables")
	flagSet.StringVar(&allowKeyClass, "allow-key-class", "", "comma-separated key classes allowed to seal manifests")
	flagSet.IntVar(&workers, "workers", 0, "number of manifests verified in parallel")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printVerifyUsage()
		return exitOK
	}

	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeVerifyError(jsonOutput, err, exitInvalidInput)
	}
	if !flagWasSet(flagSet, "json") {
		jsonOutput = configuration.Verify.JSON
	}
	paths := flagSet.Args()
	if len(paths) == 0 {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: "expected at least one manifest path"}, exitInvalidInput)
	}

	if tablesPath == "" {
		tablesPath = configuration.Verify.Tables
	}
	tables := policy.DefaultTables()
	if tablesPath != "" {
		tables, err = policy.LoadTables(tablesPath)
		if err != nil {
			return writeVerifyError(jsonOutput, err, exitInvalidInput)
		}
	}

	classNames := configuration.Verify.AllowedKeyClasses
	if flagWasSet(flagSet, "allow-key-class") {
		classNames = splitCSV(allowKeyClass)
	}
	allowed, err := parseKeyClasses(classNames)
	if err != nil {
		return writeVerifyError(jsonOutput, err, exitInvalidInput)
	}
	if workers <= 0 {
		workers = configuration.Verify.Workers
	}

	engine := verifier.New(verifier.Options{
		Tables:            &tables,
		AllowedKeyClasses: allowed,
		Logger:            newLogger(configuration.Log.Level),
	})
	results, err := engine.VerifyFiles(context.Background(), paths, workers)
	if err != nil {
		return writeVerifyError(jsonOutput, err, exitInternalFailure)
	}

	output := verifyOutput{OK: true, Summary: &verifySummary{Files: len(results)}}
	exitCode := exitOK
	for _, result := range results {
		entry := verifyFileOutput{Path: result.Path, Issues: []skill.ValidationIssue{}}
		if result.Err != nil {
			entry.Error = result.Err.Error()
			entry.ErrorCode, _ = errorFields(result.Err)
			output.Summary.Unreadable++
			exitCode = exitInvalidInput
		} else {
			entry.Valid = result.Result.Valid
			entry.LayersPassed = result.Result.LayersPassed
			entry.SkillID = result.Result.SkillID
			entry.ContentHash = result.Result.ContentHash
			entry.Signer = result.Result.Signer
			if result.Result.Issues != nil {
				entry.Issues = result.Result.Issues
			}
			if entry.Valid {
				output.Summary.Valid++
			} else {
				output.Summary.Invalid++
				if exitCode == exitOK {
					exitCode = exitVerifyFailed
				}
			}
		}
		output.Results = append(output.Results, entry)
	}
	output.OK = exitCode == exitOK
	return writeVerifyOutput(jsonOutput, output, exitCode)
}

func parseKeyClasses(values []string) ([]sign.KeyClass, error) {
	classes := make([]sign.KeyClass, 0, len(values))
	for _, value := range values {
		class, err := sign.ParseKeyClass(value)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "key_class_invalid", "use root, ci or unclassified")
		}
		classes = append(classes, class)
	}
	return classes, nil
}

func flagWasSet(flagSet *flag.FlagSet, name string) bool {
	found := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func writeVerifyError(jsonOutput bool, err error, fallbackExit int) int {
	code, hint := errorFields(err)
	return writeVerifyOutput(jsonOutput, verifyOutput{
		OK:            false,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: string(coreerrors.CategoryOf(err)),
		Hint:          hint,
	}, exitCodeForError(err, fallbackExit))
}

func writeVerifyOutput(jsonOutput bool, output verifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		fmt.Printf("verify error: %s\n", output.Error)
		return exitCode
	}
	for _, result := range output.Results {
		printVerifyResult(result)
	}
	if output.Summary != nil && output.Summary.Files > 1 {
		fmt.Printf("summary: files=%d valid=%d invalid=%d unreadable=%d\n",
			output.Summary.Files, output.Summary.Valid, output.Summary.Invalid, output.Summary.Unreadable)
	}
	return exitCode
}

func printVerifyResult(result verifyFileOutput) {
	if result.Error != "" {
		fmt.Printf("%s %s: %s\n", color.RedString("UNREADABLE"), result.Path, result.Error)
		return
	}
	verdict := color.GreenString("VALID")
	if !result.Valid {
		verdict = color.RedString("INVALID")
	}
	fmt.Printf("%s %s skill_id=%s layers_passed=%d/5\n", verdict, result.Path, result.SkillID, result.LayersPassed)
	if result.ContentHash != "" {
		fmt.Printf("  content_hash: %s\n", result.ContentHash)
	}
	if result.Signer != nil {
		fmt.Printf("  signer: %s class=%s fingerprint=%s\n", result.Signer.Signer, result.Signer.KeyClass, result.Signer.Fingerprint)
	}
	for _, issue := range result.Issues {
		fmt.Printf("  [layer %d] %s %s %s\n", issue.Layer, severityLabel(issue.Severity), issue.Code, issue.Message)
	}
}

func severityLabel(severity skill.Severity) string {
	label := strings.ToUpper(severity.String())
	switch severity {
	case skill.SeverityError:
		return color.RedString(label)
	case skill.SeverityWarning:
		return color.YellowString(label)
	default:
		return color.CyanString(label)
	}
}

func printVerifyUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade verify <manifest.json>... [--json] [--tables <yaml>] [--allow-key-class root,ci] [--workers <n>] [--config <path>] [--explain]")
}
