package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/jadegate/core/dag"
	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/manifest"
)

type planOutput struct {
	OK             bool       `json:"ok"`
	Path           string     `json:"path,omitempty"`
	SkillID        string     `json:"skill_id,omitempty"`
	NodeCount      int        `json:"node_count"`
	ExecutionOrder []string   `json:"execution_order,omitempty"`
	Waves          [][]string `json:"waves,omitempty"`
	Error          string     `json:"error,omitempty"`
	ErrorCode      string     `json:"error_code,omitempty"`
	ErrorCategory  string     `json:"error_category,omitempty"`
	Hint           string     `json:"hint,omitempty"`
}

func runPlan(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("plan", arguments, "Plan prints the deterministic execution order of a manifest's nodes and the waves of nodes whose predecessors are complete. Nothing is executed.")
	}
	arguments = reorderInterspersedFlags(arguments, nil)
	flagSet := flag.NewFlagSet("plan", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writePlanOutput(jsonOutput, planOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printPlanUsage()
		return exitOK
	}
	remaining := flagSet.Args()
	if len(remaining) != 1 {
		return writePlanOutput(jsonOutput, planOutput{OK: false, Error: "expected exactly one manifest path"}, exitInvalidInput)
	}
	path := remaining[0]

	m, err := manifest.ReadFile(path)
	if err != nil {
		return writePlanError(jsonOutput, path, err, exitInvalidInput)
	}
	order, err := dag.TopologicalOrder(m.ExecutionGraph)
	if err != nil {
		err = coreerrors.Wrap(err, coreerrors.CategoryVerification, "graph_cycle", "remove the edge that closes the cycle")
		return writePlanError(jsonOutput, path, err, exitVerifyFailed)
	}
	waves, err := dag.Layers(m.ExecutionGraph)
	if err != nil {
		return writePlanError(jsonOutput, path, err, exitInternalFailure)
	}
	return writePlanOutput(jsonOutput, planOutput{
		OK:             true,
		Path:           path,
		SkillID:        m.SkillID,
		NodeCount:      len(order),
		ExecutionOrder: order,
		Waves:          waves,
	}, exitOK)
}

func writePlanError(jsonOutput bool, path string, err error, fallbackExit int) int {
	code, hint := errorFields(err)
	return writePlanOutput(jsonOutput, planOutput{
		OK:            false,
		Path:          path,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: string(coreerrors.CategoryOf(err)),
		Hint:          hint,
	}, exitCodeForError(err, fallbackExit))
}

func writePlanOutput(jsonOutput bool, output planOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("plan error: %s\n", output.Error)
		return exitCode
	}
	fmt.Printf("plan ok: skill_id=%s nodes=%d\n", output.SkillID, output.NodeCount)
	for index, id := range output.ExecutionOrder {
		fmt.Printf("  %d. %s\n", index+1, id)
	}
	for index, wave := range output.Waves {
		fmt.Printf("  wave %d: %s\n", index+1, strings.Join(wave, ", "))
	}
	return exitCode
}

func printPlanUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade plan <manifest.json> [--json] [--explain]")
}
