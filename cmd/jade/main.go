package main

import (
	"fmt"
	"os"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

const (
	exitOK              = 0
	exitInternalFailure = 1
	exitVerifyFailed    = 2
	exitInvalidInput    = 6
)

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	return runDispatch(arguments)
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitOK
	}
	if arguments[1] == "--explain" {
		return writeExplain("jade", arguments[1:], "JadeGate verifies skill manifests offline through five layers: schema, execution graph, security policy, injection scan and Ed25519 signature.")
	}

	switch arguments[1] {
	case "verify":
		return runVerify(arguments[2:])
	case "plan":
		return runPlan(arguments[2:])
	case "sign":
		return runSign(arguments[2:])
	case "keys":
		return runKeys(arguments[2:])
	case "status":
		return runStatus(arguments[2:])
	case "doctor":
		return runDoctor(arguments[2:])
	case "version", "--version", "-v":
		fmt.Println("jade", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", arguments[1])
		printUsage()
		return exitInvalidInput
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade verify <manifest.json>... [--json] [--tables <yaml>] [--allow-key-class root,ci] [--workers <n>] [--config <path>] [--explain]")
	fmt.Println("  jade plan <manifest.json> [--json] [--explain]")
	fmt.Println("  jade sign <manifest.json> (--private-key <path>|--private-key-env <VAR>) [--role root|ci] [--signer <id>] [--out <path>] [--json] [--explain]")
	fmt.Println("  jade keys init [--out-dir <dir>] [--prefix <name>] [--role root|ci] [--force] [--json] [--explain]")
	fmt.Println("  jade status [--tables <yaml>] [--json] [--explain]")
	fmt.Println("  jade doctor [--workdir <path>] [--config <path>] [--summary] [--json] [--explain]")
	fmt.Println("  jade version")
	fmt.Println("  jade help")
}
