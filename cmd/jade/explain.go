package main

import (
	"fmt"
	"strings"
)

type explainOutput struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
	Explain string `json:"explain"`
}

func hasExplainFlag(arguments []string) bool {
	return hasFlag(arguments, "--explain")
}

func hasFlag(arguments []string, name string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == name {
			return true
		}
	}
	return false
}

// writeExplain prints the command description, or an {ok, command, explain}
// object when --json is among the arguments.
func writeExplain(command string, arguments []string, text string) int {
	if hasFlag(arguments, "--json") {
		return writeJSONOutput(explainOutput{OK: true, Command: command, Explain: text}, exitOK)
	}
	fmt.Println(text)
	return exitOK
}
