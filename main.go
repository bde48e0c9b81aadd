package main

import (
	"github.com/davenull4x/applyforge/cmd"
)

// main is the entry point for the ApplyForge application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
