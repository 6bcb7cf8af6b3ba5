package main

import (
	"os"

	"github.com/aristath/frontier/cmd/frontierctl/commands"
)

// main is the entry point for the Frontier CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
