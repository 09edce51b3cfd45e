// Command fundfaq is the entry point for the fund FAQ answering engine.
// It provides a CLI interface (via Cobra) and an optional HTTP server that
// answers natural language questions about a catalog of mutual funds.
package main

import (
	"fmt"
	"os"

	"github.com/fundfaq/fundfaq-go/cmd/fundfaq/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
