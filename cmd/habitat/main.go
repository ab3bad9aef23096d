// Command habitat trains navigation agents and evaluates their
// checkpoints.
package main

import (
	"fmt"
	"os"

	"github.com/JelinR/habitat-lab/cmd/habitat/commands"
)

func main() {
	root := commands.NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
