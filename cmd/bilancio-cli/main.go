package main

import (
	"fmt"
	"os"

	"bilancio/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand(cli.DefaultRootOptions())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
