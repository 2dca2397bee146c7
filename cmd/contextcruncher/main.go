package main

import (
	"os"

	"github.com/ppiankov/contextcruncher/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
