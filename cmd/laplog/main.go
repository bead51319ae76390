package main

import (
	"fmt"
	"os"

	"laplog/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
