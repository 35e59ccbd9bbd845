package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harrison/lintbox/internal/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := cmd.NewRootCommand()
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
			}
			return exitErr.Code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
