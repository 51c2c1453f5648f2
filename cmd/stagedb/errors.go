package main

import (
	"fmt"
	"os"
)

// formatError formats a StagingError for CLI output: "Error: message".
func formatError(err error) string {
	return fmt.Sprintf("Error: %s", err.Error())
}

// printError prints an error to stderr and exits with code 1.
func printError(err error) {
	fmt.Fprintln(os.Stderr, formatError(err))
	os.Exit(1)
}
