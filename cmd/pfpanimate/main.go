// Package main hosts the pfpanimate CLI.
//
// Each subcommand builds one job input, runs it synchronously through the
// same job service the HTTP server uses, and prints a summary table. Logs go
// to stderr so the summary can be piped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
