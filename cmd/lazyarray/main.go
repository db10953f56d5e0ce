// Package main provides the lazyarray CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/born-ml/lazyarray/internal/script"
)

const version = "v0.0.1-dev"

// Exit codes.
const (
	exitOK           = 0
	exitCheckFailed  = 1
	exitCommandError = 2
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, script.ErrCheckFailed):
		return exitCheckFailed
	default:
		return exitCommandError
	}
}
