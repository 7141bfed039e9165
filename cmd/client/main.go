// Package main is the journalon command line client.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/atinyakov/journalon/internal/client/cli"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	root := cli.NewRootCommand(cli.BuildInfo{Version: version, BuildDate: buildDate})
	if err := root.Execute(); err != nil {
		// ExitErrors have been reported by the command itself.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
